// Package graph defines the scene graph produced by evaluating a scene
// script. The graph is a DAG of primitives, booleans, transforms and
// groups; it is built once per evaluation and never mutated afterwards.
package graph
