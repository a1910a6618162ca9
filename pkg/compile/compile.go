// Package compile walks a scene graph and folds it into a single kernel
// solid. Shared subgraphs are built once.
package compile

import (
	"fmt"

	"github.com/chazu/isoview/pkg/graph"
	"github.com/chazu/isoview/pkg/kernel"
)

// Compile builds the union of every root in g. The graph should have passed
// graph.Validate; Compile still reports structural problems it runs into
// rather than panicking. The compiler is read-only and never mutates the
// graph.
func Compile(g *graph.Graph, k kernel.Kernel) (kernel.Solid, error) {
	if g == nil || len(g.Roots) == 0 {
		return nil, fmt.Errorf("compile: scene has no roots")
	}

	c := &compiler{g: g, k: k, built: make(map[graph.NodeID]kernel.Solid), active: make(map[graph.NodeID]bool)}
	solids := make([]kernel.Solid, 0, len(g.Roots))
	for _, rootID := range g.Roots {
		s, err := c.build(rootID)
		if err != nil {
			return nil, fmt.Errorf("compile: root %s: %w", rootID.Short(), err)
		}
		solids = append(solids, s)
	}
	if len(solids) == 1 {
		return solids[0], nil
	}
	return k.Union(solids...), nil
}

type compiler struct {
	g      *graph.Graph
	k      kernel.Kernel
	built  map[graph.NodeID]kernel.Solid
	active map[graph.NodeID]bool // nodes on the current path, for cycle detection
}

// build returns the solid for a node, building its children first.
func (c *compiler) build(id graph.NodeID) (kernel.Solid, error) {
	if s, ok := c.built[id]; ok {
		return s, nil
	}
	n := c.g.Get(id)
	if n == nil {
		return nil, fmt.Errorf("node %s does not exist", id.Short())
	}
	if c.active[id] {
		return nil, fmt.Errorf("node %s is part of a cycle", id.Short())
	}
	c.active[id] = true
	defer delete(c.active, id)

	var (
		s   kernel.Solid
		err error
	)
	switch n.Kind {
	case graph.NodePrimitive:
		s, err = c.primitive(n)
	case graph.NodeBoolean:
		s, err = c.boolean(n)
	case graph.NodeTransform:
		s, err = c.transform(n)
	case graph.NodeGroup:
		s, err = c.group(n)
	default:
		err = fmt.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	c.built[id] = s
	return s, nil
}

// children builds every child of n in order.
func (c *compiler) children(n *graph.Node) ([]kernel.Solid, error) {
	solids := make([]kernel.Solid, 0, len(n.Children))
	for _, cid := range n.Children {
		s, err := c.build(cid)
		if err != nil {
			return nil, err
		}
		solids = append(solids, s)
	}
	return solids, nil
}

// primitive creates geometry for a primitive node.
func (c *compiler) primitive(n *graph.Node) (kernel.Solid, error) {
	d, ok := n.Data.(graph.PrimitiveData)
	if !ok {
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}

	var (
		s   kernel.Solid
		err error
	)
	switch d.PrimKind {
	case graph.PrimSphere:
		s, err = c.k.Sphere(d.Radius)
	case graph.PrimBox:
		s, err = c.k.Box(d.Size.X, d.Size.Y, d.Size.Z, d.Round)
	case graph.PrimCylinder:
		s, err = c.k.Cylinder(d.Height, d.Radius, d.Round)
	default:
		return nil, fmt.Errorf("primitive node %s: unknown primitive %v", n.ID.Short(), d.PrimKind)
	}
	if err != nil {
		return nil, fmt.Errorf("primitive node %s: %w", n.ID.Short(), err)
	}
	return s, nil
}

// boolean folds the children with the node's operation, left to right.
func (c *compiler) boolean(n *graph.Node) (kernel.Solid, error) {
	d, ok := n.Data.(graph.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	solids, err := c.children(n)
	if err != nil {
		return nil, err
	}
	if len(solids) == 0 {
		return nil, fmt.Errorf("boolean node %s has no operands", n.ID.Short())
	}

	switch d.Op {
	case graph.OpUnion:
		if len(solids) == 1 {
			return solids[0], nil
		}
		return c.k.Union(solids...), nil
	case graph.OpDifference:
		s := solids[0]
		for _, o := range solids[1:] {
			s = c.k.Difference(s, o)
		}
		return s, nil
	case graph.OpIntersection:
		s := solids[0]
		for _, o := range solids[1:] {
			s = c.k.Intersection(s, o)
		}
		return s, nil
	}
	return nil, fmt.Errorf("boolean node %s: unknown operation %v", n.ID.Short(), d.Op)
}

// transform applies rotation first, then translation, to the child.
func (c *compiler) transform(n *graph.Node) (kernel.Solid, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("transform node %s has %d children, want 1", n.ID.Short(), len(n.Children))
	}
	s, err := c.build(n.Children[0])
	if err != nil {
		return nil, err
	}
	if r := td.Rotation; r != nil && !r.IsZero() {
		s = c.k.Rotate(s, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && !t.IsZero() {
		s = c.k.Translate(s, t.X, t.Y, t.Z)
	}
	return s, nil
}

// group unions its children.
func (c *compiler) group(n *graph.Node) (kernel.Solid, error) {
	solids, err := c.children(n)
	if err != nil {
		return nil, err
	}
	switch len(solids) {
	case 0:
		return nil, fmt.Errorf("group node %s is empty", n.ID.Short())
	case 1:
		return solids[0], nil
	}
	return c.k.Union(solids...), nil
}
