package graph

import (
	"fmt"
	"sort"
)

// ValidationSeverity indicates whether a validation finding blocks building
// the scene or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks building
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Validate runs all structural and geometric checks on the graph and
// returns the findings, errors and warnings alike, in a stable order. The
// graph is never mutated.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateNodes(g)...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Severity < errs[j].Severity
	})
	return errs
}

// HasErrors reports whether any finding blocks building.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range sortedIDs(g) {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every child ID points to an existing node.
func validateReferences(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, id := range sortedIDs(g) {
		node := g.Nodes[id]
		for _, childID := range node.Children {
			if _, ok := g.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that every name index entry points to an existing
// node carrying that name.
func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError
	names := make([]string, 0, len(g.NameIndex))
	for name := range g.NameIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id := g.NameIndex[name]
		n, ok := g.Nodes[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Name != name {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("name %q indexes a node named %q", name, n.Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that the scene declares at least one existing root
// and warns about nodes no root reaches.
func validateRoots(g *Graph) []ValidationError {
	var errs []ValidationError
	if len(g.Roots) == 0 {
		return append(errs, ValidationError{
			Message:  "scene declares no solid",
			Severity: SeverityError,
		})
	}

	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := g.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for _, id := range sortedIDs(g) {
		if reachable[id] {
			continue
		}
		node := g.Nodes[id]
		name := node.Name
		if name == "" {
			name = id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not part of the scene (orphan)", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateNodes checks that each node's data matches its kind, that
// dimensions are usable and that child counts fit the operation.
func validateNodes(g *Graph) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, id := range sortedIDs(g) {
		n := g.Nodes[id]
		switch d := n.Data.(type) {
		case PrimitiveData:
			if n.Kind != NodePrimitive {
				bad(n, "%s node carries primitive data", n.Kind)
				continue
			}
			if len(n.Children) != 0 {
				bad(n, "primitive has %d children", len(n.Children))
			}
			validatePrimitive(n, d, bad)

		case BooleanData:
			if n.Kind != NodeBoolean {
				bad(n, "%s node carries boolean data", n.Kind)
				continue
			}
			want := 2
			if d.Op == OpUnion {
				want = 1
			}
			if len(n.Children) < want {
				bad(n, "%s needs at least %d operands, has %d", d.Op, want, len(n.Children))
			}

		case TransformData:
			if n.Kind != NodeTransform {
				bad(n, "%s node carries transform data", n.Kind)
				continue
			}
			if len(n.Children) != 1 {
				bad(n, "transform needs exactly one child, has %d", len(n.Children))
			}

		case GroupData:
			if n.Kind != NodeGroup {
				bad(n, "%s node carries group data", n.Kind)
				continue
			}
			if len(n.Children) == 0 {
				bad(n, "group is empty")
			}

		default:
			bad(n, "unsupported node data %T", n.Data)
		}
	}
	return errs
}

func validatePrimitive(n *Node, d PrimitiveData, bad func(*Node, string, ...any)) {
	if d.Round < 0 {
		bad(n, "%s round %v is negative", d.PrimKind, d.Round)
	}
	switch d.PrimKind {
	case PrimSphere:
		if d.Radius <= 0 {
			bad(n, "sphere radius %v must be positive", d.Radius)
		}
	case PrimBox:
		if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
			bad(n, "box size %v must be positive", d.Size)
		} else if 2*d.Round > min(d.Size.X, d.Size.Y, d.Size.Z) {
			bad(n, "box round %v exceeds half its smallest side", d.Round)
		}
	case PrimCylinder:
		if d.Height <= 0 || d.Radius <= 0 {
			bad(n, "cylinder height %v and radius %v must be positive", d.Height, d.Radius)
		} else if d.Round > d.Radius || 2*d.Round > d.Height {
			bad(n, "cylinder round %v is too large", d.Round)
		}
	default:
		bad(n, "unknown primitive %v", d.PrimKind)
	}
}

// sortedIDs returns node IDs in a deterministic order.
func sortedIDs(g *Graph) []NodeID {
	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
