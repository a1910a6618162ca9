package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/isoview/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene source before zygomys reads it:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables of the same name.
//  2. Kebab-case to underscore: wall-thickness -> wall_thickness, since zygomys
//     reads a hyphen inside an identifier as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j

		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j

		case b[i] == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, ':', '=')
			i += 2

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j

		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++

		default:
			result = append(result, b[i])
			i++
		}
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opened at b[start].
func skipQuoted(b []byte, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so solids can be passed between builtins
// and bound to variables.
type sexpNodeRef struct {
	id   graph.NodeID
	kind string // what built it, for printing
	name string
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(solid %q)", n.name)
	}
	return fmt.Sprintf("(%s %s)", n.kind, n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number returns the keyword argument name, else positional argument pos,
// else def. A missing value with no default is an error.
func (a kwArgs) number(name string, pos int, def *float64) (float64, error) {
	if v, ok := a.kw[name]; ok {
		return toFloat64(v)
	}
	if pos >= 0 && pos < len(a.positional) {
		return toFloat64(a.positional[pos])
	}
	if def != nil {
		return *def, nil
	}
	return 0, fmt.Errorf("missing %s", name)
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toNodeRefs collects solids from args, flattening lists and arrays.
func toNodeRefs(args []zygo.Sexp) ([]graph.NodeID, error) {
	var ids []graph.NodeID
	for i, a := range args {
		if _, ok := a.(*sexpNodeRef); !ok {
			if items, err := sexpListToSlice(a); err == nil {
				nested, err := toNodeRefs(items)
				if err != nil {
					return nil, err
				}
				ids = append(ids, nested...)
				continue
			}
		}
		id, err := toNodeRef(a)
		if err != nil {
			return nil, fmt.Errorf("operand %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Graph building
// ---------------------------------------------------------------------------

// builder accumulates the graph for one evaluation. Node IDs come from a
// per-evaluation counter, so the same source always yields the same IDs.
type builder struct {
	g   *graph.Graph
	seq int
}

func newBuilder() *builder {
	return &builder{g: graph.New()}
}

// add inserts a node of the given kind and returns a reference to it.
func (b *builder) add(kind graph.NodeKind, label string, data graph.NodeData, children ...graph.NodeID) *sexpNodeRef {
	b.seq++
	id := graph.NewNodeID(fmt.Sprintf("%s/%d", label, b.seq))
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Children: children, Data: data})
	return &sexpNodeRef{id: id, kind: label}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// Source must be preprocessed with preprocessSource() so that :keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	zero := 0.0

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: graph.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (sphere 2) or (sphere :radius 2)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.number("radius", 0, nil)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		return b.add(graph.NodePrimitive, "sphere", graph.PrimitiveData{PrimKind: graph.PrimSphere, Radius: r}), nil
	})

	// (box 4 2 1 :round 0.1) or (box :size (vec3 4 2 1))
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := graph.PrimitiveData{PrimKind: graph.PrimBox}
		if v, ok := pa.kw["size"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			d.Size = vec
		} else {
			if len(pa.positional) != 3 {
				return zygo.SexpNull, fmt.Errorf("box requires :size or 3 dimensions, got %d", len(pa.positional))
			}
			var c [3]float64
			for i, a := range pa.positional {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
				}
				c[i] = f
			}
			d.Size = graph.Vec3{X: c[0], Y: c[1], Z: c[2]}
		}
		round, err := pa.number("round", -1, &zero)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: round: %w", err)
		}
		d.Round = round
		return b.add(graph.NodePrimitive, "box", d), nil
	})

	// (cylinder 3 1) or (cylinder :height 3 :radius 1 :round 0.1)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := graph.PrimitiveData{PrimKind: graph.PrimCylinder}
		var err error
		if d.Height, err = pa.number("height", 0, nil); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		if d.Radius, err = pa.number("radius", 1, nil); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		if d.Round, err = pa.number("round", -1, &zero); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: round: %w", err)
		}
		return b.add(graph.NodePrimitive, "cylinder", d), nil
	})

	// (union a b ...), (difference a b ...), (intersection a b ...)
	for _, op := range []graph.BoolOp{graph.OpUnion, graph.OpDifference, graph.OpIntersection} {
		op := op
		want := 2
		if op == graph.OpUnion {
			want = 1
		}
		env.AddFunction(op.String(), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			ids, err := toNodeRefs(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			if len(ids) < want {
				return zygo.SexpNull, fmt.Errorf("%s requires at least %d solids, got %d", op, want, len(ids))
			}
			return b.add(graph.NodeBoolean, op.String(), graph.BooleanData{Op: op}, ids...), nil
		})
	}

	// (translate s :by (vec3 1 0 0)) or (translate s (vec3 1 0 0))
	// (rotate s :by (vec3 0 0 90)), angles in degrees
	for _, fn := range []string{"translate", "rotate"} {
		fn := fn
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid as first argument", fn)
			}
			child, err := toNodeRef(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			by, ok := pa.kw["by"]
			if !ok {
				if len(pa.positional) < 2 {
					return zygo.SexpNull, fmt.Errorf("%s requires :by (vec3 ...)", fn)
				}
				by = pa.positional[1]
			}
			vec, err := toVec3(by)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: by: %w", fn, err)
			}
			td := graph.TransformData{Translation: &vec}
			if fn == "rotate" {
				td = graph.TransformData{Rotation: &vec}
			}
			return b.add(graph.NodeTransform, fn, td, child), nil
		})
	}

	// (defsolid "name" expr)
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a solid")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		if b.g.Lookup(solidName) != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %q is already defined", solidName)
		}
		id, err := toNodeRef(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %w", err)
		}
		n := b.g.Get(id)
		if n.Name != "" {
			// Already named: alias through a single-operand union.
			ref := b.add(graph.NodeBoolean, "union", graph.BooleanData{Op: graph.OpUnion}, id)
			n = b.g.Get(ref.id)
		}
		n.Name = solidName
		b.g.NameIndex[solidName] = n.ID
		return &sexpNodeRef{id: n.ID, name: solidName}, nil
	})

	// (solid "name")
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		n := b.g.Lookup(solidName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", solidName)
		}
		return &sexpNodeRef{id: n.ID, name: solidName}, nil
	})

	// (scene a b ...) declares what gets rendered.
	env.AddFunction("scene", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := toNodeRefs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scene: %w", err)
		}
		if len(ids) == 0 {
			return zygo.SexpNull, fmt.Errorf("scene requires at least one solid")
		}
		for _, id := range ids {
			b.g.AddRoot(id)
		}
		return zygo.SexpNull, nil
	})
}
