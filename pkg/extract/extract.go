// Package extract walks a regular grid over a cubic volume, classifies each
// cell against an isovalue and appends the triangles the configuration table
// prescribes to a vertex stream.
package extract

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/mctable"
	"github.com/chazu/isoview/pkg/stream"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Params describes one extraction.
type Params struct {
	Isovalue float64
	Min      float64
	Max      float64
	StepSize float64

	// DropDegenerate removes zero-area triangles instead of emitting them
	// with a zero normal.
	DropDegenerate bool
}

// Validate checks that the grid is well formed and finite.
func (p Params) Validate() error {
	if !(p.StepSize > 0) || math.IsInf(p.StepSize, 0) {
		return fmt.Errorf("extract: step size must be positive and finite, got %v", p.StepSize)
	}
	if math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0) {
		return fmt.Errorf("extract: bounds must be finite, got [%v, %v)", p.Min, p.Max)
	}
	if !(p.Max > p.Min) {
		return fmt.Errorf("extract: max (%v) must exceed min (%v)", p.Max, p.Min)
	}
	// A step lost to rounding would never advance the walk.
	if p.Min+p.StepSize == p.Min || p.Max-p.StepSize == p.Max {
		return fmt.Errorf("extract: step size %v vanishes against bounds [%v, %v)", p.StepSize, p.Min, p.Max)
	}
	return nil
}

// Steps returns how many cells lie along one axis. The last cell may extend
// past Max when StepSize does not divide the range.
func (p Params) Steps() int {
	n := 0
	for p.Min+float64(n)*p.StepSize < p.Max {
		n++
	}
	return n
}

// Stats summarizes an extraction.
type Stats struct {
	Cells      int
	Triangles  int
	Degenerate int
	Dropped    int
}

// Extractor runs marching cubes with an injected configuration table.
type Extractor struct {
	table  *mctable.Table
	params Params
}

// New returns an extractor for params using table.
func New(table *mctable.Table, params Params) (*Extractor, error) {
	if table == nil {
		return nil, fmt.Errorf("extract: nil configuration table")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{table: table, params: params}, nil
}

// Params returns the extraction parameters.
func (e *Extractor) Params() Params {
	return e.params
}

// Extract scans the grid in z, x, y order and appends every triangle to s,
// one cell per lock. It blocks until the scan completes or ctx is done,
// checking ctx between cells. It does not close s.
func (e *Extractor) Extract(ctx context.Context, f field.Field, s *stream.Stream) (Stats, error) {
	var st Stats
	p := e.params
	n := p.Steps()
	cell := make([]stream.Vertex, 0, mctable.MaxTriangles*3)
	done := ctx.Done()

	for k := 0; k < n; k++ {
		z := p.Min + float64(k)*p.StepSize
		for i := 0; i < n; i++ {
			x := p.Min + float64(i)*p.StepSize
			for j := 0; j < n; j++ {
				select {
				case <-done:
					return st, ctx.Err()
				default:
				}
				y := p.Min + float64(j)*p.StepSize
				cell = e.march(cell[:0], f, v3.Vec{X: x, Y: y, Z: z}, &st)
				s.Append(cell...)
				st.Cells++
			}
		}
	}
	return st, nil
}

// Classify samples the 8 corners of the cell at origin and returns the
// corner mask: bit i is set when corner i lies below the isovalue.
func (e *Extractor) Classify(f field.Field, origin v3.Vec) uint8 {
	var mask uint8
	step := e.params.StepSize
	for i, c := range mctable.Corners {
		v := f(origin.X+step*c[0], origin.Y+step*c[1], origin.Z+step*c[2])
		if v < e.params.Isovalue {
			mask |= 1 << i
		}
	}
	return mask
}

// march appends the triangles of one cell to dst.
func (e *Extractor) march(dst []stream.Vertex, f field.Field, origin v3.Vec, st *Stats) []stream.Vertex {
	mask := e.Classify(f, origin)
	step := e.params.StepSize
	for _, tri := range e.table.Triangles(mask) {
		var p [3]v3.Vec
		for k, idx := range tri {
			t := e.table.Position(idx)
			p[k] = v3.Vec{
				X: origin.X + step*t[0],
				Y: origin.Y + step*t[1],
				Z: origin.Z + step*t[2],
			}
		}
		n, ok := Normal(p[0], p[1], p[2])
		if !ok {
			st.Degenerate++
			if e.params.DropDegenerate {
				st.Dropped++
				continue
			}
		}
		dst = append(dst,
			stream.Vertex{Position: p[0], Normal: n},
			stream.Vertex{Position: p[1], Normal: n},
			stream.Vertex{Position: p[2], Normal: n},
		)
		st.Triangles++
	}
	return dst
}

// Normal returns the unit normal of the counter-clockwise triangle a, b, c,
// i.e. normalize((b-a) x (c-a)). A zero-area triangle yields the zero vector
// and false.
func Normal(a, b, c v3.Vec) (v3.Vec, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}, false
	}
	return n.MulScalar(1 / l), true
}
