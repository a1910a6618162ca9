// Package field defines the scalar fields the extractor samples: a pure
// function from a point in space to a real value.
package field

import (
	"fmt"
	"math"
	"sort"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Field maps a point to a scalar. It must be total and free of side effects;
// the extractor calls it from a single worker goroutine.
type Field func(x, y, z float64) float64

// Sphere is x² + y² + z² − r²: negative inside a sphere of radius r.
func Sphere(r float64) Field {
	r2 := r * r
	return func(x, y, z float64) float64 {
		return x*x + y*y + z*z - r2
	}
}

// Waves is the rolling height field 0.25y − sin(x)cos(z).
func Waves(x, y, z float64) float64 {
	return 0.25*y - math.Sin(x)*math.Cos(z)
}

// Lattice is sin(x)cos(y)sin(z), a periodic egg-crate surface.
func Lattice(x, y, z float64) float64 {
	return math.Sin(x) * math.Cos(y) * math.Sin(z)
}

// Constant returns a field with the same value everywhere.
func Constant(v float64) Field {
	return func(x, y, z float64) float64 { return v }
}

// FromSDF3 samples a signed distance function. Points inside the solid are
// negative, so an isovalue of 0 extracts its surface.
func FromSDF3(s sdf.SDF3) Field {
	return func(x, y, z float64) float64 {
		return s.Evaluate(v3.Vec{X: x, Y: y, Z: z})
	}
}

var presets = map[string]Field{
	"sphere":  Sphere(2),
	"waves":   Waves,
	"lattice": Lattice,
	"empty":   Constant(1),
}

// Named returns a preset field by name.
func Named(name string) (Field, error) {
	f, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("field: unknown preset %q (have %v)", name, Presets())
	}
	return f, nil
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
