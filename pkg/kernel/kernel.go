// Package kernel defines the abstract solid modeling interface scenes are
// built on. A backend turns primitives, booleans and transforms into a solid
// whose implicit field the extractor can sample.
package kernel

import "github.com/chazu/isoview/pkg/field"

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
// Primitives are centered on the origin.
type Kernel interface {
	// Primitives
	Sphere(radius float64) (Solid, error)
	Box(x, y, z, round float64) (Solid, error)
	Cylinder(height, radius, round float64) (Solid, error)

	// Boolean operations
	Union(solids ...Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Field returns the solid's signed distance: negative inside, zero on
	// the surface.
	Field(s Solid) field.Field
}

// Fit returns cubic grid bounds that enclose s with margin on every side.
func Fit(s Solid, margin float64) (min, max float64) {
	lo, hi := s.BoundingBox()
	min, max = lo[0], hi[0]
	for i := 1; i < 3; i++ {
		if lo[i] < min {
			min = lo[i]
		}
		if hi[i] > max {
			max = hi[i]
		}
	}
	return min - margin, max + margin
}
