package kernel

import (
	"testing"

	"github.com/chazu/isoview/pkg/field"
)

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Sphere(r float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-r, -r, -r}, maxBB: [3]float64{r, r, r}}, nil
}

func (k *stubKernel) Box(x, y, z, _ float64) (Solid, error) {
	return &stubSolid{
		minBB: [3]float64{-x / 2, -y / 2, -z / 2},
		maxBB: [3]float64{x / 2, y / 2, z / 2},
	}, nil
}

func (k *stubKernel) Cylinder(height, radius, _ float64) (Solid, error) {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -height / 2},
		maxBB: [3]float64{radius, radius, height / 2},
	}, nil
}

func (k *stubKernel) Union(s ...Solid) Solid          { return s[0] }
func (k *stubKernel) Difference(a, _ Solid) Solid     { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid   { return a }
func (k *stubKernel) Field(_ Solid) field.Field       { return field.Constant(1) }
func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(10, 20, 30, 0)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{-5, -10, -15} {
		t.Errorf("Box min = %v, want [-5 -10 -15]", min)
	}
	if max != [3]float64{5, 10, 15} {
		t.Errorf("Box max = %v, want [5 10 15]", max)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		solid        Solid
		margin       float64
		wantMin, wantMax float64
	}{
		{"cube", &stubSolid{[3]float64{-1, -1, -1}, [3]float64{1, 1, 1}}, 0, -1, 1},
		{"tall", &stubSolid{[3]float64{-1, -4, 0}, [3]float64{1, 2, 3}}, 0, -4, 3},
		{"margin", &stubSolid{[3]float64{0, 0, 0}, [3]float64{2, 1, 1}}, 0.5, -0.5, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := Fit(tt.solid, tt.margin)
			if min != tt.wantMin || max != tt.wantMax {
				t.Errorf("Fit() = [%v, %v], want [%v, %v]", min, max, tt.wantMin, tt.wantMax)
			}
		})
	}
}
