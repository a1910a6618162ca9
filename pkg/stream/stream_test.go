package stream

import (
	"sync"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// tri builds a triangle whose vertices are tagged with id in Position.X.
func tri(id int) []Vertex {
	vs := make([]Vertex, 3)
	for i := range vs {
		vs[i].Position = v3.Vec{X: float64(id), Y: float64(i)}
		vs[i].Normal = v3.Vec{Z: 1}
	}
	return vs
}

func TestDrainSinceIdempotent(t *testing.T) {
	s := New()
	s.Append(tri(0)...)
	s.Append(tri(1)...)

	vs, cur := s.DrainSince(0)
	if len(vs) != 6 || cur != 6 {
		t.Fatalf("first drain: got %d vertices cursor %d, want 6/6", len(vs), cur)
	}
	vs, cur2 := s.DrainSince(cur)
	if len(vs) != 0 {
		t.Errorf("second drain returned %d vertices, want 0", len(vs))
	}
	if cur2 != cur {
		t.Errorf("cursor moved from %d to %d without an append", cur, cur2)
	}
}

func TestDrainSinceDeliversOnlyNew(t *testing.T) {
	s := New()
	s.Append(tri(0)...)
	_, cur := s.DrainSince(0)
	s.Append(tri(1)...)
	vs, cur := s.DrainSince(cur)
	if len(vs) != 3 || cur != 6 {
		t.Fatalf("got %d vertices cursor %d, want 3/6", len(vs), cur)
	}
	if vs[0].Position.X != 1 {
		t.Errorf("expected triangle 1, got %v", vs[0].Position)
	}
}

func TestDrainSinceClampsCursor(t *testing.T) {
	s := New()
	s.Append(tri(0)...)
	if vs, cur := s.DrainSince(-5); len(vs) != 3 || cur != 3 {
		t.Errorf("negative cursor: got %d/%d", len(vs), cur)
	}
	if vs, cur := s.DrainSince(99); len(vs) != 0 || cur != 3 {
		t.Errorf("cursor past end: got %d/%d", len(vs), cur)
	}
}

func TestAppendPartialTrianglePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for partial triangle")
		}
	}()
	New().Append(Vertex{}, Vertex{})
}

func TestAppendAfterClosePanics(t *testing.T) {
	s := New()
	s.Close()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for append after close")
		}
	}()
	s.Append(tri(0)...)
}

func TestCloseIdempotent(t *testing.T) {
	s := New()
	if s.Closed() {
		t.Fatal("new stream reports closed")
	}
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatal("stream not closed")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
}

// A concurrent consumer must see every vertex exactly once, in append order.
func TestConcurrentDrainSeesConsistentPrefix(t *testing.T) {
	const triangles = 5000
	s := New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.Close()
		for i := 0; i < triangles; i++ {
			s.Append(tri(i)...)
		}
	}()

	var got []Vertex
	cursor := 0
	for {
		closed := s.Closed()
		vs, next := s.DrainSince(cursor)
		if next < cursor {
			t.Fatalf("cursor went backwards: %d -> %d", cursor, next)
		}
		if next-cursor != len(vs) {
			t.Fatalf("cursor advanced %d for %d vertices", next-cursor, len(vs))
		}
		if next%3 != 0 {
			t.Fatalf("cursor %d is not triangle aligned", next)
		}
		got = append(got, vs...)
		cursor = next
		if closed && len(vs) == 0 {
			break
		}
	}
	wg.Wait()

	if len(got) != triangles*3 {
		t.Fatalf("received %d vertices, want %d", len(got), triangles*3)
	}
	for i, v := range got {
		if int(v.Position.X) != i/3 || int(v.Position.Y) != i%3 {
			t.Fatalf("vertex %d out of order: %v", i, v.Position)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	vs := []Vertex{{Position: v3.Vec{X: 1, Y: -2, Z: 3.5}, Normal: v3.Vec{X: 0, Y: 1, Z: 0}}}
	buf := Encode(vs)
	if len(buf) != VertexSize {
		t.Fatalf("encoded %d bytes, want %d", len(buf), VertexSize)
	}
	back := Decode(buf)
	if len(back) != 1 || back[0] != vs[0] {
		t.Errorf("decode mismatch: %+v", back)
	}
}
