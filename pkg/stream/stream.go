// Package stream holds the growing vertex sequence shared between the
// extraction worker, which appends to it, and the render loop, which drains
// it once per frame.
package stream

import (
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vertex is one corner of a flat-shaded triangle. Every run of three
// consecutive vertices in a Stream forms a triangle sharing one normal.
type Vertex struct {
	Position v3.Vec
	Normal   v3.Vec
}

// Stream is an append-only vertex sequence. It is safe for one producer and
// any number of readers; each reader keeps its own cursor.
type Stream struct {
	mu       sync.Mutex
	vertices []Vertex
	closed   bool
	done     chan struct{}
}

// New returns an empty stream.
func New() *Stream {
	return &Stream{done: make(chan struct{})}
}

// Append adds whole triangles to the stream under one lock. len(vs) must be a
// multiple of 3.
func (s *Stream) Append(vs ...Vertex) {
	if len(vs)%3 != 0 {
		panic("stream: partial triangle")
	}
	if len(vs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("stream: append after close")
	}
	s.vertices = append(s.vertices, vs...)
}

// DrainSince returns the vertices appended after cursor and the cursor to
// pass on the next call. Vertices are never modified once appended, so the
// returned slice stays valid while the producer keeps appending. A cursor
// outside [0, Len()] is clamped.
func (s *Stream) DrainSince(cursor int) ([]Vertex, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.vertices)
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= n {
		return nil, n
	}
	return s.vertices[cursor:n:n], n
}

// Len returns the number of vertices appended so far.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vertices)
}

// Snapshot returns every vertex appended so far. Once the stream is closed
// the snapshot is the complete, immutable mesh.
func (s *Stream) Snapshot() []Vertex {
	vs, _ := s.DrainSince(0)
	return vs
}

// Close marks the stream complete. Further appends panic. Close is
// idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Closed reports whether the producer has finished.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done is closed when the producer finishes.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}
