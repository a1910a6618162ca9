// Package batch moves newly extracted vertices from a stream into
// fixed-capacity render buffers, one frame at a time.
//
// A Manager must be driven from a single goroutine, the one that owns the
// graphics context: every Sink call it makes happens on the caller's
// goroutine.
package batch

import (
	"github.com/chazu/isoview/pkg/stream"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// DefaultCapacity is the vertex capacity of one batch.
const DefaultCapacity = 30000

// ErrResourceExhausted is returned when the sink cannot allocate a buffer.
var ErrResourceExhausted = errors.New("batch: render sink could not allocate a buffer")

// Handle identifies a buffer owned by a Sink.
type Handle string

// Sink owns render buffers. Implementations are typically bound to a
// thread-affine graphics context; the Manager never calls them concurrently.
type Sink interface {
	// CreateBuffer allocates an empty buffer of byteCapacity bytes.
	CreateBuffer(byteCapacity int) (Handle, error)
	// UploadRange writes data into the buffer starting at byteOffset.
	UploadRange(h Handle, byteOffset int, data []byte) error
	// Draw renders the first vertexCount vertices of the buffer.
	Draw(h Handle, vertexCount int) error
}

// Batch is one render buffer and how much of it is filled.
type Batch struct {
	Handle   Handle
	Capacity int
	Occupied int
}

// Sealed reports whether the batch is full. Sealed batches are never
// written again.
func (b Batch) Sealed() bool {
	return b.Occupied == b.Capacity
}

// Manager drains a stream into batches.
type Manager struct {
	stream   *stream.Stream
	sink     Sink
	capacity int
	consumed int
	batches  []*Batch
}

// NewManager returns a manager that fills batches of capacity vertices.
// capacity must be a positive multiple of 3.
func NewManager(s *stream.Stream, sink Sink, capacity int) (*Manager, error) {
	if capacity <= 0 || capacity%3 != 0 {
		return nil, errors.Errorf("batch: capacity %d is not a positive multiple of 3", capacity)
	}
	if s == nil || sink == nil {
		return nil, errors.New("batch: nil stream or sink")
	}
	return &Manager{stream: s, sink: sink, capacity: capacity}, nil
}

// Drain uploads every vertex appended since the last drain. It fills the open
// batch up to capacity, seals it, opens the next one and continues; any
// remainder stays in the open batch. A frame with nothing new is a no-op.
//
// Counters advance only after the sink confirms an upload, so after an error
// the manager is consistent and the next Drain resumes where this one
// stopped.
func (m *Manager) Drain() error {
	vs, _ := m.stream.DrainSince(m.consumed)
	for len(vs) > 0 {
		b, err := m.open()
		if err != nil {
			return err
		}
		n := min(len(vs), b.Capacity-b.Occupied)
		if err := m.sink.UploadRange(b.Handle, b.Occupied*stream.VertexSize, stream.Encode(vs[:n])); err != nil {
			return errors.Wrapf(err, "batch: upload %d vertices to batch %d", n, len(m.batches)-1)
		}
		b.Occupied += n
		m.consumed += n
		vs = vs[n:]
		if b.Sealed() {
			if _, err := m.open(); err != nil {
				return err
			}
		}
	}
	return nil
}

// open returns the batch currently being filled, creating one when there is
// none or the last is sealed.
func (m *Manager) open() (*Batch, error) {
	if n := len(m.batches); n > 0 && !m.batches[n-1].Sealed() {
		return m.batches[n-1], nil
	}
	h, err := m.sink.CreateBuffer(m.capacity * stream.VertexSize)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceExhausted, "batch %d: %v", len(m.batches), err)
	}
	b := &Batch{Handle: h, Capacity: m.capacity}
	m.batches = append(m.batches, b)
	return b, nil
}

// Draw issues a draw call for every batch holding vertices.
func (m *Manager) Draw() error {
	for i, b := range m.batches {
		if b.Occupied == 0 {
			continue
		}
		if err := m.sink.Draw(b.Handle, b.Occupied); err != nil {
			return errors.Wrapf(err, "batch: draw batch %d", i)
		}
	}
	return nil
}

// Consumed returns the stream cursor: how many vertices have been uploaded.
func (m *Manager) Consumed() int {
	return m.consumed
}

// Uploaded returns the total occupancy of all batches. It always equals
// Consumed.
func (m *Manager) Uploaded() int {
	return lo.SumBy(m.batches, func(b *Batch) int { return b.Occupied })
}

// Capacity returns the per-batch vertex capacity.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Batches returns a copy of the batch list in creation order.
func (m *Manager) Batches() []Batch {
	return lo.Map(m.batches, func(b *Batch, _ int) Batch { return *b })
}
