package batch

import (
	"fmt"

	"github.com/pkg/errors"
)

// MemorySink is a Sink that keeps buffers in memory. It stands in for a GPU
// when running headless and in tests. It is not safe for concurrent use,
// matching the single-thread contract of real sinks.
type MemorySink struct {
	// MaxBuffers limits how many buffers CreateBuffer will hand out; zero
	// means no limit.
	MaxBuffers int

	buffers map[Handle][]byte
	order   []Handle
	draws   map[Handle]int
	uploads int
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		buffers: make(map[Handle][]byte),
		draws:   make(map[Handle]int),
	}
}

// CreateBuffer implements Sink.
func (s *MemorySink) CreateBuffer(byteCapacity int) (Handle, error) {
	if s.MaxBuffers > 0 && len(s.order) >= s.MaxBuffers {
		return "", errors.Errorf("memory sink: buffer limit %d reached", s.MaxBuffers)
	}
	h := Handle(fmt.Sprintf("mem-%d", len(s.order)))
	s.buffers[h] = make([]byte, byteCapacity)
	s.order = append(s.order, h)
	return h, nil
}

// UploadRange implements Sink.
func (s *MemorySink) UploadRange(h Handle, byteOffset int, data []byte) error {
	buf, ok := s.buffers[h]
	if !ok {
		return errors.Errorf("memory sink: unknown buffer %q", h)
	}
	if byteOffset < 0 || byteOffset+len(data) > len(buf) {
		return errors.Errorf("memory sink: range [%d, %d) exceeds buffer %q of %d bytes",
			byteOffset, byteOffset+len(data), h, len(buf))
	}
	copy(buf[byteOffset:], data)
	s.uploads++
	return nil
}

// Draw implements Sink. It records the vertex count of the latest draw.
func (s *MemorySink) Draw(h Handle, vertexCount int) error {
	if _, ok := s.buffers[h]; !ok {
		return errors.Errorf("memory sink: unknown buffer %q", h)
	}
	s.draws[h] = vertexCount
	return nil
}

// Buffer returns the contents of a buffer.
func (s *MemorySink) Buffer(h Handle) []byte {
	return s.buffers[h]
}

// Handles returns buffer handles in creation order.
func (s *MemorySink) Handles() []Handle {
	return append([]Handle(nil), s.order...)
}

// Drawn returns the vertex count last drawn from h.
func (s *MemorySink) Drawn(h Handle) int {
	return s.draws[h]
}

// Uploads returns how many UploadRange calls succeeded.
func (s *MemorySink) Uploads() int {
	return s.uploads
}
