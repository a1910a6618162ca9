package main

import (
	"github.com/chazu/isoview/pkg/batch"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Events the frontend listens for.
const (
	eventCreate = "batch:create"
	eventUpload = "batch:upload"
	eventDraw   = "batch:draw"
	eventReset  = "scene:reset"
	eventError  = "pipeline:error"
)

// emitFunc sends an event to the frontend.
type emitFunc func(event string, data ...interface{})

// BoundsEvent starts a new scene and carries the extent of the grid being
// extracted, for the bounding box overlay.
type BoundsEvent struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BufferEvent announces a new GPU buffer.
type BufferEvent struct {
	Handle batch.Handle `json:"handle"`
	Bytes  int          `json:"bytes"`
}

// UploadEvent carries packed vertices for a buffer range. Data is base64 on
// the wire.
type UploadEvent struct {
	Handle batch.Handle `json:"handle"`
	Offset int          `json:"offset"`
	Data   []byte       `json:"data"`
}

// DrawEvent sets how many vertices of a buffer the frontend draws.
type DrawEvent struct {
	Handle   batch.Handle `json:"handle"`
	Vertices int          `json:"vertices"`
}

// eventSink implements batch.Sink by forwarding buffer operations to the
// WebGL frontend. The frontend redraws on its own; draw events are only sent
// when a buffer's vertex count changes.
type eventSink struct {
	emit emitFunc

	// maxBuffers caps buffer creation; zero means no cap.
	maxBuffers int

	sizes map[batch.Handle]int
	drawn map[batch.Handle]int
}

func newEventSink(emit emitFunc, maxBuffers int) *eventSink {
	return &eventSink{
		emit:       emit,
		maxBuffers: maxBuffers,
		sizes:      make(map[batch.Handle]int),
		drawn:      make(map[batch.Handle]int),
	}
}

func (s *eventSink) CreateBuffer(byteCapacity int) (batch.Handle, error) {
	if s.maxBuffers > 0 && len(s.sizes) >= s.maxBuffers {
		return "", errors.Errorf("frontend buffer limit %d reached", s.maxBuffers)
	}
	h := batch.Handle(uuid.NewString())
	s.sizes[h] = byteCapacity
	s.emit(eventCreate, BufferEvent{Handle: h, Bytes: byteCapacity})
	return h, nil
}

func (s *eventSink) UploadRange(h batch.Handle, byteOffset int, data []byte) error {
	size, ok := s.sizes[h]
	if !ok {
		return errors.Errorf("unknown buffer %s", h)
	}
	if byteOffset < 0 || byteOffset+len(data) > size {
		return errors.Errorf("upload [%d, %d) exceeds buffer %s of %d bytes", byteOffset, byteOffset+len(data), h, size)
	}
	s.emit(eventUpload, UploadEvent{Handle: h, Offset: byteOffset, Data: data})
	return nil
}

func (s *eventSink) Draw(h batch.Handle, vertexCount int) error {
	if _, ok := s.sizes[h]; !ok {
		return errors.Errorf("unknown buffer %s", h)
	}
	if s.drawn[h] == vertexCount {
		return nil
	}
	s.drawn[h] = vertexCount
	s.emit(eventDraw, DrawEvent{Handle: h, Vertices: vertexCount})
	return nil
}
