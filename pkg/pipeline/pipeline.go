// Package pipeline wires a field, the extraction worker, the vertex stream
// and the batch manager into one object owned by the caller. Nothing here is
// global: a process may run several pipelines side by side.
package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/chazu/isoview/pkg/batch"
	"github.com/chazu/isoview/pkg/config"
	"github.com/chazu/isoview/pkg/export"
	"github.com/chazu/isoview/pkg/extract"
	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/mctable"
	"github.com/chazu/isoview/pkg/stream"
	"github.com/pkg/errors"
)

// Status is a point-in-time progress report, serialized for the frontend.
type Status struct {
	Vertices   int    `json:"vertices"`
	Uploaded   int    `json:"uploaded"`
	Batches    int    `json:"batches"`
	Triangles  int    `json:"triangles"`
	Degenerate int    `json:"degenerate"`
	Done       bool   `json:"done"`
	Error      string `json:"error,omitempty"`
	ExportErr  string `json:"exportError,omitempty"`
}

// Pipeline runs one extraction and feeds its output to a render sink.
//
// Frame must only be called from the render loop; every other method is safe
// to call from any goroutine.
type Pipeline struct {
	cfg     *config.Config
	field   field.Field
	stream  *stream.Stream
	ex      *extract.Extractor
	batches *batch.Manager

	mu        sync.Mutex
	task      *extract.Task
	exportErr error

	// copied from the batch manager after each frame
	uploaded   int
	batchCount int
}

// New prepares a pipeline. The worker does not run until Start.
func New(cfg *config.Config, f field.Field, sink batch.Sink) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "pipeline: config")
	}
	if f == nil {
		return nil, errors.New("pipeline: nil field")
	}
	ex, err := extract.New(mctable.Default(), cfg.Params())
	if err != nil {
		return nil, errors.Wrap(err, "pipeline")
	}
	s := stream.New()
	m, err := batch.NewManager(s, sink, cfg.BatchVertices)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline")
	}
	return &Pipeline{cfg: cfg, field: f, stream: s, ex: ex, batches: m}, nil
}

// Start launches the extraction worker. Export runs on the same worker once
// the scan completes. Starting twice is an error.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		return errors.New("pipeline: already started")
	}
	log.Printf("[pipeline] extracting %d^3 cells over [%g, %g)", p.cfg.Params().Steps(), p.cfg.Min, p.cfg.Max)
	p.task = extract.Start(ctx, p.ex, p.field, p.stream, p.export)
	return nil
}

// export writes the configured mesh files. Failures are logged and recorded
// but never fail the worker: rendering carries on without the file.
func (p *Pipeline) export(ctx context.Context, s *stream.Stream, st extract.Stats) error {
	log.Printf("[pipeline] extraction finished: %d cells, %d triangles (%d degenerate, %d dropped)",
		st.Cells, st.Triangles, st.Degenerate, st.Dropped)

	vs := s.Snapshot()
	var first error
	fail := func(err error) {
		log.Printf("[pipeline] export failed: %v", err)
		if first == nil {
			first = err
		}
	}
	if path := p.cfg.ExportPLY; path != "" {
		if err := export.SavePLY(path, vs); err != nil {
			fail(err)
		} else {
			log.Printf("[pipeline] wrote %d vertices to %s", len(vs), path)
		}
	}
	if path := p.cfg.ExportSTL; path != "" && ctx.Err() == nil {
		if err := export.SaveSTL(path, vs); err != nil {
			fail(err)
		} else {
			log.Printf("[pipeline] wrote %d triangles to %s", len(vs)/3, path)
		}
	}
	if first != nil {
		p.mu.Lock()
		p.exportErr = first
		p.mu.Unlock()
	}
	return nil
}

// Frame uploads whatever the worker produced since the previous frame and
// draws every non-empty batch. Batches are drawn even when the upload failed
// part way, so geometry that reached the sink is always shown; the upload
// error is returned in preference to a draw error.
func (p *Pipeline) Frame() error {
	drainErr := p.batches.Drain()
	p.mu.Lock()
	p.uploaded = p.batches.Uploaded()
	p.batchCount = len(p.batches.Batches())
	p.mu.Unlock()

	drawErr := p.batches.Draw()
	if drainErr != nil {
		if drawErr != nil {
			log.Printf("[pipeline] draw after failed upload: %v", drawErr)
		}
		return drainErr
	}
	return drawErr
}

// Done is closed when the worker has exited, export included. It returns
// nil before Start.
func (p *Pipeline) Done() <-chan struct{} {
	t := p.currentTask()
	if t == nil {
		return nil
	}
	return t.Done()
}

// Wait blocks until the worker exits and returns its error.
func (p *Pipeline) Wait() error {
	t := p.currentTask()
	if t == nil {
		return errors.New("pipeline: not started")
	}
	return t.Join()
}

// Shutdown cancels the worker and waits for it. A cancelled extraction is
// not an error here.
func (p *Pipeline) Shutdown() error {
	t := p.currentTask()
	if t == nil {
		return nil
	}
	t.Cancel()
	if err := t.Join(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ExportErr returns the error recorded by the last export, if any.
func (p *Pipeline) ExportErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exportErr
}

// Stream exposes the vertex stream the worker appends to.
func (p *Pipeline) Stream() *stream.Stream {
	return p.stream
}

// Status reports progress. Upload counters are those of the last frame.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{
		Vertices:  p.stream.Len(),
		Uploaded:  p.uploaded,
		Batches:   p.batchCount,
		ExportErr: errString(p.exportErr),
	}
	p.mu.Unlock()
	if t := p.currentTask(); t != nil {
		select {
		case <-t.Done():
			st.Done = true
			st.Error = errString(t.Join())
		default:
		}
		stats := t.Stats()
		st.Triangles = stats.Triangles
		st.Degenerate = stats.Degenerate
	}
	return st
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (p *Pipeline) currentTask() *extract.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task
}
