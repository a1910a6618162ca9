package extract

import (
	"context"
	"sync"

	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/stream"
	"golang.org/x/sync/errgroup"
)

// AfterFunc runs on the worker once extraction has completed without being
// cancelled. It receives the closed, immutable stream.
type AfterFunc func(ctx context.Context, s *stream.Stream, st Stats) error

// Task is a handle to an extraction running on its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats Stats
	err   error
}

// Start runs ex on a worker goroutine. The stream is closed when the scan
// ends, whether it finished or was cancelled; after, if non-nil, then runs on
// the same worker for a completed scan only.
func Start(ctx context.Context, ex *Extractor, f field.Field, s *stream.Stream, after AfterFunc) *Task {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	g.Go(func() error {
		st, err := ex.Extract(gctx, f, s)
		s.Close()
		t.mu.Lock()
		t.stats = st
		t.mu.Unlock()
		if err != nil {
			return err
		}
		if after != nil {
			return after(gctx, s, st)
		}
		return nil
	})

	go func() {
		err := g.Wait()
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		cancel()
		close(t.done)
	}()
	return t
}

// Cancel asks the worker to stop at the next cell boundary. It does not wait.
func (t *Task) Cancel() {
	t.cancel()
}

// Join waits for the worker to exit and returns its error, which is
// context.Canceled when the task was cancelled.
func (t *Task) Join() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the worker has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Stats returns the extraction statistics once the scan has ended.
func (t *Task) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
