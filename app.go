package main

import (
	"context"
	"log"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/chazu/isoview/pkg/batch"
	"github.com/chazu/isoview/pkg/config"
	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// App is the Wails backend. It exposes methods to the frontend via bindings
// and owns the pipeline currently on screen.
type App struct {
	ctx  context.Context
	cfg  *config.Config
	emit emitFunc

	// runMu serializes pipeline replacement.
	runMu sync.Mutex

	mu        sync.Mutex
	pipe      *pipeline.Pipeline
	stop      chan struct{}
	loopDone  chan struct{}
	renderErr error
}

// EvalErrorData is a JSON-serializable scene error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is returned to the frontend when it submits a scene.
type EvalResult struct {
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App. Until Wails calls startup, events are dropped.
func NewApp(cfg *config.Config) *App {
	return &App{
		cfg:  cfg,
		emit: func(string, ...interface{}) {},
	}
}

// startup is called by Wails on app startup. It begins extracting the
// configured field.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(event string, data ...interface{}) {
		runtime.EventsEmit(ctx, event, data...)
	}

	cfg := *a.cfg
	f, err := pipeline.ResolveField(&cfg)
	if err != nil {
		log.Printf("[app] %v", err)
		a.emit(eventError, err.Error())
		return
	}
	if err := a.run(&cfg, f); err != nil {
		log.Printf("[app] %v", err)
		a.emit(eventError, err.Error())
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if err := a.stopPipeline(); err != nil {
		log.Printf("[app] shutdown: %v", err)
	}
}

// Evaluate compiles scene source and, if it is usable, replaces the
// pipeline on screen. This is the binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	cfg := *a.cfg
	cfg.Scene = ""
	f, warnings, err := pipeline.SceneField(&cfg, source)
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}
	if err != nil {
		var se *pipeline.SceneError
		if !errors.As(err, &se) {
			// Fatal error (panic, timeout, etc.)
			log.Printf("[app] evaluate: %v", err)
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
			return result
		}
		for _, e := range se.Eval {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		for _, v := range se.Invalid {
			result.Errors = append(result.Errors, EvalErrorData{Message: v.Error()})
		}
		return result
	}

	if err := a.run(&cfg, f); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	return result
}

// LoadPreset replaces the pipeline with one of the built-in fields.
func (a *App) LoadPreset(name string) EvalResult {
	result := EvalResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	f, err := field.Named(name)
	if err == nil {
		cfg := *a.cfg
		cfg.Scene, cfg.Field = "", name
		err = a.run(&cfg, f)
	}
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	return result
}

// Presets lists the built-in field names.
func (a *App) Presets() []string {
	return field.Presets()
}

// Status reports progress of the pipeline on screen.
func (a *App) Status() pipeline.Status {
	a.mu.Lock()
	p, renderErr := a.pipe, a.renderErr
	a.mu.Unlock()
	if p == nil {
		return pipeline.Status{}
	}
	st := p.Status()
	if renderErr != nil && st.Error == "" {
		st.Error = renderErr.Error()
	}
	return st
}

// run stops the current pipeline and starts a new one for f.
func (a *App) run(cfg *config.Config, f field.Field) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if err := a.stopPipeline(); err != nil {
		log.Printf("[app] stopping previous pipeline: %v", err)
	}

	sink := newEventSink(a.emit, cfg.MaxBuffers)
	p, err := pipeline.New(cfg, f, sink)
	if err != nil {
		return err
	}
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	a.emit(eventReset, sceneBounds(cfg))
	if err := p.Start(ctx); err != nil {
		return err
	}

	stop, done := make(chan struct{}), make(chan struct{})
	a.mu.Lock()
	a.pipe, a.stop, a.loopDone, a.renderErr = p, stop, done, nil
	a.mu.Unlock()

	go a.renderLoop(p, cfg.FrameRate, stop, done)
	return nil
}

// renderLoop is the only caller of Frame, and with it of every sink method.
// It stays on one OS thread for its lifetime.
func (a *App) renderLoop(p *pipeline.Pipeline, fps int, stop <-chan struct{}, done chan<- struct{}) {
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var reported frameErrors
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := p.Frame()
			if reported.changed(err) {
				a.mu.Lock()
				a.renderErr = err
				a.mu.Unlock()
				if err != nil {
					log.Printf("[render] %v", err)
					a.emit(eventError, err.Error())
				}
			}
			if errors.Is(err, batch.ErrResourceExhausted) {
				return
			}
		}
	}
}

// frameErrors remembers the last frame's error so a failure that repeats
// every tick is reported once.
type frameErrors struct {
	last string
}

// changed records err and reports whether it differs from the previous
// frame's outcome. A nil err after a failure counts as a change.
func (f *frameErrors) changed(err error) bool {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == f.last {
		return false
	}
	f.last = msg
	return true
}

// sceneBounds is the extent the grid actually covers; the last cell may run
// past cfg.Max.
func sceneBounds(cfg *config.Config) BoundsEvent {
	params := cfg.Params()
	return BoundsEvent{
		Min: params.Min,
		Max: params.Min + float64(params.Steps())*params.StepSize,
	}
}

// stopPipeline halts the render loop, then cancels and joins the worker.
func (a *App) stopPipeline() error {
	a.mu.Lock()
	p, stop, done := a.pipe, a.stop, a.loopDone
	a.pipe, a.stop, a.loopDone = nil, nil, nil
	a.mu.Unlock()

	if p == nil {
		return nil
	}
	close(stop)
	<-done
	return p.Shutdown()
}
