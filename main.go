package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/chazu/isoview/pkg/batch"
	"github.com/chazu/isoview/pkg/config"
	"github.com/chazu/isoview/pkg/pipeline"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configPath := flag.String("config", "isoview.json", "path to the JSON settings file")
	headless := flag.Bool("headless", false, "extract and export without opening a window")
	scene := flag.String("scene", "", "Lisp scene file; overrides -field")
	fieldName := flag.String("field", "", "built-in field: sphere, waves, lattice or empty")
	step := flag.Float64("step", 0, "grid step size")
	out := flag.String("out", "", "PLY export path")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Flags override the saved settings.
	if *fieldName != "" {
		cfg.Field, cfg.Scene = *fieldName, ""
	}
	if *scene != "" {
		cfg.Scene = *scene
	}
	if *step > 0 {
		cfg.StepSize = *step
	}
	if *out != "" {
		cfg.ExportPLY = *out
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if *headless {
		if err := runHeadless(cfg); err != nil {
			log.Fatalf("headless: %v", err)
		}
		return
	}

	app := NewApp(cfg)
	err = wails.Run(&options.App{
		Title:  cfg.WindowTitle,
		Width:  cfg.WindowWidth,
		Height: cfg.WindowHeight,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatalf("wails: %v", err)
	}
}

// runHeadless drives the pipeline against an in-memory sink at the
// configured frame rate until extraction and export finish. Interrupt
// cancels the worker.
func runHeadless(cfg *config.Config) error {
	f, err := pipeline.ResolveField(cfg)
	if err != nil {
		return err
	}
	sink := batch.NewMemorySink()
	sink.MaxBuffers = cfg.MaxBuffers
	p, err := pipeline.New(cfg, f, sink)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := p.Start(ctx); err != nil {
		return err
	}

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-p.Done():
			done = true
		case <-ticker.C:
		}
		if err := p.Frame(); err != nil {
			_ = p.Shutdown()
			return err
		}
	}
	if err := p.Wait(); err != nil {
		return err
	}

	st := p.Status()
	log.Printf("[headless] %d triangles in %d batches (%d degenerate) in %s",
		st.Triangles, st.Batches, st.Degenerate, time.Since(start).Round(time.Millisecond))
	if err := p.ExportErr(); err != nil {
		log.Printf("[headless] export: %v", err)
	}
	return nil
}
