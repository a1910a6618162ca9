package pipeline_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/isoview/pkg/batch"
	"github.com/chazu/isoview/pkg/config"
	"github.com/chazu/isoview/pkg/export"
	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/pipeline"
	"github.com/chazu/isoview/pkg/stream"
	"github.com/pkg/errors"
)

func sphereConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Field = "sphere"
	cfg.Min, cfg.Max, cfg.StepSize = -3, 3, 1
	cfg.BatchVertices = 30
	cfg.ExportPLY = filepath.Join(t.TempDir(), "mesh.ply")
	return cfg
}

// run drives frames like the render loop until the worker exits, then takes
// one last frame to pick up the tail.
func run(t *testing.T, p *pipeline.Pipeline) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		if err := p.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
		select {
		case <-p.Done():
			if err := p.Frame(); err != nil {
				t.Fatalf("final Frame: %v", err)
			}
			return
		case <-timeout:
			t.Fatal("pipeline did not finish")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := sphereConfig(t)
	sink := batch.NewMemorySink()
	p, err := pipeline.New(cfg, field.Sphere(2), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	run(t, p)

	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := p.ExportErr(); err != nil {
		t.Fatalf("ExportErr: %v", err)
	}

	st := p.Status()
	if !st.Done || st.Error != "" {
		t.Errorf("status = %+v, want done without error", st)
	}
	if st.Vertices != 312 || st.Triangles != 104 {
		t.Errorf("status counts = %d vertices / %d triangles, want 312 / 104", st.Vertices, st.Triangles)
	}
	if st.Uploaded != st.Vertices {
		t.Errorf("uploaded %d of %d vertices", st.Uploaded, st.Vertices)
	}
	// 312 vertices in batches of 30: ten sealed and one open holding 12.
	if st.Batches != 11 {
		t.Errorf("batches = %d, want 11", st.Batches)
	}

	// The sink holds exactly the stream, in order, at upload precision.
	var got []stream.Vertex
	for _, h := range sink.Handles() {
		got = append(got, stream.Decode(sink.Buffer(h)[:sink.Drawn(h)*stream.VertexSize])...)
	}
	want := stream.Decode(stream.Encode(p.Stream().Snapshot()))
	if len(got) != len(want) {
		t.Fatalf("sink holds %d vertices, stream %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vertex %d differs: %v vs %v", i, got[i], want[i])
		}
	}

	f, err := os.Open(cfg.ExportPLY)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	ply, err := export.ReadPLY(f)
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	if len(ply.Vertices) != 312 || len(ply.Faces) != 104 {
		t.Errorf("exported %d vertices / %d faces", len(ply.Vertices), len(ply.Faces))
	}
}

func TestPipelineConstantFieldExportsEmptyMesh(t *testing.T) {
	cfg := sphereConfig(t)
	p, err := pipeline.New(cfg, field.Constant(1), batch.NewMemorySink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	run(t, p)

	st := p.Status()
	if st.Vertices != 0 || st.Batches != 0 {
		t.Errorf("status = %+v, want no geometry and no batches", st)
	}
	data, err := os.ReadFile(cfg.ExportPLY)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := "ply\nformat ascii 1.0\nelement vertex 0\n"
	if string(data[:len(want)]) != want {
		t.Errorf("export starts %q, want %q", data[:len(want)], want)
	}
}

func TestPipelineExportErrorIsNotFatal(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.ExportPLY = filepath.Join(t.TempDir(), "missing", "mesh.ply")
	p, err := pipeline.New(cfg, field.Sphere(2), batch.NewMemorySink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	run(t, p)

	if err := p.Wait(); err != nil {
		t.Errorf("worker failed on export error: %v", err)
	}
	if err := p.ExportErr(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ExportErr = %v, want fs.ErrNotExist", err)
	}
	st := p.Status()
	if st.ExportErr == "" || st.Uploaded != 312 {
		t.Errorf("status = %+v, want export error and all geometry uploaded", st)
	}
}

func TestPipelineShutdownCancels(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.Min, cfg.Max, cfg.StepSize = -60, 60, 0.25
	p, err := pipeline.New(cfg, field.Sphere(50), batch.NewMemorySink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !p.Stream().Closed() {
		t.Error("stream should be closed after shutdown")
	}
	if _, err := os.Stat(cfg.ExportPLY); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("a cancelled run must not export, stat err = %v", err)
	}
	if !p.Status().Done {
		t.Error("status should report done after shutdown")
	}
}

func TestPipelineResourceExhaustion(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.ExportPLY = ""
	sink := batch.NewMemorySink()
	sink.MaxBuffers = 1
	p, err := pipeline.New(cfg, field.Sphere(2), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := p.Frame(); !errors.Is(err, batch.ErrResourceExhausted) {
		t.Fatalf("Frame = %v, want ErrResourceExhausted", err)
	}
	if got := p.Status().Uploaded; got != 30 {
		t.Errorf("uploaded %d, want the first full batch of 30", got)
	}
	// The batch that did reach the sink is still drawn.
	if h := sink.Handles()[0]; sink.Drawn(h) != 30 {
		t.Errorf("drawn %d vertices from %s, want 30", sink.Drawn(h), h)
	}
}

func TestPipelineDrawsWhenNextBufferFails(t *testing.T) {
	// The whole sphere fits one batch exactly, so sealing it asks for a
	// second buffer the sink cannot give.
	cfg := sphereConfig(t)
	cfg.ExportPLY = ""
	cfg.BatchVertices = 312
	sink := batch.NewMemorySink()
	sink.MaxBuffers = 1
	p, err := pipeline.New(cfg, field.Sphere(2), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := p.Frame(); !errors.Is(err, batch.ErrResourceExhausted) {
		t.Fatalf("Frame = %v, want ErrResourceExhausted", err)
	}
	handles := sink.Handles()
	if len(handles) != 1 {
		t.Fatalf("sink has %d buffers, want 1", len(handles))
	}
	if got := sink.Drawn(handles[0]); got != 312 {
		t.Errorf("drawn %d vertices, want all 312", got)
	}
}

func TestPipelineLifecycleErrors(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.StepSize = 0
	if _, err := pipeline.New(cfg, field.Sphere(2), batch.NewMemorySink()); err == nil {
		t.Error("expected config error")
	}

	cfg = sphereConfig(t)
	if _, err := pipeline.New(cfg, nil, batch.NewMemorySink()); err == nil {
		t.Error("expected nil field error")
	}

	p, err := pipeline.New(cfg, field.Sphere(2), batch.NewMemorySink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Done() != nil {
		t.Error("Done before Start should be nil")
	}
	if err := p.Wait(); err == nil {
		t.Error("Wait before Start should fail")
	}
	if err := p.Shutdown(); err != nil {
		t.Errorf("Shutdown before Start = %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	if err := p.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}
