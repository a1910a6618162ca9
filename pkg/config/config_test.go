package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Min != -5 || cfg.Max != 5 || cfg.StepSize != 0.065 {
		t.Errorf("grid defaults = [%v, %v] step %v", cfg.Min, cfg.Max, cfg.StepSize)
	}
	if cfg.BatchVertices != 30000 || cfg.ExportPLY != "mesh.ply" {
		t.Errorf("batch %d export %q", cfg.BatchVertices, cfg.ExportPLY)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"field": "sphere", "step_size": 0.5, "export_ply": ""}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Field != "sphere" || cfg.StepSize != 0.5 || cfg.ExportPLY != "" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.FrameRate != 60 {
		t.Errorf("unset field lost its default: frame_rate %d", cfg.FrameRate)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"field": `},
		{"zero step", `{"step_size": 0}`},
		{"inverted bounds", `{"min": 3, "max": -3}`},
		{"odd batch", `{"batch_vertices": 100}`},
		{"negative buffer cap", `{"max_buffers": -1}`},
		{"no source", `{"field": "", "scene": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Scene = "scenes/bracket.lisp"
	cfg.FitScene = true
	cfg.ExportSTL = "out.stl"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip: got %+v, want %+v", got, cfg)
	}
}

func TestParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Isovalue = 0.25
	cfg.DropDegenerate = true
	p := cfg.Params()
	if p.Isovalue != 0.25 || !p.DropDegenerate || p.StepSize != cfg.StepSize {
		t.Errorf("Params() = %+v", p)
	}
}
