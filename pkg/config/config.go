// Package config holds the viewer settings, read from a JSON file.
package config

import (
	"encoding/json"
	"math"
	"os"

	"github.com/chazu/isoview/pkg/batch"
	"github.com/chazu/isoview/pkg/extract"
	"github.com/pkg/errors"
)

// Config stores the viewer settings.
type Config struct {
	// Window
	WindowWidth  int    `json:"window_width"`
	WindowHeight int    `json:"window_height"`
	WindowTitle  string `json:"window_title"`

	// Field source. Scene, when set, wins over Field.
	Field    string `json:"field"`
	Scene    string `json:"scene"`
	FitScene bool   `json:"fit_scene"` // replace min/max with bounds around the scene

	// Extraction
	Isovalue       float64 `json:"isovalue"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	StepSize       float64 `json:"step_size"`
	DropDegenerate bool    `json:"drop_degenerate"`

	// Rendering
	BatchVertices int `json:"batch_vertices"`
	MaxBuffers    int `json:"max_buffers"` // zero means no limit
	FrameRate     int `json:"frame_rate"`

	// Export; empty paths disable the format.
	ExportPLY string `json:"export_ply"`
	ExportSTL string `json:"export_stl"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		WindowWidth:  1280,
		WindowHeight: 720,
		WindowTitle:  "isoview",

		Field: "waves",

		Isovalue: 0,
		Min:      -5,
		Max:      5,
		StepSize: 0.065,

		BatchVertices: batch.DefaultCapacity,
		FrameRate:     60,

		ExportPLY: "mesh.ply",
	}
}

// Load reads settings from a JSON file on top of the defaults. A missing
// file yields the defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Save writes the settings to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: encode")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "config: write %s", path)
}

// Params returns the extraction parameters.
func (c *Config) Params() extract.Params {
	return extract.Params{
		Isovalue:       c.Isovalue,
		Min:            c.Min,
		Max:            c.Max,
		StepSize:       c.StepSize,
		DropDegenerate: c.DropDegenerate,
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.Isovalue) || math.IsInf(c.Isovalue, 0) {
		return errors.Errorf("isovalue %v is not finite", c.Isovalue)
	}
	if c.BatchVertices <= 0 || c.BatchVertices%3 != 0 {
		return errors.Errorf("batch_vertices %d is not a positive multiple of 3", c.BatchVertices)
	}
	if c.MaxBuffers < 0 {
		return errors.Errorf("max_buffers %d must not be negative", c.MaxBuffers)
	}
	if c.FrameRate <= 0 {
		return errors.Errorf("frame_rate %d must be positive", c.FrameRate)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return errors.Errorf("window size %dx%d must be positive", c.WindowWidth, c.WindowHeight)
	}
	if c.Scene == "" && c.Field == "" {
		return errors.New("one of field or scene must be set")
	}
	return nil
}
