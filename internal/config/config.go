package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all configurable paths and capture settings.
type Config struct {
	// Paths
	SessionRoot string `json:"session_root"`
	ExportDir   string `json:"export_dir"`
	PublicDir   string `json:"public_dir"`

	// Capture settings
	PlaneWidth  int     `json:"plane_width"`
	PlaneHeight int     `json:"plane_height"`
	CaptureHz   float64 `json:"capture_hz"`
	Near        float64 `json:"near"`
	Far         float64 `json:"far"`

	// Artifact settings
	VisualFormat string  `json:"visual_format"` // png, webp or tga
	VisualMin    float64 `json:"visual_min"`
	VisualMax    float64 `json:"visual_max"`
	RawQueue     int     `json:"raw_queue"`
	CloudStride  int     `json:"cloud_stride"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	SessionRoot string
	ExportDir   string
	PublicDir   string
	Width       int
	Height      int
	Rate        float64
	Format      string
}

// Resolve fills in any empty fields with defaults. CLI flags take priority
// when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.SessionRoot != "" {
		c.SessionRoot = flags.SessionRoot
	}
	if flags.ExportDir != "" {
		c.ExportDir = flags.ExportDir
	}
	if flags.PublicDir != "" {
		c.PublicDir = flags.PublicDir
	}
	if flags.Width > 0 {
		c.PlaneWidth = flags.Width
	}
	if flags.Height > 0 {
		c.PlaneHeight = flags.Height
	}
	if flags.Rate > 0 {
		c.CaptureHz = flags.Rate
	}
	if flags.Format != "" {
		c.VisualFormat = flags.Format
	}

	if c.SessionRoot == "" {
		c.SessionRoot = filepath.Join(".", "sessions")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(".", "exports")
	}
	if c.PlaneWidth <= 0 {
		c.PlaneWidth = 320
	}
	if c.PlaneHeight <= 0 {
		c.PlaneHeight = 240
	}
	if c.CaptureHz <= 0 {
		c.CaptureHz = 5
	}
	if c.Near <= 0 {
		c.Near = 0.1
	}
	if c.Far <= c.Near {
		c.Far = 3.0
	}
	if c.VisualFormat == "" {
		c.VisualFormat = "png"
	}
	if c.VisualMin <= 0 {
		c.VisualMin = 0.1
	}
	if c.VisualMax <= c.VisualMin {
		c.VisualMax = 3.0
	}
	if c.RawQueue <= 0 {
		c.RawQueue = 16
	}
	if c.CloudStride <= 0 {
		c.CloudStride = 8
	}
}
