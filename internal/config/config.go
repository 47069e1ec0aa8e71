package config

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/menta2k/frame-compositor/pkg/analyzer"
	"github.com/menta2k/frame-compositor/pkg/batch"
	"github.com/menta2k/frame-compositor/pkg/placer"
	"github.com/menta2k/frame-compositor/pkg/processing"
)

// Config holds the application configuration
type Config struct {
	Input      InputConfig      `json:"input"`
	Compositor CompositorConfig `json:"compositor"`
	Output     OutputConfig     `json:"output"`
	Workers    int              `json:"workers"`
}

// InputConfig holds the input directories and the file extensions they are scanned for
type InputConfig struct {
	SubjectDir      string   `json:"subject_dir"`
	TemplateDir     string   `json:"template_dir"`
	SubjectFormats  []string `json:"subject_formats"`
	TemplateFormats []string `json:"template_formats"`
	AutoOrient      bool     `json:"auto_orient"`
}

// CompositorConfig holds configuration for region detection and placement
type CompositorConfig struct {
	Filter    string `json:"filter"`
	Anchor    string `json:"anchor"`
	MinRegion int    `json:"min_region"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir   string `json:"output_dir"`
	JPEGQuality int    `json:"jpeg_quality"`
	WebPQuality int    `json:"webp_quality"`
	Lossless    bool   `json:"lossless"`
	Debug       bool   `json:"debug"`
	Report      string `json:"report"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Input: InputConfig{
			SubjectDir:      "kids",
			TemplateDir:     "templates",
			SubjectFormats:  []string{"jpg"},
			TemplateFormats: []string{"png"},
			AutoOrient:      false,
		},
		Compositor: CompositorConfig{
			Filter:    "gaussian",
			Anchor:    "center",
			MinRegion: 1,
		},
		Output: OutputConfig{
			OutputDir:   "resultado",
			JPEGQuality: 95,
			WebPQuality: 90,
			Lossless:    true,
			Debug:       false,
			Report:      "",
		},
		Workers: 0,
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.SubjectDir == "" || c.Input.TemplateDir == "" {
		return fmt.Errorf("input.subject_dir and input.template_dir are required")
	}

	if len(c.Input.SubjectFormats) == 0 {
		return fmt.Errorf("input.subject_formats cannot be empty")
	}

	if len(c.Input.TemplateFormats) == 0 {
		return fmt.Errorf("input.template_formats cannot be empty")
	}

	if _, err := placer.ParseFilter(c.Compositor.Filter); err != nil {
		return fmt.Errorf("compositor.filter: %w", err)
	}

	if _, err := placer.ParseAnchor(c.Compositor.Anchor); err != nil {
		return fmt.Errorf("compositor.anchor: %w", err)
	}

	if c.Compositor.MinRegion < 1 {
		return fmt.Errorf("compositor.min_region must be positive")
	}

	if c.Output.OutputDir == "" {
		return fmt.Errorf("output.output_dir is required")
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	if c.Output.WebPQuality < 0 || c.Output.WebPQuality > 100 {
		return fmt.Errorf("output.webp_quality must be between 0 and 100")
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}

	return nil
}

// AnalyzerConfig converts the configuration into analyzer settings
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{MinRegionSize: c.Compositor.MinRegion}
}

// PlacerConfig converts the configuration into placement settings.
// Call Validate first; unknown names fall back to the defaults.
func (c *Config) PlacerConfig() placer.Config {
	cfg := placer.Config{}
	if f, err := placer.ParseFilter(c.Compositor.Filter); err == nil {
		cfg.Filter = f
	}
	if a, err := placer.ParseAnchor(c.Compositor.Anchor); err == nil {
		cfg.Anchor = a
	}
	return cfg
}

// ProcessorConfig converts the configuration into decoder settings
func (c *Config) ProcessorConfig() processing.Config {
	return processing.Config{AutoOrient: c.Input.AutoOrient}
}

// BatchOptions converts the configuration into batch run options
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		SubjectDir:      c.Input.SubjectDir,
		TemplateDir:     c.Input.TemplateDir,
		OutputDir:       c.Output.OutputDir,
		SubjectFormats:  c.Input.SubjectFormats,
		TemplateFormats: c.Input.TemplateFormats,
		Workers:         c.Workers,
		Save: processing.SaveOptions{
			JPEGQuality:    c.Output.JPEGQuality,
			WebPQuality:    c.Output.WebPQuality,
			Lossless:       c.Output.Lossless,
			PNGCompression: png.DefaultCompression,
		},
		Debug: c.Output.Debug,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "frame-compositor", "config.json")
}
