// Package config provides configuration loading and management for imagetodata.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"imagetodata/internal/models"
	"imagetodata/pkg/quantize"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Classification parameters
	Classify struct {
		// FlipVertical measures y from the bottom edge so plots come out upright
		FlipVertical bool `yaml:"flipVertical"`

		// XRange is an optional [min, max] pair the columns are remapped onto
		XRange []float64 `yaml:"xRange,omitempty"`

		// YRange is an optional [min, max] pair the rows are remapped onto
		YRange []float64 `yaml:"yRange,omitempty"`

		// WhiteBackground treats pure white as background instead of the most frequent color
		WhiteBackground bool `yaml:"whiteBackground"`
	} `yaml:"classify"`

	// Color reduction applied before classification
	Quantize struct {
		// Method is one of none, kmeans, dominant
		Method string `yaml:"method"`

		// Colors is the palette size; 0 disables quantization
		Colors int `yaml:"colors"`
	} `yaml:"quantize"`

	// Output parameters
	Output struct {
		// Table is the CSV file receiving the (x, y, class_id) rows; "-" means stdout
		Table string `yaml:"table"`

		// Header writes the column names as the first CSV line
		Header bool `yaml:"header"`

		// Summary is an optional YAML file describing the run
		Summary string `yaml:"summary,omitempty"`

		// Plot is an optional scatter plot file (.svg, .png, .jpg)
		Plot string `yaml:"plot,omitempty"`

		// PlotWidth and PlotHeight are the plot size in pixels
		PlotWidth  int `yaml:"plotWidth"`
		PlotHeight int `yaml:"plotHeight"`

		// MarkerRadius is the scatter marker radius in pixels
		MarkerRadius float64 `yaml:"markerRadius"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Classify.FlipVertical = true
	cfg.Classify.WhiteBackground = false

	cfg.Quantize.Method = quantize.MethodNone.String()
	cfg.Quantize.Colors = 0

	cfg.Output.Table = "-"
	cfg.Output.Header = true
	cfg.Output.PlotWidth = 500 // 5in at 100dpi
	cfg.Output.PlotHeight = 500
	cfg.Output.MarkerRadius = 2
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks ranges, quantization and plot settings
func (c *Config) Validate() error {
	if _, err := c.XRange(); err != nil {
		return fmt.Errorf("classify.xRange: %w", err)
	}
	if _, err := c.YRange(); err != nil {
		return fmt.Errorf("classify.yRange: %w", err)
	}
	if _, err := c.QuantizeOptions(); err != nil {
		return fmt.Errorf("quantize: %w", err)
	}
	if c.Quantize.Colors < 0 {
		return fmt.Errorf("quantize.colors must be non-negative, got %d", c.Quantize.Colors)
	}
	if c.Output.PlotWidth <= 0 || c.Output.PlotHeight <= 0 {
		return fmt.Errorf("plot size must be positive, got %dx%d", c.Output.PlotWidth, c.Output.PlotHeight)
	}
	if c.Output.MarkerRadius <= 0 {
		return fmt.Errorf("output.markerRadius must be positive, got %g", c.Output.MarkerRadius)
	}
	return nil
}

// XRange returns the configured x range, or nil when unset
func (c *Config) XRange() (*models.Range, error) {
	return models.RangeFromSlice(c.Classify.XRange)
}

// YRange returns the configured y range, or nil when unset
func (c *Config) YRange() (*models.Range, error) {
	return models.RangeFromSlice(c.Classify.YRange)
}

// QuantizeOptions converts the quantize section
func (c *Config) QuantizeOptions() (quantize.Options, error) {
	method, err := quantize.ParseMethod(c.Quantize.Method)
	if err != nil {
		return quantize.Options{}, err
	}
	return quantize.Options{Method: method, Colors: c.Quantize.Colors}, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
