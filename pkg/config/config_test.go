package config

import (
	"os"
	"path/filepath"
	"testing"

	"imagetodata/pkg/quantize"
)

// TestDefaultConfig verifies the defaults mirror the converter defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Classify.FlipVertical {
		t.Error("Expected flipVertical to default to true")
	}
	if cfg.Classify.WhiteBackground {
		t.Error("Expected whiteBackground to default to false")
	}
	if cfg.Output.Table != "-" {
		t.Errorf("Expected table to default to stdout, got %q", cfg.Output.Table)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got %v", err)
	}

	xr, err := cfg.XRange()
	if err != nil || xr != nil {
		t.Errorf("Expected no x range by default, got %v (%v)", xr, err)
	}
}

// TestLoadMissingConfig verifies a missing file yields defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Classify.FlipVertical {
		t.Error("Expected default config for missing file")
	}
}

// TestLoadConfig verifies YAML values override defaults
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imagetodata.yaml")
	content := `
classify:
  flipVertical: false
  xRange: [0, 10]
  yRange: [-1, 1]
  whiteBackground: true
quantize:
  method: kmeans
  colors: 4
output:
  plot: out.svg
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Classify.FlipVertical {
		t.Error("Expected flipVertical false")
	}
	if !cfg.Classify.WhiteBackground {
		t.Error("Expected whiteBackground true")
	}

	xr, err := cfg.XRange()
	if err != nil {
		t.Fatalf("XRange failed: %v", err)
	}
	if xr == nil || xr.Min != 0 || xr.Max != 10 {
		t.Errorf("Expected x range [0, 10], got %+v", xr)
	}

	q, err := cfg.QuantizeOptions()
	if err != nil {
		t.Fatalf("QuantizeOptions failed: %v", err)
	}
	if q.Method != quantize.MethodKMeans || q.Colors != 4 {
		t.Errorf("Expected kmeans/4, got %v/%d", q.Method, q.Colors)
	}

	// Untouched keys keep their defaults.
	if cfg.Output.PlotWidth != 500 {
		t.Errorf("Expected default plot width 500, got %d", cfg.Output.PlotWidth)
	}
	if cfg.Output.Plot != "out.svg" {
		t.Errorf("Expected plot out.svg, got %q", cfg.Output.Plot)
	}
}

// TestLoadInvalidConfig verifies malformed ranges and methods are rejected
func TestLoadInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"range":  "classify:\n  xRange: [1, 2, 3]\n",
		"method": "quantize:\n  method: octree\n",
		"yaml":   "classify: [unterminated\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// TestCreateDefaultConfigFile verifies a written default config loads back
func TestCreateDefaultConfigFile(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.MarkerRadius != 2 {
		t.Errorf("Expected marker radius 2, got %g", cfg.Output.MarkerRadius)
	}
}
