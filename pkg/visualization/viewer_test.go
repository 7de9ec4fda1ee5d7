package visualization

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"imagetodata/internal/models"
)

// createTestTable builds an n-row table on a diagonal with alternating classes
func createTestTable(n int) *mat.Dense {
	data := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		data = append(data, float64(i), float64(i), float64(i%3))
	}
	return mat.NewDense(n, 3, data)
}

// TestNewPlotter verifies limits and column extraction
func TestNewPlotter(t *testing.T) {
	table := createTestTable(10)

	plotter, err := NewPlotter(table, DefaultPlotOptions())
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}
	if plotter.Len() != 10 {
		t.Errorf("Expected 10 points, got %d", plotter.Len())
	}

	xlim, ylim := plotter.Limits()
	if xlim.Min >= 0 || xlim.Max <= 9 {
		t.Errorf("Expected padded x limits around [0, 9], got %+v", xlim)
	}
	if ylim.Min >= 0 || ylim.Max <= 9 {
		t.Errorf("Expected padded y limits around [0, 9], got %+v", ylim)
	}

	opts := DefaultPlotOptions()
	opts.XLim = &models.Range{Min: 0, Max: 100}
	fixed, err := NewPlotter(table, opts)
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}
	xlim, _ = fixed.Limits()
	if xlim.Min != 0 || xlim.Max != 100 {
		t.Errorf("Expected fixed x limits [0, 100], got %+v", xlim)
	}
}

// TestNewPlotterInvalid verifies bad tables and sizes are rejected
func TestNewPlotterInvalid(t *testing.T) {
	if _, err := NewPlotter(mat.NewDense(2, 2, nil), DefaultPlotOptions()); err == nil {
		t.Error("Expected error for 2-column table, got nil")
	}

	opts := DefaultPlotOptions()
	opts.Width = 10
	if _, err := NewPlotter(createTestTable(1), opts); err == nil {
		t.Error("Expected error for tiny canvas, got nil")
	}
}

// TestRenderSVG verifies one circle is drawn per visible point
func TestRenderSVG(t *testing.T) {
	plotter, err := NewPlotter(createTestTable(7), DefaultPlotOptions())
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := plotter.RenderSVG(&buf); err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "<?xml") || !strings.Contains(out, "<svg") {
		t.Errorf("Output does not look like SVG: %.80q", out)
	}
	if n := strings.Count(out, "<circle"); n != 7 {
		t.Errorf("Expected 7 circles, got %d", n)
	}
	// Lowest and highest class ids sit on the ends of the ramp.
	if !strings.Contains(out, "#440154") || !strings.Contains(out, "#fde725") {
		t.Error("Expected both ends of the color ramp in the output")
	}
}

// TestRenderSVGClipsToLimits verifies points outside fixed limits are skipped
func TestRenderSVGClipsToLimits(t *testing.T) {
	opts := DefaultPlotOptions()
	opts.XLim = &models.Range{Min: 0, Max: 4}
	opts.YLim = &models.Range{Min: 0, Max: 4}

	plotter, err := NewPlotter(createTestTable(10), opts)
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := plotter.RenderSVG(&buf); err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}
	if n := strings.Count(buf.String(), "<circle"); n != 5 {
		t.Errorf("Expected 5 circles inside [0, 4], got %d", n)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// TestRenderSVGWriteError verifies write failures surface
func TestRenderSVGWriteError(t *testing.T) {
	plotter, err := NewPlotter(createTestTable(3), DefaultPlotOptions())
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}
	if err := plotter.RenderSVG(failingWriter{}); err == nil {
		t.Error("Expected write error, got nil")
	}
}

// TestRenderImageEmpty verifies an empty table still renders a frame
func TestRenderImageEmpty(t *testing.T) {
	plotter, err := NewPlotter(&mat.Dense{}, DefaultPlotOptions())
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}

	img := plotter.RenderImage()
	bounds := img.Bounds()
	if bounds.Dx() != 500 || bounds.Dy() != 500 {
		t.Errorf("Expected 500x500 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Frame corner is black, the canvas corner is white.
	if c := img.RGBAAt(marginLeft, marginTop); c.R != 0 || c.A != 255 {
		t.Errorf("Expected black frame at top-left corner, got %+v", c)
	}
	if c := img.RGBAAt(0, 0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("Expected white background, got %+v", c)
	}
}

// TestRenderImagePoint verifies a single point is painted at its location
func TestRenderImagePoint(t *testing.T) {
	opts := DefaultPlotOptions()
	opts.XLim = &models.Range{Min: 0, Max: 2}
	opts.YLim = &models.Range{Min: 0, Max: 2}
	opts.MarkerRadius = 3

	plotter, err := NewPlotter(mat.NewDense(1, 3, []float64{1, 1, 0}), opts)
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}

	img := plotter.RenderImage()
	cx := marginLeft + (500-marginLeft-marginRight)/2
	cy := marginTop + (500-marginTop-marginBottom)/2
	c := img.RGBAAt(cx, cy)
	if c.R == 255 && c.G == 255 && c.B == 255 {
		t.Errorf("Expected colored marker at (%d, %d), got white", cx, cy)
	}
}

// TestSavePlot verifies each supported format is written
func TestSavePlot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	plotter, err := NewPlotter(createTestTable(20), DefaultPlotOptions())
	if err != nil {
		t.Fatalf("NewPlotter failed: %v", err)
	}

	dir := t.TempDir()
	for _, name := range []string{"plot.svg", "plot.png", "plot.jpg"} {
		filename := filepath.Join(dir, "out", name)
		if err := plotter.SavePlot(filename); err != nil {
			t.Fatalf("SavePlot(%s) failed: %v", name, err)
		}
		info, err := os.Stat(filename)
		if err != nil {
			t.Fatalf("Saved file does not exist: %s", filename)
		}
		if info.Size() == 0 {
			t.Errorf("Saved file is empty: %s", filename)
		}
	}

	f, err := os.Open(filepath.Join(dir, "out", "plot.png"))
	if err != nil {
		t.Fatalf("Failed to open PNG: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Saved PNG does not decode: %v", err)
	}
	if cfg.Width != 500 || cfg.Height != 500 {
		t.Errorf("Expected 500x500 PNG, got %dx%d", cfg.Width, cfg.Height)
	}

	if err := plotter.SavePlot(filepath.Join(dir, "plot.gif")); err == nil {
		t.Error("Expected error for unsupported extension, got nil")
	}
}
