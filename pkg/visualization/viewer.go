package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"imagetodata/internal/models"
)

// Plot frame margins in pixels
const (
	marginLeft   = 50
	marginRight  = 20
	marginTop    = 20
	marginBottom = 40
	numTicks     = 5
)

// PlotOptions controls the scatter plot layout.
type PlotOptions struct {
	// Width and Height are the canvas size in pixels
	Width  int
	Height int

	// MarkerRadius is the point radius in pixels
	MarkerRadius float64

	// XLim and YLim fix the axis limits; nil fits the data
	XLim *models.Range
	YLim *models.Range
}

// DefaultPlotOptions returns a 500x500 canvas with small markers.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Width:        500,
		Height:       500,
		MarkerRadius: 2,
	}
}

// Plotter renders an (x, y, class_id) table as a scatter plot colored by class.
// It only reads the table it was built from.
type Plotter struct {
	xs      []float64
	ys      []float64
	classes []float64

	opts PlotOptions

	xlim models.Range
	ylim models.Range

	minClass float64
	maxClass float64
}

// NewPlotter creates a plotter over table, which must have 3 columns unless
// it is empty.
func NewPlotter(table mat.Matrix, opts PlotOptions) (*Plotter, error) {
	if opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom {
		return nil, fmt.Errorf("plot size %dx%d is too small", opts.Width, opts.Height)
	}
	if opts.MarkerRadius <= 0 {
		opts.MarkerRadius = DefaultPlotOptions().MarkerRadius
	}

	p := &Plotter{opts: opts}

	rows := 0
	if table != nil {
		var cols int
		rows, cols = table.Dims()
		if rows > 0 && cols != models.NumColumns {
			return nil, fmt.Errorf("table must have %d columns, got %d", models.NumColumns, cols)
		}
	}
	if rows > 0 {
		p.xs = mat.Col(nil, models.ColumnX, table)
		p.ys = mat.Col(nil, models.ColumnY, table)
		p.classes = mat.Col(nil, models.ColumnClass, table)
		p.minClass = floats.Min(p.classes)
		p.maxClass = floats.Max(p.classes)
	}

	p.xlim = limits(opts.XLim, p.xs)
	p.ylim = limits(opts.YLim, p.ys)

	return p, nil
}

// limits returns the fixed range when given, otherwise the padded data bounds.
func limits(lim *models.Range, values []float64) models.Range {
	if lim != nil && lim.Span() != 0 {
		return *lim
	}
	if len(values) == 0 {
		return models.Range{Min: 0, Max: 1}
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return models.Range{Min: lo - 0.5, Max: hi + 0.5}
	}
	pad := (hi - lo) * 0.05
	return models.Range{Min: lo - pad, Max: hi + pad}
}

// Len returns the number of points plotted.
func (p *Plotter) Len() int {
	return len(p.xs)
}

// Limits returns the axis limits in use.
func (p *Plotter) Limits() (x, y models.Range) {
	return p.xlim, p.ylim
}

func (p *Plotter) plotWidth() float64 {
	return float64(p.opts.Width - marginLeft - marginRight)
}

func (p *Plotter) plotHeight() float64 {
	return float64(p.opts.Height - marginTop - marginBottom)
}

// toCanvas maps data coordinates to canvas pixels. ok is false outside the frame.
func (p *Plotter) toCanvas(x, y float64) (cx, cy float64, ok bool) {
	tx := (x - p.xlim.Min) / p.xlim.Span()
	ty := (y - p.ylim.Min) / p.ylim.Span()
	cx = marginLeft + tx*p.plotWidth()
	cy = marginTop + (1-ty)*p.plotHeight()
	ok = tx >= 0 && tx <= 1 && ty >= 0 && ty <= 1
	return cx, cy, ok
}

// classColor places a class id on the viridis ramp between the lowest and
// highest id present.
func (p *Plotter) classColor(id float64) colorful.Color {
	t := 0.0
	if p.maxClass > p.minClass {
		t = (id - p.minClass) / (p.maxClass - p.minClass)
	}
	return ramp(t)
}

var viridis = []colorful.Color{
	colorful.MustParseHex("#440154"),
	colorful.MustParseHex("#3b528b"),
	colorful.MustParseHex("#21918c"),
	colorful.MustParseHex("#5ec962"),
	colorful.MustParseHex("#fde725"),
}

func ramp(t float64) colorful.Color {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(viridis)-1)
	i := int(pos)
	if i >= len(viridis)-1 {
		return viridis[len(viridis)-1]
	}
	frac := pos - float64(i)
	if frac == 0 {
		return viridis[i]
	}
	return viridis[i].BlendLab(viridis[i+1], frac).Clamped()
}

type tick struct {
	pos   float64 // canvas pixel along the axis
	label string
}

func (p *Plotter) ticks(r models.Range, vertical bool) []tick {
	out := make([]tick, 0, numTicks)
	for i := 0; i < numTicks; i++ {
		v := r.Min + r.Span()*float64(i)/float64(numTicks-1)
		var pos float64
		if vertical {
			_, pos, _ = p.toCanvas(p.xlim.Min, v)
		} else {
			pos, _, _ = p.toCanvas(v, p.ylim.Min)
		}
		out = append(out, tick{pos: pos, label: strconv.FormatFloat(v, 'g', 4, 64)})
	}
	return out
}

// errWriter remembers the first write error so svgo output can be checked.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(b)
	e.err = err
	return n, err
}

// RenderSVG writes the plot as an SVG document.
func (p *Plotter) RenderSVG(w io.Writer) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	width, height := p.opts.Width, p.opts.Height
	pw, ph := int(p.plotWidth()), int(p.plotHeight())
	bottom := marginTop + ph

	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")

	canvas.Gstyle("font-family:sans-serif;font-size:10px;fill:black")
	for _, tk := range p.ticks(p.xlim, false) {
		x := int(math.Round(tk.pos))
		canvas.Line(x, bottom, x, bottom+5, "stroke:black")
		canvas.Text(x, bottom+18, tk.label, "text-anchor:middle")
	}
	for _, tk := range p.ticks(p.ylim, true) {
		y := int(math.Round(tk.pos))
		canvas.Line(marginLeft-5, y, marginLeft, y, "stroke:black")
		canvas.Text(marginLeft-8, y+3, tk.label, "text-anchor:end")
	}
	canvas.Gend()

	r := int(math.Max(1, math.Round(p.opts.MarkerRadius)))
	canvas.Gid("points")
	for i := range p.xs {
		cx, cy, ok := p.toCanvas(p.xs[i], p.ys[i])
		if !ok {
			continue
		}
		fill := p.classColor(p.classes[i]).Hex()
		canvas.Circle(int(math.Round(cx)), int(math.Round(cy)), r, "fill:"+fill)
	}
	canvas.Gend()

	canvas.Rect(marginLeft, marginTop, pw, ph, "fill:none;stroke:black")
	canvas.End()

	return ew.err
}

// RenderImage draws the plot into an RGBA raster.
func (p *Plotter) RenderImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.opts.Width, p.opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i := range p.xs {
		cx, cy, ok := p.toCanvas(p.xs[i], p.ys[i])
		if !ok {
			continue
		}
		r, g, b := p.classColor(p.classes[i]).RGB255()
		fillDisk(img, cx, cy, p.opts.MarkerRadius, color.RGBA{R: r, G: g, B: b, A: 255})
	}

	black := color.RGBA{A: 255}
	pw, ph := int(p.plotWidth()), int(p.plotHeight())
	left, top := marginLeft, marginTop
	right, bottom := left+pw, top+ph
	hline(img, left, right, top, black)
	hline(img, left, right, bottom, black)
	vline(img, left, top, bottom, black)
	vline(img, right, top, bottom, black)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(black),
		Face: basicfont.Face7x13,
	}
	for _, tk := range p.ticks(p.xlim, false) {
		x := int(math.Round(tk.pos))
		vline(img, x, bottom, bottom+5, black)
		adv := d.MeasureString(tk.label).Round()
		d.Dot = fixed.P(x-adv/2, bottom+18)
		d.DrawString(tk.label)
	}
	for _, tk := range p.ticks(p.ylim, true) {
		y := int(math.Round(tk.pos))
		hline(img, left-5, left, y, black)
		adv := d.MeasureString(tk.label).Round()
		d.Dot = fixed.P(left-8-adv, y+4)
		d.DrawString(tk.label)
	}

	return img
}

func fillDisk(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	x0, x1 := int(math.Floor(cx-r)), int(math.Ceil(cx+r))
	y0, y1 := int(math.Floor(cy-r)), int(math.Ceil(cy+r))
	r2 := r * r
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r2 && image.Pt(x, y).In(img.Rect) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		if image.Pt(x, y).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		if image.Pt(x, y).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
	}
}

// SavePlot writes the plot to filename. The extension picks the format:
// .svg, .png, .jpg or .jpeg.
func (p *Plotter) SavePlot(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".svg", ".png", ".jpg", ".jpeg":
	default:
		return fmt.Errorf("unsupported plot format %q (use .svg, .png or .jpg)", ext)
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch ext {
	case ".svg":
		err = p.RenderSVG(file)
	case ".png":
		err = png.Encode(file, p.RenderImage())
	default:
		err = jpeg.Encode(file, p.RenderImage(), &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return err
	}
	return file.Close()
}
