// Package pixeldata turns a raster image into a labeled point dataset.
//
// Every pixel whose color differs from the background becomes one row
// (x, y, class_id). Colors are identified exactly by their 8-bit RGB value and
// class ids are handed out by descending pixel count, so the most frequent
// color always receives id 0.
package pixeldata

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"imagetodata/internal/models"
	"imagetodata/pkg/quantize"
)

// Params holds the conversion settings.
type Params struct {
	// FlipVertical measures y upward from the bottom edge (y = H - row)
	// instead of downward from the top (y = row).
	FlipVertical bool

	// XRange remaps columns from [0, W) onto the range. Nil keeps raw columns.
	XRange *models.Range

	// YRange remaps rows from [0, H) onto the range. Nil keeps raw rows.
	YRange *models.Range

	// WhiteBackground forces pure white as the background color instead of
	// the most frequent color.
	WhiteBackground bool

	// Quantize optionally reduces the palette before colors are counted.
	Quantize quantize.Options
}

// DefaultParams returns the defaults: flip on, no ranges, most frequent
// color as background.
func DefaultParams() Params {
	return Params{FlipVertical: true}
}

// Classifier converts images according to a fixed set of Params.
// It holds no per-image state and may be reused.
type Classifier struct {
	params Params
	logger zerolog.Logger
}

// NewClassifier creates a classifier that reports through logger.
func NewClassifier(params Params, logger zerolog.Logger) *Classifier {
	return &Classifier{
		params: params,
		logger: logger,
	}
}

// Convert classifies img without logging.
func Convert(img image.Image, params Params) (*Dataset, error) {
	return NewClassifier(params, zerolog.Nop()).Classify(img)
}

// ClassifyFile reads and classifies the image stored at path.
func (c *Classifier) ClassifyFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	ds, err := c.ClassifyBytes(data)
	if err != nil {
		return nil, err
	}
	ds.Source = path
	return ds, nil
}

// ClassifyBytes decodes and classifies an encoded image.
func (c *Classifier) ClassifyBytes(data []byte) (*Dataset, error) {
	img, format, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("format", format).
		Int("bytes", len(data)).
		Msg("decoded image")

	ds, err := c.Classify(img)
	if err != nil {
		return nil, err
	}
	ds.Format = format
	return ds, nil
}

// Classify runs the conversion over a decoded image.
func (c *Classifier) Classify(img image.Image) (*Dataset, error) {
	if err := checkShape(img); err != nil {
		return nil, err
	}

	if c.params.Quantize.Enabled() {
		opts := c.params.Quantize
		if c.params.WhiteBackground {
			// White must survive so it can still be removed as background
			opts.Keep = append(slices.Clone(opts.Keep), models.White)
		}
		quantized, err := quantize.Apply(img, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to quantize colors: %w", err)
		}
		img = quantized
		c.logger.Debug().
			Stringer("method", c.params.Quantize.Method).
			Int("colors", c.params.Quantize.Colors).
			Msg("quantized image")
	}

	g := newGrid(img)
	counter := g.count()
	ranked := counter.Ranked()
	c.logFrequencies(ranked)

	background := models.White
	if !c.params.WhiteBackground {
		background, _ = counter.MostCommon()
	}

	ids := make(map[models.ColorKey]int, len(ranked))
	for id, cc := range ranked {
		ids[cc.Color] = id
	}

	fx := NewTransform(c.params.XRange, g.width)
	fy := NewTransform(c.params.YRange, g.height)

	bgPixels := counter.Count(background)
	points := make([]models.Point, 0, counter.Total()-bgPixels)
	for row := 0; row < g.height; row++ {
		yIndex := row
		if c.params.FlipVertical {
			yIndex = g.height - row
		}
		y := fy(float64(yIndex))

		for col := 0; col < g.width; col++ {
			k := g.at(col, row)
			if k == background {
				continue
			}
			points = append(points, models.Point{
				X:       fx(float64(col)),
				Y:       y,
				ClassID: ids[k],
			})
		}
	}

	ds := &Dataset{
		Width:            g.width,
		Height:           g.height,
		Background:       background,
		BackgroundPixels: bgPixels,
		Classes:          ranked,
		Points:           points,
		ids:              ids,
	}

	c.logger.Info().
		Int("width", ds.Width).
		Int("height", ds.Height).
		Int("colors", len(ranked)).
		Str("background", background.Hex()).
		Int("points", len(points)).
		Msg("classified image")

	return ds, nil
}

func (c *Classifier) logFrequencies(ranked []models.ColorCount) {
	event := c.logger.Debug()
	if !event.Enabled() {
		return
	}
	arr := zerolog.Arr()
	for _, cc := range ranked {
		arr.Str(fmt.Sprintf("%s:%d", cc.Color, cc.Count))
	}
	event.Array("frequency", arr).Msg("color frequency table")
}
