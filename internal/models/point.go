package models

import (
	"fmt"
	"image/color"
)

// ColorKey is the exact 8-bit RGB identity of a pixel color.
// Alpha is never part of the key.
type ColorKey struct {
	R, G, B uint8
}

// White is the fixed background used when the white background rule is on.
var White = ColorKey{R: 255, G: 255, B: 255}

// KeyOf converts any color to its straight (non-premultiplied) RGB key.
func KeyOf(c color.Color) ColorKey {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return ColorKey{R: n.R, G: n.G, B: n.B}
}

// NRGBA returns the key as an opaque color.
func (k ColorKey) NRGBA() color.NRGBA {
	return color.NRGBA{R: k.R, G: k.G, B: k.B, A: 255}
}

// Hex formats the key as #rrggbb.
func (k ColorKey) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", k.R, k.G, k.B)
}

// String matches the zero padded "rrr-ggg-bbb" form used in logs.
func (k ColorKey) String() string {
	return fmt.Sprintf("%03d-%03d-%03d", k.R, k.G, k.B)
}

// ColorCount pairs a color with the number of pixels that carry it
type ColorCount struct {
	Color ColorKey
	Count int
}

// Range is a closed numeric interval used for coordinate remapping
// and plot axis limits.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// RangeFromSlice builds a Range from a two element list.
// A nil or empty list yields a nil Range.
func RangeFromSlice(v []float64) (*Range, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if len(v) != 2 {
		return nil, fmt.Errorf("range must have exactly 2 values, got %d", len(v))
	}
	return &Range{Min: v[0], Max: v[1]}, nil
}

// Point is a single output row.
type Point struct {
	// X is the (possibly remapped) column coordinate
	X float64

	// Y is the (possibly flipped and remapped) row coordinate
	Y float64

	// ClassID identifies the pixel color; lower ids belong to more frequent colors
	ClassID int
}

// Column indices of the output table.
const (
	ColumnX = iota
	ColumnY
	ColumnClass

	// NumColumns is the width of the output table
	NumColumns
)

// ColumnNames labels the output table columns in order.
var ColumnNames = [NumColumns]string{"x", "y", "class_id"}
