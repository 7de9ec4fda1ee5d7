package pixeldata

import "imagetodata/internal/models"

// Transform maps a pixel index to an output coordinate.
type Transform func(v float64) float64

// NewTransform returns the identity when r is nil. Otherwise it maps
// [0, dim) linearly onto r:
//
//	f(v) = (v / dim) * (r.Max - r.Min) + r.Min
//
// The divisor is dim itself, so index dim-1 lands one step short of r.Max.
func NewTransform(r *models.Range, dim int) Transform {
	if r == nil {
		return func(v float64) float64 { return v }
	}
	lo, span, d := r.Min, r.Span(), float64(dim)
	return func(v float64) float64 {
		return (v/d)*span + lo
	}
}
