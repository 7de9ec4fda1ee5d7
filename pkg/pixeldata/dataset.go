package pixeldata

import (
	"gonum.org/v1/gonum/mat"

	"imagetodata/internal/models"
)

// Dataset is the result of one conversion.
type Dataset struct {
	// Source is the file the image was read from, if any
	Source string

	// Format is the decoder name ("png", "jpeg", ...) when decoded from bytes
	Format string

	// Width and Height are the image dimensions in pixels
	Width, Height int

	// Background is the color excluded from the output
	Background models.ColorKey

	// BackgroundPixels is the number of pixels that matched Background
	BackgroundPixels int

	// Classes lists every color present in the image; the slice index is the
	// class id
	Classes []models.ColorCount

	// Points holds one row per non-background pixel in raster scan order
	Points []models.Point

	ids map[models.ColorKey]int
}

// Len returns the number of output rows.
func (d *Dataset) Len() int {
	return len(d.Points)
}

// ClassOf returns the class id assigned to color k.
func (d *Dataset) ClassOf(k models.ColorKey) (int, bool) {
	id, ok := d.ids[k]
	return id, ok
}

// Table returns the rows as an n×3 matrix with columns x, y, class_id.
// An empty dataset yields an empty matrix.
func (d *Dataset) Table() *mat.Dense {
	n := len(d.Points)
	if n == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, 0, n*models.NumColumns)
	for _, p := range d.Points {
		data = append(data, p.X, p.Y, float64(p.ClassID))
	}
	return mat.NewDense(n, models.NumColumns, data)
}
