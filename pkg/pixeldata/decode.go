package pixeldata

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imagetodata/internal/models"
)

var (
	// ErrDecode is returned when the input is not a decodable image.
	ErrDecode = errors.New("image could not be decoded")

	// ErrShape is returned when the image has fewer than three color
	// channels or no pixels at all.
	ErrShape = errors.New("image must have at least 3 color channels")
)

// Decode reads an encoded PNG, JPEG, GIF, BMP, TIFF or WebP image and checks
// that it carries color data. The second return value is the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkShape(img); err != nil {
		return nil, format, err
	}
	return img, format, nil
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image file: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// checkShape rejects single channel layouts and empty images.
//
// Paletted and CMYK images are accepted and expanded to RGB. This is a
// deliberate extension: an indexed image is stored as one index plane, which
// a strict reading of the shape rule would reject as single channel, but its
// palette entries are full colors so classifying them is well defined.
func checkShape(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrShape)
	}
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return fmt.Errorf("%w: got single channel %T", ErrShape, img)
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return fmt.Errorf("%w: empty bounds %v", ErrShape, b)
	}
	return nil
}

// grid is the decoded pixel buffer flattened to color keys in row-major order.
type grid struct {
	width  int
	height int
	keys   []models.ColorKey
}

func newGrid(img image.Image) *grid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grid{
		width:  w,
		height: h,
		keys:   make([]models.ColorKey, w*h),
	}

	switch src := img.(type) {
	case *image.NRGBA:
		// Straight alpha already; copy the first three channels.
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3]
				g.keys[y*w+x] = models.ColorKey{R: p[0], G: p[1], B: p[2]}
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.keys[y*w+x] = models.KeyOf(img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}

	return g
}

func (g *grid) at(col, row int) models.ColorKey {
	return g.keys[row*g.width+col]
}
