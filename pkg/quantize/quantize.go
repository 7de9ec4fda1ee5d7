// Package quantize reduces the number of distinct colors in an image before
// classification. Lossy or anti-aliased drawings carry many near-identical
// shades; snapping them to a small palette keeps one class per intended color.
//
// Every palette entry is a color that occurs in the source image, and the
// same input always yields the same palette.
package quantize

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"golang.org/x/exp/slices"

	"imagetodata/internal/models"
)

// maxIterations caps the refinement rounds of the k-means palette.
const maxIterations = 32

// Method selects how the reduced palette is found.
type Method int

const (
	MethodNone Method = iota
	MethodKMeans
	MethodDominant
)

func (m Method) String() string {
	switch m {
	case MethodKMeans:
		return "kmeans"
	case MethodDominant:
		return "dominant"
	default:
		return "none"
	}
}

// ParseMethod accepts "none", "kmeans" or "dominant" (case insensitive).
// The empty string means none.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MethodNone, nil
	case "kmeans":
		return MethodKMeans, nil
	case "dominant", "dominantcolor":
		return MethodDominant, nil
	}
	return MethodNone, fmt.Errorf("unknown quantize method %q", s)
}

// Options configures Apply.
type Options struct {
	Method Method

	// Colors is the target palette size. Values <= 0 disable quantization.
	Colors int

	// Keep lists colors that stay palette entries whenever the image
	// contains them. Pixels of a kept color are never remapped. Kept colors
	// count towards Colors; if there are more of them the palette grows.
	Keep []models.ColorKey
}

// Enabled reports whether Apply would change anything.
func (o Options) Enabled() bool {
	return o.Method != MethodNone && o.Colors > 0
}

// Apply snaps every pixel of img to the nearest color of a palette of at most
// opts.Colors entries. Images that already have few enough colors are
// returned unchanged.
func Apply(img image.Image, opts Options) (image.Image, error) {
	if !opts.Enabled() {
		return img, nil
	}

	distinct := distinctColors(img)
	if len(distinct) <= opts.Colors {
		return img, nil
	}

	keep := keptColors(distinct, opts.Keep)
	k := max(opts.Colors, len(keep))

	// Most frequent first; equal counts keep first-seen order.
	ranked := slices.Clone(distinct)
	slices.SortStableFunc(ranked, func(a, b models.ColorCount) int {
		return b.Count - a.Count
	})

	var palette []models.ColorKey
	switch opts.Method {
	case MethodKMeans:
		palette = kmeansPalette(ranked, keep, k)
	case MethodDominant:
		palette = dominantPalette(img, ranked, keep, k)
	default:
		return nil, fmt.Errorf("unsupported quantize method %v", opts.Method)
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("%s quantization produced an empty palette", opts.Method)
	}

	return remap(img, nearestTable(distinct, palette)), nil
}

// distinctColors counts the pixels of every color, in first-seen raster order.
func distinctColors(img image.Image) []models.ColorCount {
	b := img.Bounds()
	index := make(map[models.ColorKey]int)
	var out []models.ColorCount
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			k := models.KeyOf(img.At(x, y))
			if i, ok := index[k]; ok {
				out[i].Count++
				continue
			}
			index[k] = len(out)
			out = append(out, models.ColorCount{Color: k, Count: 1})
		}
	}
	return out
}

// keptColors returns the entries of keep present in the image, deduplicated.
func keptColors(distinct []models.ColorCount, keep []models.ColorKey) []models.ColorKey {
	if len(keep) == 0 {
		return nil
	}
	present := make(map[models.ColorKey]bool, len(distinct))
	for _, c := range distinct {
		present[c.Color] = true
	}
	var out []models.ColorKey
	for _, k := range keep {
		if present[k] && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func labOf(k models.ColorKey) clusters.Coordinates {
	l, a, b := colorful.Color{
		R: float64(k.R) / 255.0,
		G: float64(k.G) / 255.0,
		B: float64(k.B) / 255.0,
	}.Lab()
	return clusters.Coordinates{l, a, b}
}

// swatch is one distinct color as a clustering observation, carrying its
// pixel count as weight.
type swatch struct {
	models.ColorCount
	lab clusters.Coordinates
}

func (s swatch) Coordinates() clusters.Coordinates {
	return s.lab
}

func (s swatch) Distance(p clusters.Coordinates) float64 {
	return s.lab.Distance(p)
}

// kmeansPalette runs a pixel weighted Lloyd iteration over the distinct
// colors in Lab space. ranked must be sorted by descending count. Clusters
// seeded from kept colors never move. Each cluster is represented by its most
// frequent member, so the palette only holds colors found in the image.
func kmeansPalette(ranked []models.ColorCount, keep []models.ColorKey, k int) []models.ColorKey {
	swatches := make([]swatch, len(ranked))
	for i, c := range ranked {
		swatches[i] = swatch{ColorCount: c, lab: labOf(c.Color)}
	}

	seeds := seedColors(swatches, keep, k)
	cc := make(clusters.Clusters, len(seeds))
	for i, s := range seeds {
		cc[i].Center = swatches[s].lab
	}
	pinned := len(keep)

	assign := make([]int, len(swatches))
	for iter := 0; iter < maxIterations; iter++ {
		cc.Reset()
		changed := iter == 0
		for i, s := range swatches {
			n := cc.Nearest(s)
			if n != assign[i] {
				assign[i] = n
				changed = true
			}
			cc[n].Append(s)
		}
		if !changed {
			break
		}
		for i := pinned; i < len(cc); i++ {
			recenter(&cc[i])
		}
	}

	palette := make([]models.ColorKey, 0, len(cc))
	for i, c := range cc {
		if i < pinned {
			palette = append(palette, keep[i])
			continue
		}
		if rep, ok := representative(c); ok {
			palette = append(palette, rep)
		}
	}
	return palette
}

// seedColors picks up to k starting swatches: kept colors first, then the
// most frequent color, then greedily the color farthest from those picked,
// scaled by how common it is. Ties go to the earlier swatch.
func seedColors(swatches []swatch, keep []models.ColorKey, k int) []int {
	k = min(k, len(swatches))
	selected := make([]bool, len(swatches))
	seeds := make([]int, 0, k)

	for _, kc := range keep {
		for i, s := range swatches {
			if s.Color == kc {
				seeds = append(seeds, i)
				selected[i] = true
				break
			}
		}
	}
	if len(seeds) == 0 {
		seeds = append(seeds, 0)
		selected[0] = true
	}

	maxCount := float64(swatches[0].Count)
	for len(seeds) < k {
		best, bestScore := -1, -1.0
		for i, s := range swatches {
			if selected[i] {
				continue
			}
			minDist := math.MaxFloat64
			for _, j := range seeds {
				if d := s.Distance(swatches[j].lab); d < minDist {
					minDist = d
				}
			}
			w := float64(s.Count) / maxCount
			score := math.Sqrt(minDist) * (0.55 + 0.45*math.Sqrt(w))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		seeds = append(seeds, best)
		selected[best] = true
	}
	return seeds
}

// recenter moves the cluster center to the pixel weighted mean of its members.
func recenter(c *clusters.Cluster) {
	var sum [3]float64
	total := 0.0
	for _, o := range c.Observations {
		s := o.(swatch)
		w := float64(s.Count)
		for d := range sum {
			sum[d] += w * s.lab[d]
		}
		total += w
	}
	if total == 0 {
		return
	}
	c.Center = clusters.Coordinates{sum[0] / total, sum[1] / total, sum[2] / total}
}

// representative returns the member with the highest pixel count. Members
// arrive in ranked order, so the first one seen wins ties.
func representative(c clusters.Cluster) (models.ColorKey, bool) {
	var rep models.ColorKey
	best := 0
	for _, o := range c.Observations {
		if s := o.(swatch); s.Count > best {
			rep, best = s.Color, s.Count
		}
	}
	return rep, best > 0
}

// dominantPalette snaps the perceptual dominant colors onto the closest
// colors that actually occur in the image. Kept colors come first.
func dominantPalette(img image.Image, ranked []models.ColorCount, keep []models.ColorKey, k int) []models.ColorKey {
	palette := slices.Clone(keep)
	for _, c := range dominantcolor.FindWeight(img, k) {
		if len(palette) >= k {
			break
		}
		col, _ := colorful.MakeColor(c.RGBA)
		key := nearestSource(col, ranked)
		if !slices.Contains(palette, key) {
			palette = append(palette, key)
		}
	}
	return palette
}

// nearestSource returns the source color closest to col in CIE Lab; ties go
// to the more frequent color.
func nearestSource(col colorful.Color, ranked []models.ColorCount) models.ColorKey {
	best, bestDist := 0, -1.0
	for i, c := range ranked {
		src, _ := colorful.MakeColor(c.Color.NRGBA())
		if d := col.DistanceLab(src); bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return ranked[best].Color
}

// nearestTable maps each distinct color to its closest palette entry in CIE Lab.
// Palette colors map to themselves.
func nearestTable(distinct []models.ColorCount, palette []models.ColorKey) map[models.ColorKey]models.ColorKey {
	cols := make([]colorful.Color, len(palette))
	for i, p := range palette {
		cols[i], _ = colorful.MakeColor(p.NRGBA())
	}

	table := make(map[models.ColorKey]models.ColorKey, len(distinct))
	for _, c := range distinct {
		col, _ := colorful.MakeColor(c.Color.NRGBA())
		best, bestDist := 0, -1.0
		for i, p := range cols {
			if d := col.DistanceLab(p); bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		table[c.Color] = palette[best]
	}
	return table
}

func remap(img image.Image, table map[models.ColorKey]models.ColorKey) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			src := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			k := table[models.ColorKey{R: src.R, G: src.G, B: src.B}]
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, color.NRGBA{R: k.R, G: k.G, B: k.B, A: src.A})
		}
	}
	return out
}
