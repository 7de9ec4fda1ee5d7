package pixeldata

import (
	"image"

	"golang.org/x/exp/slices"

	"imagetodata/internal/models"
)

// ColorCounter is the color frequency table of one image. It remembers the
// order in which colors were first seen so that ties resolve deterministically.
type ColorCounter struct {
	counts map[models.ColorKey]int
	order  []models.ColorKey
	total  int
}

func newColorCounter() *ColorCounter {
	return &ColorCounter{
		counts: make(map[models.ColorKey]int),
	}
}

func (c *ColorCounter) add(k models.ColorKey) {
	n, ok := c.counts[k]
	if !ok {
		c.order = append(c.order, k)
	}
	c.counts[k] = n + 1
	c.total++
}

// CountColors builds the frequency table over every pixel of img.
func CountColors(img image.Image) (*ColorCounter, error) {
	if err := checkShape(img); err != nil {
		return nil, err
	}
	return newGrid(img).count(), nil
}

func (g *grid) count() *ColorCounter {
	c := newColorCounter()
	for _, k := range g.keys {
		c.add(k)
	}
	return c
}

// Count returns the number of pixels with color k.
func (c *ColorCounter) Count(k models.ColorKey) int {
	return c.counts[k]
}

// Len returns the number of distinct colors.
func (c *ColorCounter) Len() int {
	return len(c.order)
}

// Total returns the number of pixels counted.
func (c *ColorCounter) Total() int {
	return c.total
}

// MostCommon returns the most frequent color. Among equally frequent colors
// the one seen first in raster order wins.
func (c *ColorCounter) MostCommon() (models.ColorKey, int) {
	var best models.ColorKey
	bestCount := 0
	for _, k := range c.order {
		if n := c.counts[k]; n > bestCount {
			best, bestCount = k, n
		}
	}
	return best, bestCount
}

// FirstSeen lists the colors in the order they were first encountered.
func (c *ColorCounter) FirstSeen() []models.ColorCount {
	out := make([]models.ColorCount, len(c.order))
	for i, k := range c.order {
		out[i] = models.ColorCount{Color: k, Count: c.counts[k]}
	}
	return out
}

// Ranked lists the colors by descending count, keeping first-seen order
// among ties. The index of a color in this list is its class id.
func (c *ColorCounter) Ranked() []models.ColorCount {
	ranked := c.FirstSeen()
	slices.SortStableFunc(ranked, func(a, b models.ColorCount) int {
		return b.Count - a.Count
	})
	return ranked
}
