package biocrowds

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ComfortField is a static per-cell scalar in [0,1] that discounts steering
// magnitude. A nil field behaves as uniform 1.
type ComfortField struct {
	width, depth int
	values       []float32
}

func NewUniformComfort(width, depth int) *ComfortField {
	c := &ComfortField{width: width, depth: depth, values: make([]float32, width*depth)}
	for i := range c.values {
		c.values[i] = 1
	}
	return c
}

// ComfortFromValues copies row-major values (row = z), clamping to [0,1].
func ComfortFromValues(width, depth int, values []float32) (*ComfortField, error) {
	if width <= 0 || depth <= 0 || len(values) != width*depth {
		return nil, fmt.Errorf("%w: comfort field %dx%d with %d values", ErrInvalidConfig, width, depth, len(values))
	}
	c := &ComfortField{width: width, depth: depth, values: make([]float32, len(values))}
	for i, v := range values {
		c.values[i] = clamp01f(v)
	}
	return c, nil
}

// LoadComfortImage decodes a PNG/JPEG/GIF/BMP/TIFF image and resamples it
// bilinearly to the grid. Luminance/255 becomes the comfort value; image row y
// maps to grid row z.
func LoadComfortImage(path string, width, depth int) (*ComfortField, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("comfort texture %s: %w", path, err)
	}
	return ComfortFromImage(src, width, depth)
}

func ComfortFromImage(src image.Image, width, depth int) (*ComfortField, error) {
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: comfort field %dx%d", ErrInvalidConfig, width, depth)
	}
	dst := image.NewGray(image.Rect(0, 0, width, depth))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	c := &ComfortField{width: width, depth: depth, values: make([]float32, width*depth)}
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			c.values[z*width+x] = float32(dst.GrayAt(x, z).Y) / 255
		}
	}
	return c, nil
}

func (c *ComfortField) Dims() (int, int) {
	if c == nil {
		return 0, 0
	}
	return c.width, c.depth
}

// At returns the comfort of a cell index; nil fields and out-of-range
// indexes read as 1.
func (c *ComfortField) At(cell int) float64 {
	if c == nil || cell < 0 || cell >= len(c.values) {
		return 1
	}
	return float64(c.values[cell])
}

func (c *ComfortField) Values() []float32 {
	if c == nil {
		return nil
	}
	return c.values
}

func clamp01f(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
