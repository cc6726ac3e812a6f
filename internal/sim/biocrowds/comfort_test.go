package biocrowds

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestComfort_LoadImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 2; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "comfort.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c, err := LoadComfortImage(path, 8, 8)
	if err != nil {
		t.Fatalf("LoadComfortImage: %v", err)
	}
	if w, d := c.Dims(); w != 8 || d != 8 {
		t.Fatalf("dims=%dx%d want=8x8", w, d)
	}
	for z := 0; z < 8; z++ {
		if v := c.At(z * 8); v > 0.1 {
			t.Fatalf("left column comfort=%v want ~0", v)
		}
		if v := c.At(z*8 + 7); v < 0.9 {
			t.Fatalf("right column comfort=%v want ~1", v)
		}
	}
	if _, err := LoadComfortImage(filepath.Join(t.TempDir(), "missing.png"), 8, 8); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestComfort_ValuesClampAndNilDefault(t *testing.T) {
	c, err := ComfortFromValues(2, 1, []float32{-1, 3})
	if err != nil {
		t.Fatalf("ComfortFromValues: %v", err)
	}
	if c.At(0) != 0 || c.At(1) != 1 {
		t.Fatalf("clamped=%v,%v want 0,1", c.At(0), c.At(1))
	}
	var none *ComfortField
	if none.At(5) != 1 {
		t.Fatalf("nil field should read as 1")
	}
	if _, err := ComfortFromValues(2, 2, []float32{1}); err == nil {
		t.Fatalf("short value slice should fail")
	}
}
