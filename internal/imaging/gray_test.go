package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createInMemoryImage creates a uniform RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// grayColumns builds a buffer whose value depends only on x.
// grayRange returns the smallest and largest intensity in g.
func grayRange(g *Gray) (lo, hi float64) {
	if len(g.Pix) == 0 {
		return 0, 0
	}
	lo, hi = g.Pix[0], g.Pix[0]
	for _, v := range g.Pix[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func grayColumns(width, height int, valueAt func(x int) float64) *Gray {
	g := NewGray(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Pix[y*width+x] = valueAt(x)
		}
	}
	return g
}

func TestGrayFromImage_Luma(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want float64
	}{
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"red", color.RGBA{255, 0, 0, 255}, 0.299 * 255},
		{"green", color.RGBA{0, 255, 0, 255}, 0.587 * 255},
		{"blue", color.RGBA{0, 0, 255, 255}, 0.114 * 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GrayFromImage(createInMemoryImage(4, 3, tt.c))
			if g.Width != 4 || g.Height != 3 {
				t.Fatalf("dimensions: got %dx%d, want 4x3", g.Width, g.Height)
			}
			if math.Abs(g.At(1, 1)-tt.want) > 1e-9 {
				t.Errorf("luma: got %v, want %v", g.At(1, 1), tt.want)
			}
		})
	}
}

func TestGray_AtClamps(t *testing.T) {
	g := grayColumns(3, 2, func(x int) float64 { return float64(x * 10) })

	if got := g.At(-5, 0); got != 0 {
		t.Errorf("At(-5,0): got %v, want 0", got)
	}
	if got := g.At(10, 10); got != 20 {
		t.Errorf("At(10,10): got %v, want 20", got)
	}
}

func TestGray_Bilinear(t *testing.T) {
	g := grayColumns(4, 4, func(x int) float64 { return float64(x * 10) })

	if got := g.Bilinear(1.5, 2); math.Abs(got-15) > 1e-9 {
		t.Errorf("Bilinear(1.5,2): got %v, want 15", got)
	}
	if got := g.Bilinear(2, 0.25); math.Abs(got-20) > 1e-9 {
		t.Errorf("Bilinear(2,0.25): got %v, want 20", got)
	}
}

func TestGray_CloneIsIndependent(t *testing.T) {
	g := grayColumns(3, 3, func(x int) float64 { return 7 })
	c := g.Clone()
	c.Pix[0] = 99

	if g.Pix[0] != 7 {
		t.Error("modifying clone changed the original")
	}
}

func TestGray_RowStats(t *testing.T) {
	g := NewGray(2, 4)
	copy(g.Pix, []float64{10, 10, 30, 30, 0, 0, 0, 0})

	mean, std := g.RowStats(0, 2)
	if mean != 20 {
		t.Errorf("mean: got %v, want 20", mean)
	}
	if math.Abs(std-10) > 1e-9 {
		t.Errorf("stddev: got %v, want 10", std)
	}

	if mean, std := g.RowStats(3, 3); mean != 0 || std != 0 {
		t.Errorf("empty band: got %v,%v, want 0,0", mean, std)
	}
}

func TestGray_SampleMedian(t *testing.T) {
	g := grayColumns(10, 10, func(x int) float64 {
		if x < 3 {
			return 20
		}
		return 200
	})
	if got := g.SampleMedian(4096); got != 200 {
		t.Errorf("median: got %v, want 200", got)
	}
	if got := NewGray(0, 0).SampleMedian(10); got != 0 {
		t.Errorf("empty median: got %v, want 0", got)
	}
}

func TestDownscale(t *testing.T) {
	img := createInMemoryImage(400, 200, color.RGBA{90, 90, 90, 255})

	out, sx, sy := Downscale(img, 100)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 100x50", out.Bounds().Dx(), out.Bounds().Dy())
	}
	if sx != 4 || sy != 4 {
		t.Errorf("scale: got %v,%v, want 4,4", sx, sy)
	}

	same, sx, sy := Downscale(img, 800)
	if same != image.Image(img) || sx != 1 || sy != 1 {
		t.Error("image within the limit should be returned unchanged")
	}
}
