package imaging

import (
	"math"

	"github.com/anthonynsimon/bild/effect"
)

// Median applies a (2*radius+1)^2 median filter.
//
// The buffer is quantized to 8 bits for the filter, so sub-level precision is lost.
func Median(src *Gray, radius int) *Gray {
	if src.Empty() || radius <= 0 {
		return src.Clone()
	}
	return grayFromRGBA(effect.Median(src.Image(), float64(radius)))
}

// Gradient holds per-pixel Sobel responses of a Gray buffer.
type Gradient struct {
	Width  int
	Height int
	GX     []float64
	GY     []float64
}

// Sobel computes 3x3 Sobel gradients with clamped borders.
func Sobel(src *Gray) *Gradient {
	grad := &Gradient{
		Width:  src.Width,
		Height: src.Height,
		GX:     make([]float64, len(src.Pix)),
		GY:     make([]float64, len(src.Pix)),
	}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			tl, tc, tr := src.At(x-1, y-1), src.At(x, y-1), src.At(x+1, y-1)
			ml, mr := src.At(x-1, y), src.At(x+1, y)
			bl, bc, br := src.At(x-1, y+1), src.At(x, y+1), src.At(x+1, y+1)

			i := y*src.Width + x
			grad.GX[i] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			grad.GY[i] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return grad
}

// Magnitude returns sqrt(gx^2 + gy^2) as a new buffer.
func (g *Gradient) Magnitude() *Gray {
	out := NewGray(g.Width, g.Height)
	for i := range out.Pix {
		out.Pix[i] = math.Hypot(g.GX[i], g.GY[i])
	}
	return out
}

// VerticalMagnitude returns |gy|, the response to horizontal edges.
func (g *Gradient) VerticalMagnitude() *Gray {
	out := NewGray(g.Width, g.Height)
	for i, v := range g.GY {
		if v < 0 {
			v = -v
		}
		out.Pix[i] = v
	}
	return out
}
