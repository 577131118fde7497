package imaging

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// Gray is a single-channel intensity buffer on the 0-255 scale.
//
// A Gray is owned by the stage that produced it. Every transform in this
// package allocates a new buffer and leaves its input untouched, so a buffer
// handed to the next stage can be treated as immutable.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray allocates a zeroed buffer of the given size.
func NewGray(width, height int) *Gray {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Gray{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// GrayFromImage converts img to luma using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B) on 8-bit channels.
func GrayFromImage(img image.Image) *Gray {
	bounds := img.Bounds()
	g := NewGray(bounds.Dx(), bounds.Dy())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r, gr, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			g.Pix[y*g.Width+x] = 0.299*float64(r>>8) + 0.587*float64(gr>>8) + 0.114*float64(b>>8)
		}
	}
	return g
}

// Empty reports whether the buffer has no pixels.
func (g *Gray) Empty() bool {
	return g == nil || g.Width == 0 || g.Height == 0
}

// At returns the intensity at (x, y) with coordinates clamped to the buffer.
func (g *Gray) At(x, y int) float64 {
	return g.Pix[clamp(y, 0, g.Height-1)*g.Width+clamp(x, 0, g.Width-1)]
}

// Bilinear samples the buffer at a sub-pixel position, clamping at the borders.
func (g *Gray) Bilinear(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	top := g.At(x0, y0)*(1-fx) + g.At(x0+1, y0)*fx
	bottom := g.At(x0, y0+1)*(1-fx) + g.At(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	out := &Gray{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// RowStats returns the mean and population standard deviation of rows [y0, y1).
func (g *Gray) RowStats(y0, y1 int) (mean, stddev float64) {
	y0 = clamp(y0, 0, g.Height)
	y1 = clamp(y1, 0, g.Height)
	n := (y1 - y0) * g.Width
	if n <= 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range g.Pix[y0*g.Width : y1*g.Width] {
		sum += v
		sumSq += v * v
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// SampleMedian returns the median of roughly maxSamples evenly strided pixels.
func (g *Gray) SampleMedian(maxSamples int) float64 {
	n := len(g.Pix)
	if n == 0 {
		return 0
	}
	step := 1
	if maxSamples > 0 && n > maxSamples {
		step = n / maxSamples
	}
	samples := make([]float64, 0, n/step+1)
	for i := 0; i < n; i += step {
		samples = append(samples, g.Pix[i])
	}
	sort.Float64s(samples)
	return samples[len(samples)/2]
}

// Image converts the buffer to an 8-bit image.Gray, rounding and clamping.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Pix {
		img.Pix[i] = toByte(v)
	}
	return img
}

// grayFromRGBA reads the red channel of an image produced by a filter that
// was fed a grayscale image, so all channels are equal.
func grayFromRGBA(img *image.RGBA) *Gray {
	bounds := img.Bounds()
	g := NewGray(bounds.Dx(), bounds.Dy())
	for y := 0; y < g.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < g.Width; x++ {
			g.Pix[y*g.Width+x] = float64(row[x*4])
		}
	}
	return g
}

// Downscale resizes img so that its width does not exceed maxWidth,
// preserving aspect ratio. It returns the image to process together with the
// factors that map processing coordinates back to source coordinates.
// Images already within the limit are returned as-is with factors of 1.
func Downscale(img image.Image, maxWidth int) (out image.Image, scaleX, scaleY float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || w <= maxWidth || w == 0 || h == 0 {
		return img, 1, 1
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Linear)
	rb := resized.Bounds()
	return resized, float64(w) / float64(rb.Dx()), float64(h) / float64(rb.Dy())
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// grayColor is used when drawing binary masks.
func grayColor(on bool) color.Gray {
	if on {
		return color.Gray{Y: 255}
	}
	return color.Gray{}
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
