package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Edge map pixel states. Weak pixels only exist while hysteresis runs.
const (
	EdgeNone   uint8 = 0
	EdgeWeak   uint8 = 128
	EdgeStrong uint8 = 255
)

// minCannyLow keeps very dark images from turning flat regions into edges.
const minCannyLow = 8

// EdgeMap is a binary edge grid with the undirected gradient orientation of
// every pixel, in radians within [0, π). Orient is NaN where the gradient
// vanishes, which includes gap pixels filled in by Close.
type EdgeMap struct {
	Width  int
	Height int
	Pix    []uint8
	Orient []float64

	// Low and High are the hysteresis thresholds that produced the map.
	Low  float64
	High float64
}

// On reports whether (x, y) is an edge pixel. Out-of-range coordinates are off.
func (e *EdgeMap) On(x, y int) bool {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return false
	}
	return e.Pix[y*e.Width+x] == EdgeStrong
}

// Count returns the number of edge pixels.
func (e *EdgeMap) Count() int {
	n := 0
	for _, v := range e.Pix {
		if v == EdgeStrong {
			n++
		}
	}
	return n
}

// Image renders the map as white edges on black.
func (e *EdgeMap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, e.Width, e.Height))
	for i, v := range e.Pix {
		img.Pix[i] = grayColor(v == EdgeStrong).Y
	}
	return img
}

// Close applies a morphological close (dilate then erode) with a square
// window of side 2*radius+1, bridging gaps of up to about radius pixels.
// The orientation field is shared with the receiver since it is never written.
func (e *EdgeMap) Close(radius int) *EdgeMap {
	out := &EdgeMap{Width: e.Width, Height: e.Height, Orient: e.Orient, Low: e.Low, High: e.High}
	if radius <= 0 || e.Width == 0 || e.Height == 0 {
		out.Pix = append([]uint8(nil), e.Pix...)
		return out
	}
	closed := effect.Erode(effect.Dilate(e.Image(), float64(radius)), float64(radius))
	out.Pix = make([]uint8, len(e.Pix))
	for y := 0; y < e.Height; y++ {
		row := closed.Pix[y*closed.Stride:]
		for x := 0; x < e.Width; x++ {
			if row[x*4] > 127 {
				out.Pix[y*e.Width+x] = EdgeStrong
			}
		}
	}
	return out
}

// CannyThresholds derives hysteresis thresholds from a median intensity.
//
// With s the sensitivity in [0,1]:
//
//	σ    = 0.10 + 0.45*s
//	gain = 1 - s/2
//	low  = (1-σ) * median * gain
//	high = (1+σ) * median * gain
//
// Both thresholds fall as s rises, so raising sensitivity never removes edges.
func CannyThresholds(median, sensitivity float64) (low, high float64) {
	s := math.Max(0, math.Min(1, sensitivity))
	sigma := 0.10 + 0.45*s
	gain := 1 - s/2
	low = (1 - sigma) * median * gain
	high = (1 + sigma) * median * gain
	if low < minCannyLow {
		low = minCannyLow
	}
	if high < low {
		high = low
	}
	return low, high
}

// AutoCanny runs Canny edge detection with thresholds chosen from the median
// of a sparse pixel sample.
//
// # Algorithm
//
//  1. Median of about 4096 strided samples, mapped to thresholds by CannyThresholds.
//  2. Sobel gradients and magnitude (see Sobel).
//  3. Non-maximum suppression: the gradient direction is quantized into the
//     0°, 45°, 90° and 135° bins and each pixel is kept only if its magnitude
//     is at least that of both neighbors along the bin direction.
//  4. Hysteresis: pixels ≥ high seed a breadth-first search that grows through
//     8-connected pixels ≥ low. Unreached weak pixels are discarded.
//
// The input is not blurred here; callers smooth first (see Preprocess).
func AutoCanny(src *Gray, sensitivity float64) *EdgeMap {
	low, high := CannyThresholds(src.SampleMedian(4096), sensitivity)
	return Canny(src, low, high)
}

// Canny runs edge detection with explicit thresholds on gradient magnitude.
func Canny(src *Gray, low, high float64) *EdgeMap {
	width, height := src.Width, src.Height
	edges := &EdgeMap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
		Orient: make([]float64, width*height),
		Low:    low,
		High:   high,
	}
	if src.Empty() {
		return edges
	}

	grad := Sobel(src)
	magnitude := grad.Magnitude().Pix
	for i := range edges.Orient {
		if grad.GX[i] == 0 && grad.GY[i] == 0 {
			edges.Orient[i] = math.NaN()
			continue
		}
		a := math.Atan2(grad.GY[i], grad.GX[i])
		if a < 0 {
			a += math.Pi
		}
		if a >= math.Pi {
			a -= math.Pi
		}
		edges.Orient[i] = a
	}

	// Non-maximum suppression into the tri-state grid.
	var queue []int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < low || mag <= 0 {
				continue
			}

			dx, dy := nmsOffset(edges.Orient[i])
			n1 := magnitude[(y+dy)*width+x+dx]
			n2 := magnitude[(y-dy)*width+x-dx]
			if mag < n1 || mag < n2 {
				continue
			}

			if mag >= high {
				edges.Pix[i] = EdgeStrong
				queue = append(queue, i)
			} else {
				edges.Pix[i] = EdgeWeak
			}
		}
	}

	// Hysteresis: grow strong seeds through weak 8-neighbors.
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%width, i/width
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				px, py := x+kx, y+ky
				if px < 0 || py < 0 || px >= width || py >= height {
					continue
				}
				j := py*width + px
				if edges.Pix[j] == EdgeWeak {
					edges.Pix[j] = EdgeStrong
					queue = append(queue, j)
				}
			}
		}
	}

	for i, v := range edges.Pix {
		if v == EdgeWeak {
			edges.Pix[i] = EdgeNone
		}
	}
	return edges
}

// nmsOffset maps an undirected gradient orientation to the neighbor offset
// along the gradient for one of the four direction bins.
func nmsOffset(orient float64) (dx, dy int) {
	deg := orient * 180 / math.Pi
	switch {
	case deg < 22.5 || deg >= 157.5:
		return 1, 0
	case deg < 67.5:
		return 1, 1
	case deg < 112.5:
		return 0, 1
	default:
		return -1, 1
	}
}

// EdgeMapResult contains an edge map encoded as base64 PNG.
type EdgeMapResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
	EdgePixels  int     `json:"edge_pixels"`
	LowThresh   float64 `json:"low_threshold"`
	HighThresh  float64 `json:"high_threshold"`
}

// EncodeEdgeMap renders the map as a grayscale PNG with edges in white.
func EncodeEdgeMap(edges *EdgeMap) (*EdgeMapResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, edges.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}
	return &EdgeMapResult{
		Width:       edges.Width,
		Height:      edges.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		EdgePixels:  edges.Count(),
		LowThresh:   edges.Low,
		HighThresh:  edges.High,
	}, nil
}
