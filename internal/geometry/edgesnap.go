package geometry

import (
	"math"

	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// EdgeSnapOptions controls SnapToEdges.
type EdgeSnapOptions struct {
	// Window is how far below a vertex to search, as a fraction of image height.
	Window float64
	// HalfWidth is the horizontal averaging radius in gradient pixels.
	HalfWidth int
	// MinGradient is the absolute floor a row's averaged gradient must reach.
	MinGradient float64
	// Ratio is how many times the window's mean response the best row must reach.
	Ratio float64
}

// SnapToEdges moves each vertex straight down onto the strongest horizontal
// edge within a bounded window.
//
// grad is a vertical-gradient magnitude field (see imaging.Gradient) that may
// be at a different resolution from the imageW x imageH space the points live
// in. For each vertex the rows from its own position down to Window*height
// are scored by the gradient averaged over ±HalfWidth columns. The vertex
// moves only when the best row lies strictly below it and clears both
// MinGradient and Ratio times the window mean. Vertices never move up.
//
// A missing or empty gradient field skips snapping and returns a copy.
func SnapToEdges(points []Point, grad *imaging.Gray, imageW, imageH int, opts EdgeSnapOptions) []Point {
	out := ClonePoints(points)
	if grad.Empty() || imageW <= 0 || imageH <= 0 || opts.Window <= 0 {
		return out
	}

	sx := float64(grad.Width) / float64(imageW)
	sy := float64(grad.Height) / float64(imageH)
	window := int(math.Round(opts.Window * float64(grad.Height)))
	if window < 1 {
		return out
	}
	halfWidth := opts.HalfWidth
	if halfWidth < 0 {
		halfWidth = 0
	}

	for i, p := range points {
		gx := int(math.Round(p.X * sx))
		start := int(math.Round(p.Y * sy))
		if start < 0 || start >= grad.Height {
			continue
		}
		last := start + window
		if last > grad.Height-1 {
			last = grad.Height - 1
		}

		bestRow, best := start, rowResponse(grad, gx, start, halfWidth)
		var sum float64
		for r := start; r <= last; r++ {
			v := rowResponse(grad, gx, r, halfWidth)
			sum += v
			if v > best {
				bestRow, best = r, v
			}
		}
		mean := sum / float64(last-start+1)

		if bestRow > start && best >= opts.MinGradient && best >= opts.Ratio*mean {
			out[i].Y = float64(bestRow) / sy
		}
	}
	return out
}

func rowResponse(grad *imaging.Gray, x, y, halfWidth int) float64 {
	var sum float64
	for k := -halfWidth; k <= halfWidth; k++ {
		sum += grad.At(x+k, y)
	}
	return sum / float64(2*halfWidth+1)
}
