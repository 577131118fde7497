package geometry

import "math"

// FlattenOptions controls axis flattening.
type FlattenOptions struct {
	// Tolerance is the maximum deviation from the axis, in degrees, for a
	// segment to be flattened.
	Tolerance float64
	// Blend in [0,1] is how far each endpoint moves toward the shared mean.
	Blend float64
	// Epsilon is the off-axis extent, in pixels, below which a segment is
	// already flat and left alone.
	Epsilon float64
}

// maxFlattenPasses bounds the sweeps flattenAxis makes looking for a
// fixed point. Chains of near-level edges settle well inside it.
const maxFlattenPasses = 64

// FlattenHorizontal levels near-horizontal segments by moving both endpoints'
// Y toward their mean. A leveled segment is always left within Epsilon, and
// segments within Epsilon are untouched, so the result is a fixed point:
// flattening it again changes nothing.
func FlattenHorizontal(points []Point, closed bool, opts FlattenOptions) []Point {
	return flattenAxis(points, closed, opts, false)
}

// FlattenVertical is FlattenHorizontal for near-vertical segments, acting on X.
func FlattenVertical(points []Point, closed bool, opts FlattenOptions) []Point {
	return flattenAxis(points, closed, opts, true)
}

// flattenAxis sweeps the segments until a sweep moves nothing. Leveling one
// segment shifts a vertex it shares with its neighbour, so a single sweep
// can leave that neighbour tilted again.
func flattenAxis(points []Point, closed bool, opts FlattenOptions, vertical bool) []Point {
	out := ClonePoints(points)
	if len(out) < 2 || opts.Blend <= 0 {
		return out
	}
	maxSlope := math.Tan(degToRad(opts.Tolerance))
	for pass := 0; pass < maxFlattenPasses; pass++ {
		if !flattenPass(out, closed, opts, maxSlope, vertical) {
			break
		}
	}
	return out
}

// flattenPass levels every qualifying segment of out in place and reports
// whether any vertex moved.
func flattenPass(out []Point, closed bool, opts FlattenOptions, maxSlope float64, vertical bool) bool {
	segments := len(out) - 1
	if closed && len(out) > 2 {
		segments = len(out)
	}
	moved := false
	for i := 0; i < segments; i++ {
		j := (i + 1) % len(out)
		a, b := out[i], out[j]

		along, pa, pb := math.Abs(b.X-a.X), a.Y, b.Y
		if vertical {
			along, pa, pb = math.Abs(b.Y-a.Y), a.X, b.X
		}
		across := math.Abs(pb - pa)
		if along == 0 || across <= opts.Epsilon || across > along*maxSlope {
			continue
		}

		mean := (pa + pb) / 2
		na, nb := pa+opts.Blend*(mean-pa), pb+opts.Blend*(mean-pb)
		if math.Abs(nb-na) > opts.Epsilon {
			// Blend alone leaves it outside Epsilon; level to half of it.
			if opts.Epsilon <= 0 {
				na, nb = mean, mean
			} else {
				blend := 1 - opts.Epsilon/(2*across)
				na, nb = pa+blend*(mean-pa), pb+blend*(mean-pb)
			}
		}
		if vertical {
			out[i].X, out[j].X = na, nb
		} else {
			out[i].Y, out[j].Y = na, nb
		}
		moved = true
	}
	return moved
}
