package geometry

import (
	"math"

	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// OutlineOptions configures CleanupOutline. Values are read once per call.
type OutlineOptions struct {
	// CoarseEpsilon and FineEpsilon are RDP tolerances as fractions of the
	// image diagonal for the first and last simplification passes.
	CoarseEpsilon float64
	FineEpsilon   float64

	EdgeSnap EdgeSnapOptions

	// CollinearAngle in degrees: vertices turning less than this are removed
	// before straightening.
	CollinearAngle float64
	Straighten     StraightenOptions
	Flatten        FlattenOptions
	// FlattenVertical also levels near-vertical edges on X.
	FlattenVertical bool

	// CloseFraction is the auto-close band limit as a fraction of image width.
	CloseFraction float64
	// DedupeTolerance merges consecutive vertices closer than this, in pixels.
	DedupeTolerance float64
	// MinAreaRatio rejects a result whose area fell below this share of the input's.
	MinAreaRatio float64
}

// DefaultOutlineOptions returns the defaults for detector-produced outlines.
func DefaultOutlineOptions() OutlineOptions {
	return OutlineOptions{
		CoarseEpsilon: 0.013,
		FineEpsilon:   0.008,
		EdgeSnap: EdgeSnapOptions{
			Window:      0.10,
			HalfWidth:   3,
			MinGradient: 40,
			Ratio:       1.5,
		},
		CollinearAngle:  10,
		Straighten:      StraightenOptions{BreakAngle: 20, Blend: 0.85},
		Flatten:         FlattenOptions{Tolerance: 12, Blend: 0.88, Epsilon: 1},
		FlattenVertical: true,
		CloseFraction:   0.05,
		DedupeTolerance: 0.5,
		MinAreaRatio:    0.25,
	}
}

// GeometryOptions configures CleanupGeometry.
type GeometryOptions struct {
	Straighten StraightenOptions
	// SnapRadius in pixels for endpoint clustering.
	SnapRadius float64
	// AngleTolerance in degrees; segments further than this from a multiple
	// of 45° keep their direction. 22.5 snaps every segment.
	AngleTolerance  float64
	CloseFraction   float64
	DedupeTolerance float64
}

// DefaultGeometryOptions returns the defaults for hand-drawn geometry.
func DefaultGeometryOptions() GeometryOptions {
	return GeometryOptions{
		Straighten:      StraightenOptions{BreakAngle: 25, Blend: 0.82},
		SnapRadius:      8,
		AngleTolerance:  22.5,
		CloseFraction:   0.05,
		DedupeTolerance: 0.5,
	}
}

// Frame describes the image a shape was traced on.
type Frame struct {
	Width  int
	Height int
	// Gradient is an optional vertical-gradient field for edge snapping.
	Gradient *imaging.Gray
}

func (f Frame) diagonal() float64 {
	return math.Hypot(float64(f.Width), float64(f.Height))
}

// CleanupOutline refines an automatically detected roof outline.
//
// The points are treated as a ring throughout. Stages, in order:
//
//  1. coarse RDP simplification
//  2. downward snap onto horizontal image edges (skipped without a gradient)
//  3. duplicate and collinear vertex removal, then breakpoint straightening
//  4. horizontal (and optionally vertical) flattening
//  5. fine RDP simplification
//  6. auto-close, when the outline arrived as an open trace
//
// The result is always marked closed. Inputs with fewer than 3 points come
// back unchanged. If the result encloses less than MinAreaRatio of the
// input's area, the input is returned instead.
func CleanupOutline(outline Shape, frame Frame, opts OutlineOptions) Shape {
	input := outline.Clone()
	points := outline.Points
	if len(points) < 3 {
		return input
	}
	diag := frame.diagonal()

	p := Simplify(points, opts.CoarseEpsilon*diag, true)
	p = SnapToEdges(p, frame.Gradient, frame.Width, frame.Height, opts.EdgeSnap)
	p = dedupe(p, true, opts.DedupeTolerance, 3)
	p = RemoveCollinear(p, true, opts.CollinearAngle)
	p = Straighten(p, true, opts.Straighten)
	p = FlattenHorizontal(p, true, opts.Flatten)
	if opts.FlattenVertical {
		p = FlattenVertical(p, true, opts.Flatten)
	}
	p = Simplify(p, opts.FineEpsilon*diag, true)

	out := AutoClose(outline.WithPoints(p), float64(frame.Width), opts.CloseFraction)
	out.Closed = true
	if len(out.Points) < 3 {
		return input
	}
	if before := Area(points); before > 0 && Area(out.Points) < opts.MinAreaRatio*before {
		return input
	}
	return out
}

// CleanupGeometry tidies hand-drawn geometry: straighten, snap endpoints
// together, snap line angles, then auto-close. Lines whose ID is in locked
// are returned exactly as given.
func CleanupGeometry(g Geometry, frame Frame, locked map[string]bool, opts GeometryOptions) Geometry {
	out := g.Clone()
	width := float64(frame.Width)

	if len(out.Outline.Points) >= 3 {
		out.Outline.Points = Straighten(out.Outline.Points, out.Outline.Closed, opts.Straighten)
	}
	for i, line := range out.Lines {
		if locked[line.ID] {
			continue
		}
		out.Lines[i].Points = Straighten(line.Points, line.Closed, opts.Straighten)
	}

	out = SnapEndpoints(out, opts.SnapRadius, opts.DedupeTolerance, locked)

	for i, line := range out.Lines {
		if locked[line.ID] || line.Closed {
			continue
		}
		out.Lines[i].Points = SnapAngles(line.Points, opts.AngleTolerance)
	}

	if len(out.Outline.Points) > 0 {
		out.Outline = AutoClose(out.Outline, width, opts.CloseFraction)
	}
	for i, line := range out.Lines {
		if locked[line.ID] {
			continue
		}
		out.Lines[i] = AutoClose(line, width, opts.CloseFraction)
	}
	return out
}
