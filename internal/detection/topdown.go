package detection

import (
	"math"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

const (
	// borderFraction of the shorter image side counts as "near the border".
	borderFraction = 0.08
	// hullFraction of the image diagonal counts as "on the hull".
	hullFraction = 0.04
	// ridgeFraction of the width is the minimum length of a ridge.
	ridgeFraction = 0.25
	// axisLimit is the largest deviation, in degrees, from 0° or 90° for a
	// line to count as axis-aligned.
	axisLimit = 15.0
)

// labelTopDown labels aerial segments by where they sit relative to the
// convex hull of all endpoints and to the image border:
//
//   - near the border and not horizontal: rake
//   - axis-aligned and on the hull: eave
//   - axis-aligned, long and off the border: ridge
//   - any other diagonal: valley
//   - otherwise: unknown
//
// Confidence is graded by length within each class.
func labelTopDown(segments []Segment, width, height int) []LabeledSegment {
	w, h := float64(width), float64(height)
	border := borderFraction * math.Min(w, h)
	onHull := hullFraction * math.Hypot(w, h)
	hull := convexHull(segmentEndpoints(segments))

	out := make([]LabeledSegment, 0, len(segments))
	for _, s := range segments {
		fromH := s.FromHorizontal()
		axisAligned := fromH <= axisLimit || fromH >= 90-axisLimit
		atBorder := nearBorder(s.Mid(), w, h, border)
		nearHull := distanceToHull(hull, s.Start()) <= onHull && distanceToHull(hull, s.End()) <= onHull
		grade := math.Min(1, s.Length/(0.5*w))

		var l LabeledSegment
		switch {
		case atBorder && fromH > axisLimit:
			l = NewLabeled(s, LabelRake, 0.45+0.25*grade, OriginTopDown)
		case axisAligned && nearHull:
			l = NewLabeled(s, LabelEave, 0.5+0.35*grade, OriginTopDown)
		case axisAligned && s.Length >= ridgeFraction*w && !atBorder:
			l = NewLabeled(s, LabelRidge, 0.5+0.3*grade, OriginTopDown)
		case !axisAligned && !atBorder:
			l = NewLabeled(s, LabelValley, 0.4+0.3*grade, OriginTopDown)
		default:
			l = NewLabeled(s, LabelUnknown, 0.2+0.2*grade, OriginTopDown)
		}
		out = append(out, l)
	}
	return out
}

func nearBorder(p geometry.Point, w, h, margin float64) bool {
	return p.X <= margin || p.Y <= margin || p.X >= w-1-margin || p.Y >= h-1-margin
}
