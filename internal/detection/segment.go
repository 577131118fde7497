package detection

import (
	"math"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

// Segment is an undirected line segment in pixel coordinates.
//
// Angle is the undirected line angle in radians within [0, π), measured from
// the +X axis with Y pointing down. Segments are values: every operation
// returns a new Segment.
type Segment struct {
	ID     string  `json:"id,omitempty"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Angle  float64 `json:"angle"`
	Length float64 `json:"length"`
}

// NewSegment builds a segment between two endpoints and derives its angle and length.
func NewSegment(x1, y1, x2, y2 float64) Segment {
	return Segment{
		X1:     x1,
		Y1:     y1,
		X2:     x2,
		Y2:     y2,
		Angle:  geometry.NormalizeAngle(math.Atan2(y2-y1, x2-x1)),
		Length: math.Hypot(x2-x1, y2-y1),
	}
}

// SegmentBetween is NewSegment for two points.
func SegmentBetween(a, b geometry.Point) Segment {
	return NewSegment(a.X, a.Y, b.X, b.Y)
}

// WithEndpoints returns a copy with new endpoints; the ID is kept.
func (s Segment) WithEndpoints(a, b geometry.Point) Segment {
	out := SegmentBetween(a, b)
	out.ID = s.ID
	return out
}

func (s Segment) Start() geometry.Point { return geometry.Pt(s.X1, s.Y1) }
func (s Segment) End() geometry.Point   { return geometry.Pt(s.X2, s.Y2) }

// Mid returns the midpoint.
func (s Segment) Mid() geometry.Point {
	return geometry.Pt((s.X1+s.X2)/2, (s.Y1+s.Y2)/2)
}

// Dir returns the unit direction of Angle.
func (s Segment) Dir() geometry.Point {
	return geometry.Pt(math.Cos(s.Angle), math.Sin(s.Angle))
}

// Line returns the infinite line through the segment.
func (s Segment) Line() geometry.Line {
	return geometry.Line{Centroid: s.Mid(), Dir: s.Dir()}
}

// Top returns the endpoint with the smaller Y, and the other one.
func (s Segment) Top() (top, bottom geometry.Point) {
	if s.Y1 <= s.Y2 {
		return s.Start(), s.End()
	}
	return s.End(), s.Start()
}

// FromHorizontal returns the angle to the horizontal in degrees, within [0, 90].
func (s Segment) FromHorizontal() float64 {
	return geometry.AngleDiff(s.Angle, 0) * 180 / math.Pi
}

// Scaled maps the segment into another pixel space.
func (s Segment) Scaled(sx, sy float64) Segment {
	out := NewSegment(s.X1*sx, s.Y1*sy, s.X2*sx, s.Y2*sy)
	out.ID = s.ID
	return out
}

// Translated shifts the segment by (dx, dy).
func (s Segment) Translated(dx, dy float64) Segment {
	out := NewSegment(s.X1+dx, s.Y1+dy, s.X2+dx, s.Y2+dy)
	out.ID = s.ID
	return out
}

// Label is the structural role of a roof line.
type Label string

const (
	LabelEave      Label = "eave"
	LabelRidge     Label = "ridge"
	LabelValley    Label = "valley"
	LabelHip       Label = "hip"
	LabelRake      Label = "rake"
	LabelRakeLeft  Label = "rake-left"
	LabelRakeRight Label = "rake-right"
	LabelUnknown   Label = "unknown"
)

// ParseLabel maps a free-form kind onto a Label; unrecognized kinds become LabelUnknown.
func ParseLabel(kind string) Label {
	switch l := Label(kind); l {
	case LabelEave, LabelRidge, LabelValley, LabelHip, LabelRake, LabelRakeLeft, LabelRakeRight:
		return l
	}
	return LabelUnknown
}

// Origins record which producer emitted a labeled segment.
const (
	OriginFacade  = "facade"
	OriginTopDown = "topdown"
	OriginRemote  = "remote"
)

// LabeledSegment is a segment with a role and a confidence in [0, 1].
type LabeledSegment struct {
	Segment
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Origin     string  `json:"origin"`
}

// NewLabeled labels seg with a clamped confidence.
func NewLabeled(seg Segment, label Label, confidence float64, origin string) LabeledSegment {
	return LabeledSegment{Segment: seg, Label: label, Confidence: clamp01(confidence), Origin: origin}
}

// WithLabel returns a copy with a new label.
func (l LabeledSegment) WithLabel(label Label) LabeledSegment {
	l.Label = label
	return l
}

// WithSegment returns a copy with new geometry.
func (l LabeledSegment) WithSegment(seg Segment) LabeledSegment {
	l.Segment = seg
	return l
}

// Boost adds delta to the confidence, clamped to [0, 1].
func (l LabeledSegment) Boost(delta float64) LabeledSegment {
	l.Confidence = clamp01(l.Confidence + delta)
	return l
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func segmentsOf(labeled []LabeledSegment) []Segment {
	out := make([]Segment, len(labeled))
	for i, l := range labeled {
		out[i] = l.Segment
	}
	return out
}
