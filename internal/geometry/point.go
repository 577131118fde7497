package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a 2-D position in image-pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point       { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point       { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(f float64) Point   { return Point{p.X * f, p.Y * f} }
func (p Point) Dot(q Point) float64     { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64   { return p.X*q.Y - p.Y*q.X }
func (p Point) Len() float64            { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64    { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

func (p Point) orb() orb.Point { return orb.Point{p.X, p.Y} }

// ClonePoints returns a copy of ps backed by a new array.
func ClonePoints(ps []Point) []Point {
	if ps == nil {
		return nil
	}
	out := make([]Point, len(ps))
	copy(out, ps)
	return out
}

// FromFlat converts [x0, y0, x1, y1, ...] into points. A trailing odd value is ignored.
func FromFlat(xy []float64) []Point {
	out := make([]Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, Point{xy[i], xy[i+1]})
	}
	return out
}

// ToFlat converts points into [x0, y0, x1, y1, ...].
func ToFlat(ps []Point) []float64 {
	out := make([]float64, 0, 2*len(ps))
	for _, p := range ps {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Shape is a polygon (Closed) or polyline. A closed shape never repeats its
// first point at the end.
type Shape struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Closed bool    `json:"closed"`
}

// Clone returns a copy that owns its own point buffer.
func (s Shape) Clone() Shape {
	s.Points = ClonePoints(s.Points)
	return s
}

// WithPoints returns a copy of s that takes ownership of ps.
func (s Shape) WithPoints(ps []Point) Shape {
	s.Points = ps
	return s
}

// CloneShapes deep-copies a slice of shapes.
func CloneShapes(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

// dedupe drops consecutive points closer than tol. For closed sequences the
// last point is also checked against the first. Fewer than minKeep
// surviving points returns the input.
func dedupe(ps []Point, closed bool, tol float64, minKeep int) []Point {
	if len(ps) < 2 {
		return ClonePoints(ps)
	}
	out := make([]Point, 0, len(ps))
	out = append(out, ps[0])
	for _, p := range ps[1:] {
		if p.Dist(out[len(out)-1]) >= tol {
			out = append(out, p)
		}
	}
	if closed && len(out) > 1 && out[len(out)-1].Dist(out[0]) < tol {
		out = out[:len(out)-1]
	}
	if len(out) < minKeep {
		return ClonePoints(ps)
	}
	return out
}

// turnAngle is the absolute change in heading at b when walking a->b->c, in
// radians within [0, π]. Degenerate legs report zero.
func turnAngle(a, b, c Point) float64 {
	u, v := b.Sub(a), c.Sub(b)
	if u.Len() == 0 || v.Len() == 0 {
		return 0
	}
	return math.Abs(math.Atan2(u.Cross(v), u.Dot(v)))
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
