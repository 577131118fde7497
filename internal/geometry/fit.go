package geometry

import "math"

// Line is an infinite line through Centroid with unit direction Dir.
type Line struct {
	Centroid Point
	Dir      Point
}

// FitLine fits a line to points by principal component analysis.
//
// The direction is the principal eigenvector of the 2x2 covariance matrix,
// taken in closed form as θ = ½·atan2(2·Sxy, Sxx−Syy). It reports false for
// fewer than two points or when all points coincide.
func FitLine(points []Point) (Line, bool) {
	if len(points) < 2 {
		return Line{}, false
	}

	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	cx /= n
	cy /= n

	var sxx, syy, sxy float64
	for _, p := range points {
		dx, dy := p.X-cx, p.Y-cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx+syy == 0 {
		return Line{}, false
	}

	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return Line{
		Centroid: Point{cx, cy},
		Dir:      Point{math.Cos(theta), math.Sin(theta)},
	}, true
}

// Project returns the signed position of p along the line.
func (l Line) Project(p Point) float64 {
	return p.Sub(l.Centroid).Dot(l.Dir)
}

// At returns the point at signed position t along the line.
func (l Line) At(t float64) Point {
	return l.Centroid.Add(l.Dir.Scale(t))
}

// Closest returns the foot of the perpendicular from p.
func (l Line) Closest(p Point) Point {
	return l.At(l.Project(p))
}

// Distance returns the perpendicular distance from p to the line.
func (l Line) Distance(p Point) float64 {
	return math.Abs(p.Sub(l.Centroid).Cross(l.Dir))
}

// Angle returns the undirected angle of the line in [0, π).
func (l Line) Angle() float64 {
	return NormalizeAngle(math.Atan2(l.Dir.Y, l.Dir.X))
}

// NormalizeAngle folds any angle into [0, π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	if a >= math.Pi {
		a -= math.Pi
	}
	return a
}

// AngleDiff returns the smallest difference between two undirected angles, in [0, π/2].
func AngleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}
