package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Simplify reduces points with Ramer–Douglas–Peucker at tolerance epsilon.
//
// A closed sequence is simplified as a ring anchored at its first point.
// epsilon <= 0 returns an unchanged copy. If simplification would leave a
// closed shape with fewer than 3 points (or an open one with fewer than 2),
// the input is returned. The input slice is never modified.
func Simplify(points []Point, epsilon float64, closed bool) []Point {
	if epsilon <= 0 || len(points) < 3 {
		return ClonePoints(points)
	}

	ls := make(orb.LineString, 0, len(points)+1)
	for _, p := range points {
		ls = append(ls, p.orb())
	}

	minKeep := 2
	if closed {
		ls = append(ls, points[0].orb())
		ls = orb.LineString(simplify.DouglasPeucker(epsilon).Ring(orb.Ring(ls)))
		ls = ls[:len(ls)-1]
		minKeep = 3
	} else {
		ls = simplify.DouglasPeucker(epsilon).LineString(ls)
	}

	if len(ls) < minKeep {
		return ClonePoints(points)
	}
	out := make([]Point, len(ls))
	for i, p := range ls {
		out[i] = Point{p[0], p[1]}
	}
	return out
}

// Area returns the unsigned area enclosed by a closed point sequence.
func Area(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, p.orb())
	}
	ring = append(ring, points[0].orb())
	return math.Abs(planar.Area(ring))
}
