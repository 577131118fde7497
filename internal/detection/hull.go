package detection

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

// convexHull returns the hull of points by Andrew's monotone chain, starting
// from the leftmost point. Collinear boundary points are dropped. Fewer than three distinct points
// are returned as they are.
func convexHull(points []geometry.Point) []geometry.Point {
	pts := append([]geometry.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return uniq
	}

	cross := func(o, a, b geometry.Point) float64 {
		return a.Sub(o).Cross(b.Sub(o))
	}
	hull := make([]geometry.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// distanceToHull is the distance from p to the nearest hull edge.
func distanceToHull(hull []geometry.Point, p geometry.Point) float64 {
	switch len(hull) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Dist(hull[0])
	}
	q := orb.Point{p.X, p.Y}
	best := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		d := planar.DistanceFromSegment(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y}, q)
		best = math.Min(best, d)
	}
	return best
}

// segmentEndpoints flattens segments into their endpoints.
func segmentEndpoints(segments []Segment) []geometry.Point {
	out := make([]geometry.Point, 0, 2*len(segments))
	for _, s := range segments {
		out = append(out, s.Start(), s.End())
	}
	return out
}
