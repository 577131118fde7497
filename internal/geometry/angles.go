package geometry

import "math"

const octant = math.Pi / 4

// SnapAngles rotates each segment of a polyline onto the nearest multiple of
// 45°, anchored at its (already snapped) first point and keeping its length.
// Segments deviating by more than tolerance degrees keep their direction but
// still follow the moved anchor.
func SnapAngles(points []Point, tolerance float64) []Point {
	out := ClonePoints(points)
	limit := degToRad(tolerance)
	for i := 1; i < len(points); i++ {
		v := points[i].Sub(points[i-1])
		length := v.Len()
		if length == 0 {
			out[i] = out[i-1]
			continue
		}
		a := math.Atan2(v.Y, v.X)
		snapped := math.Round(a/octant) * octant
		if math.Abs(a-snapped) > limit {
			out[i] = out[i-1].Add(v)
			continue
		}
		out[i] = out[i-1].Add(Point{math.Cos(snapped), math.Sin(snapped)}.Scale(length))
	}
	return out
}

// AutoClose closes a polyline whose ends nearly meet.
//
// When the first and last points are more than 0.5px but less than
// closeFraction*width apart, the last point is dropped and the shape is
// marked closed. Already-closed shapes and shapes that would be left with
// fewer than 3 points are returned unchanged.
func AutoClose(s Shape, width, closeFraction float64) Shape {
	out := s.Clone()
	n := len(out.Points)
	if out.Closed || n < 4 {
		return out
	}
	d := out.Points[0].Dist(out.Points[n-1])
	if d <= 0.5 || d >= closeFraction*width {
		return out
	}
	out.Points = out.Points[:n-1]
	out.Closed = true
	return out
}
