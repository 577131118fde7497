package detection

import (
	"math"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// pixel is an integer edge-map coordinate.
type pixel struct {
	X, Y int
}

// findComponents groups edge pixels into 8-connected components.
//
// With a positive tolerance (radians) a pixel joins a component only while
// its gradient orientation stays within tolerance of the component's running
// mean orientation, so edges meeting at a corner come out as separate
// components. Components smaller than minPixels are discarded as noise.
func findComponents(edges *imaging.EdgeMap, minPixels int, tolerance float64) [][]pixel {
	visited := make([]bool, edges.Width*edges.Height)
	components := make([][]pixel, 0)

	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			i := y*edges.Width + x
			if visited[i] || !edges.On(x, y) {
				continue
			}
			component := floodFill(edges, visited, x, y, tolerance)
			if len(component) >= minPixels {
				components = append(components, component)
			}
		}
	}
	return components
}

// floodFill grows one component from (startX, startY) with an explicit stack.
//
// The running mean of undirected orientations is kept as a doubled-angle
// vector sum so that 1° and 179° average to 0° rather than 90°.
func floodFill(edges *imaging.EdgeMap, visited []bool, startX, startY int, tolerance float64) []pixel {
	var sumCos, sumSin float64
	component := make([]pixel, 0)
	stack := []pixel{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !edges.On(p.X, p.Y) {
			continue
		}
		i := p.Y*edges.Width + p.X
		if visited[i] {
			continue
		}

		// Pixels without a gradient (closed gaps) join freely and do not
		// move the mean.
		orient := edges.Orient[i]
		flat := math.IsNaN(orient)
		if tolerance > 0 && !flat && (sumCos != 0 || sumSin != 0) {
			mean := 0.5 * math.Atan2(sumSin, sumCos)
			if geometry.AngleDiff(orient, mean) > tolerance {
				continue
			}
		}

		visited[i] = true
		component = append(component, p)
		if !flat {
			sumCos += math.Cos(2 * orient)
			sumSin += math.Sin(2 * orient)
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return component
}

// fitSegment fits a segment to a component by PCA and spans it between the
// extreme projections of its pixels.
func fitSegment(component []pixel) (Segment, bool) {
	points := make([]geometry.Point, len(component))
	for i, p := range component {
		points[i] = geometry.Pt(float64(p.X), float64(p.Y))
	}
	line, ok := geometry.FitLine(points)
	if !ok {
		return Segment{}, false
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		t := line.Project(p)
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return SegmentBetween(line.At(lo), line.At(hi)), true
}

// ExtractSegments turns an edge map into line segments: components, PCA
// fit, then a minimum length of minLength pixels.
func ExtractSegments(edges *imaging.EdgeMap, minPixels int, orientationTolerance, minLength float64) []Segment {
	tolerance := orientationTolerance * math.Pi / 180
	segments := make([]Segment, 0)
	for _, component := range findComponents(edges, minPixels, tolerance) {
		seg, ok := fitSegment(component)
		if !ok || seg.Length < minLength {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}
