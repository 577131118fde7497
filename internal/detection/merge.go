package detection

import (
	"math"
	"sort"
)

// MergeOptions controls MergeSegments.
type MergeOptions struct {
	// Angle is the maximum direction difference in degrees.
	Angle float64
	// Gap is the lateral and end-to-end tolerance in pixels.
	Gap float64
	// Passes is the number of merge sweeps.
	Passes int
}

// MergeSegments consolidates broken or duplicated detections.
//
// Segments are visited longest first. Two segments merge when their
// directions agree within Angle, the shorter one's midpoint lies within Gap
// of the longer one's line, and their extents along that line overlap or
// come within Gap of each other. The merged segment spans the union of both
// extents on the first segment's axis. Inputs are not modified.
func MergeSegments(segments []Segment, opts MergeOptions) []Segment {
	out := append([]Segment(nil), segments...)
	for pass := 0; pass < opts.Passes; pass++ {
		next := mergePass(out, opts)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
	return out
}

func mergePass(segments []Segment, opts MergeOptions) []Segment {
	sorted := append([]Segment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Length > sorted[j].Length
	})

	limit := opts.Angle * math.Pi / 180
	used := make([]bool, len(sorted))
	merged := make([]Segment, 0, len(sorted))
	for i := range sorted {
		if used[i] {
			continue
		}
		cur := sorted[i]
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if joined, ok := tryMerge(cur, sorted[j], limit, opts.Gap); ok {
				cur = joined
				used[j] = true
			}
		}
		merged = append(merged, cur)
	}
	return merged
}

// tryMerge joins b onto a's axis when the two are near-collinear and touching.
func tryMerge(a, b Segment, limit, gap float64) (Segment, bool) {
	if angleBetween(a, b) > limit {
		return Segment{}, false
	}
	line := a.Line()
	if line.Distance(b.Mid()) > gap {
		return Segment{}, false
	}

	a1, a2 := line.Project(a.Start()), line.Project(a.End())
	b1, b2 := line.Project(b.Start()), line.Project(b.End())
	aLo, aHi := math.Min(a1, a2), math.Max(a1, a2)
	bLo, bHi := math.Min(b1, b2), math.Max(b1, b2)
	if bLo-aHi > gap || aLo-bHi > gap {
		return Segment{}, false
	}

	lo, hi := math.Min(aLo, bLo), math.Max(aHi, bHi)
	return a.WithEndpoints(line.At(lo), line.At(hi)), true
}

func angleBetween(a, b Segment) float64 {
	d := math.Abs(a.Angle - b.Angle)
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}
