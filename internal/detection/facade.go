package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

const (
	// horizontalLimit is the largest angle from horizontal, in degrees, that
	// still counts as a horizontal line. Diagonals lie above it.
	horizontalLimit = 15.0
	// labelBoost is added to ridge and eave candidates that survive capping.
	labelBoost = 0.1
	// peakPasses bounds gable peak consolidation.
	peakPasses = 3
)

// contrastOffsets are the perpendicular distances, in pixels, at which the
// two sides of a line are compared.
var contrastOffsets = []float64{1.5, 3}

// contrastSamples is the number of positions sampled along a line.
const contrastSamples = 7

func isHorizontal(s Segment) bool { return s.FromHorizontal() <= horizontalLimit }

// FilterOrientation drops segments steeper than maxFromHorizontal degrees.
func FilterOrientation(segments []Segment, maxFromHorizontal float64) []Segment {
	kept := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.FromHorizontal() <= maxFromHorizontal {
			kept = append(kept, s)
		}
	}
	return kept
}

// CrossContrast is the mean absolute gray difference across a segment,
// sampled at evenly spaced positions and at each of the contrast offsets on
// both sides of the line.
func CrossContrast(s Segment, g *imaging.Gray) float64 {
	if g.Empty() || s.Length == 0 {
		return 0
	}
	dir := s.End().Sub(s.Start()).Scale(1 / s.Length)
	normal := geometry.Pt(-dir.Y, dir.X)

	var sum float64
	var n int
	for k := 1; k <= contrastSamples; k++ {
		p := s.Start().Lerp(s.End(), float64(k)/float64(contrastSamples+1))
		for _, off := range contrastOffsets {
			a := p.Add(normal.Scale(off))
			b := p.Sub(normal.Scale(off))
			sum += math.Abs(g.Bilinear(a.X, a.Y) - g.Bilinear(b.X, b.Y))
			n++
		}
	}
	return sum / float64(n)
}

// FilterContrast keeps segments whose CrossContrast reaches threshold.
func FilterContrast(segments []Segment, g *imaging.Gray, threshold float64) []Segment {
	kept := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if CrossContrast(s, g) >= threshold {
			kept = append(kept, s)
		}
	}
	return kept
}

// baseConfidence grows with length, saturating at 35% of the image width.
func baseConfidence(s Segment, width float64) float64 {
	return 0.45 + 0.35*math.Min(1, s.Length/(0.35*width))
}

// inferRoofBottom returns the midpoint Y of the lowest horizontal segment
// above limit, or limit itself when there is none.
func inferRoofBottom(segments []Segment, limit float64) float64 {
	bottom := math.Inf(-1)
	for _, s := range segments {
		if y := s.Mid().Y; isHorizontal(s) && y <= limit && y > bottom {
			bottom = y
		}
	}
	if math.IsInf(bottom, -1) {
		return limit
	}
	return bottom
}

// region is an axis-aligned rectangle in processing pixels.
type region struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r region) contains(p geometry.Point) bool {
	const eps = 1e-6
	return p.X >= r.MinX-eps && p.X <= r.MaxX+eps && p.Y >= r.MinY-eps && p.Y <= r.MaxY+eps
}

// ExtendToRegion stretches a segment along its own line until it meets the
// region's border on both sides of its midpoint. Segments whose midpoint is
// outside the region are returned unchanged with false.
func ExtendToRegion(s Segment, r region) (Segment, bool) {
	mid := s.Mid()
	if !r.contains(mid) || s.Length == 0 {
		return s, false
	}
	dir := s.Dir()

	var ts []float64
	if dir.X != 0 {
		ts = append(ts, (r.MinX-mid.X)/dir.X, (r.MaxX-mid.X)/dir.X)
	}
	if dir.Y != 0 {
		ts = append(ts, (r.MinY-mid.Y)/dir.Y, (r.MaxY-mid.Y)/dir.Y)
	}

	forward, backward := math.Inf(1), math.Inf(-1)
	for _, t := range ts {
		if !r.contains(mid.Add(dir.Scale(t))) {
			continue
		}
		if t > 0 && t < forward {
			forward = t
		}
		if t < 0 && t > backward {
			backward = t
		}
	}
	if math.IsInf(forward, 1) || math.IsInf(backward, -1) {
		return s, false
	}
	return s.WithEndpoints(mid.Add(dir.Scale(backward)), mid.Add(dir.Scale(forward))), true
}

// mergeLabeled merges labeled segments like MergeSegments, keeping the
// label of the longer member and the higher confidence.
func mergeLabeled(segments []LabeledSegment, opts MergeOptions) []LabeledSegment {
	out := append([]LabeledSegment(nil), segments...)
	limit := opts.Angle * math.Pi / 180
	for pass := 0; pass < opts.Passes; pass++ {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Length > out[j].Length })
		used := make([]bool, len(out))
		merged := make([]LabeledSegment, 0, len(out))
		for i := range out {
			if used[i] {
				continue
			}
			cur := out[i]
			for j := i + 1; j < len(out); j++ {
				if used[j] {
					continue
				}
				if joined, ok := tryMerge(cur.Segment, out[j].Segment, limit, opts.Gap); ok {
					cur = cur.WithSegment(joined)
					cur.Confidence = math.Max(cur.Confidence, out[j].Confidence)
					used[j] = true
				}
			}
			merged = append(merged, cur)
		}
		if len(merged) == len(out) {
			return merged
		}
		out = merged
	}
	return out
}

// consolidatePeaks snaps the top endpoints of diagonals that lie within maxDX
// of each other horizontally onto the higher of the two, so one gable peak
// is not reported twice. Tops at the same height snap onto the one that
// comes first in segments.
func consolidatePeaks(segments []LabeledSegment, maxDX float64) []LabeledSegment {
	out := append([]LabeledSegment(nil), segments...)
	for pass := 0; pass < peakPasses; pass++ {
		changed := false
		for i := range out {
			if isHorizontal(out[i].Segment) {
				continue
			}
			for j := range out {
				if i == j || isHorizontal(out[j].Segment) {
					continue
				}
				topI, bottomI := out[i].Top()
				topJ, _ := out[j].Top()
				if topI == topJ || math.Abs(topI.X-topJ.X) > maxDX {
					continue
				}
				if topJ.Y > topI.Y || (topJ.Y == topI.Y && j > i) {
					continue
				}
				out[i] = out[i].WithSegment(out[i].Segment.WithEndpoints(topJ, bottomI))
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return out
}

// capAndLabel buckets segments into horizontal, left-descending and
// right-descending clusters, keeps the best maxPer of each by
// 0.55*confidence + 0.45*normalized length, and assigns canonical labels.
// Horizontals closer to skyRow than to roofBottom are ridges, the rest eaves.
func capAndLabel(segments []LabeledSegment, skyRow, roofBottom float64, maxPer int) []LabeledSegment {
	var horizontal, left, right []LabeledSegment
	for _, s := range segments {
		top, bottom := s.Top()
		switch {
		case isHorizontal(s.Segment):
			horizontal = append(horizontal, s)
		case bottom.X < top.X:
			left = append(left, s.WithLabel(LabelRakeLeft))
		default:
			right = append(right, s.WithLabel(LabelRakeRight))
		}
	}

	out := make([]LabeledSegment, 0, 3*maxPer)
	for _, s := range capCluster(horizontal, maxPer) {
		y := s.Mid().Y
		if math.Abs(y-skyRow) < math.Abs(y-roofBottom) {
			s = s.WithLabel(LabelRidge)
		} else {
			s = s.WithLabel(LabelEave)
		}
		out = append(out, s.Boost(labelBoost))
	}
	out = append(out, capCluster(left, maxPer)...)
	out = append(out, capCluster(right, maxPer)...)
	return out
}

func capCluster(cluster []LabeledSegment, maxPer int) []LabeledSegment {
	if len(cluster) == 0 {
		return nil
	}
	var longest float64
	for _, s := range cluster {
		longest = math.Max(longest, s.Length)
	}
	score := func(s LabeledSegment) float64 {
		norm := 0.0
		if longest > 0 {
			norm = s.Length / longest
		}
		return 0.55*s.Confidence + 0.45*norm
	}
	sorted := append([]LabeledSegment(nil), cluster...)
	sort.SliceStable(sorted, func(i, j int) bool { return score(sorted[i]) > score(sorted[j]) })
	if maxPer > 0 && len(sorted) > maxPer {
		sorted = sorted[:maxPer]
	}
	return sorted
}

// horizonBias boosts segments near the ridge anchor or the eave line, with
// a linear falloff to nothing at band pixels away.
func horizonBias(segments []LabeledSegment, skyRow, roofBottom, band, boost float64) []LabeledSegment {
	out := make([]LabeledSegment, len(segments))
	for i, s := range segments {
		y := s.Mid().Y
		d := math.Min(math.Abs(y-skyRow), math.Abs(y-roofBottom))
		out[i] = s.Boost(boost * math.Max(0, 1-d/band))
	}
	return out
}

// facadeAnchors are the rows the facade heuristics hang off, in processing pixels.
type facadeAnchors struct {
	SkyRow     float64
	RoofBottom float64
}

// labelFacade runs the facade heuristics on merged segments.
func labelFacade(segments []Segment, smoothed *imaging.Gray, opts Options) ([]LabeledSegment, facadeAnchors) {
	width, height := float64(smoothed.Width), float64(smoothed.Height)
	limit := opts.RoofRegionFraction * height

	skyRow := 0.0
	if row := SkyBoundary(smoothed); row >= 0 {
		skyRow = float64(row)
	}

	segs := FilterOrientation(segments, opts.MaxAngleFromHorizontal)
	inRoof := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if s.Mid().Y <= limit {
			inRoof = append(inRoof, s)
		}
	}
	segs = FilterContrast(inRoof, smoothed, opts.ContrastThreshold)

	roofBottom := inferRoofBottom(segs, limit)
	top := skyRow
	if top >= roofBottom {
		top = 0
	}
	bounds := region{MinX: 0, MinY: top, MaxX: width - 1, MaxY: roofBottom}

	var horizontals, diagonals []LabeledSegment
	for _, s := range segs {
		l := NewLabeled(s, LabelUnknown, baseConfidence(s, width), OriginFacade)
		if isHorizontal(s) {
			horizontals = append(horizontals, l)
			continue
		}
		if ext, ok := ExtendToRegion(s, bounds); ok {
			l = l.WithSegment(ext)
		}
		diagonals = append(diagonals, l.WithLabel(LabelRake))
	}
	diagonals = mergeLabeled(diagonals, opts.mergeOptions(smoothed.Width))
	diagonals = consolidatePeaks(diagonals, opts.PeakMergeFraction*width)

	labeled := capAndLabel(append(horizontals, diagonals...), skyRow, roofBottom, opts.MaxPerDirection)
	labeled = horizonBias(labeled, skyRow, roofBottom, opts.HorizonBand, opts.HorizonBoost)
	return labeled, facadeAnchors{SkyRow: skyRow, RoofBottom: roofBottom}
}
