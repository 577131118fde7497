package detection

import "math"

const angleBins = 180

// DominantAngles returns up to k peak directions, in degrees within [0, 180),
// from a length-weighted one-degree histogram of segment angles. After each
// peak is taken, bins within suppress of it (circularly) are cleared.
func DominantAngles(segments []Segment, k, suppress int) []float64 {
	var hist [angleBins]float64
	for _, s := range segments {
		bin := int(s.Angle*180/math.Pi) % angleBins
		hist[bin] += s.Length
	}

	peaks := make([]float64, 0, k)
	for len(peaks) < k {
		best := -1
		for i, v := range hist {
			if v > 0 && (best < 0 || v > hist[best]) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		peaks = append(peaks, float64(best)+0.5)
		for d := -suppress; d <= suppress; d++ {
			hist[(best+d+angleBins)%angleBins] = 0
		}
	}
	return peaks
}

// FilterDominant keeps segments whose angle lies within tolerance degrees of
// one of the peaks. With no peaks every segment is kept.
func FilterDominant(segments []Segment, peaks []float64, tolerance float64) []Segment {
	if len(peaks) == 0 {
		return append([]Segment(nil), segments...)
	}
	kept := make([]Segment, 0, len(segments))
	for _, s := range segments {
		deg := s.Angle * 180 / math.Pi
		for _, p := range peaks {
			d := math.Abs(deg - p)
			if d > 90 {
				d = 180 - d
			}
			if d <= tolerance {
				kept = append(kept, s)
				break
			}
		}
	}
	return kept
}
