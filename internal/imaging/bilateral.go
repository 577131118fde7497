package imaging

import "math"

// Bilateral applies an edge-preserving bilateral filter.
//
// Each output pixel is the average of its (2*radius+1)^2 neighborhood weighted
// by a spatial Gaussian (spatialSigma, in pixels) times a range Gaussian on the
// intensity difference (colorSigma, in gray levels). Flat regions are smoothed
// while steps much larger than colorSigma survive almost unchanged.
//
// Borders use clamped (replicated) neighbors. A new buffer is returned.
func Bilateral(src *Gray, radius int, spatialSigma, colorSigma float64) *Gray {
	if src.Empty() || radius <= 0 || spatialSigma <= 0 || colorSigma <= 0 {
		return src.Clone()
	}

	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for ky := -radius; ky <= radius; ky++ {
		for kx := -radius; kx <= radius; kx++ {
			d2 := float64(kx*kx + ky*ky)
			spatial[(ky+radius)*size+kx+radius] = math.Exp(-d2 / (2 * spatialSigma * spatialSigma))
		}
	}

	// Range weights indexed by rounded absolute difference.
	var rangeLUT [256]float64
	for i := range rangeLUT {
		d := float64(i)
		rangeLUT[i] = math.Exp(-d * d / (2 * colorSigma * colorSigma))
	}

	out := NewGray(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			center := src.Pix[y*src.Width+x]
			var sum, wsum float64
			for ky := -radius; ky <= radius; ky++ {
				py := clamp(y+ky, 0, src.Height-1)
				for kx := -radius; kx <= radius; kx++ {
					px := clamp(x+kx, 0, src.Width-1)
					v := src.Pix[py*src.Width+px]
					diff := int(math.Abs(v-center) + 0.5)
					if diff > 255 {
						diff = 255
					}
					w := spatial[(ky+radius)*size+kx+radius] * rangeLUT[diff]
					sum += w * v
					wsum += w
				}
			}
			out.Pix[y*src.Width+x] = sum / wsum
		}
	}
	return out
}
