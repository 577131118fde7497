package imaging

// PreprocessOptions configures Preprocess and EdgeDetect.
type PreprocessOptions struct {
	// Facade runs the bilateral filter twice at reduced sigma.
	Facade bool

	BilateralRadius int
	SpatialSigma    float64
	ColorSigma      float64

	// DetailSuppression in [0,1] scales texture suppression. CLAHE runs above
	// CLAHEThreshold, the median filter above MedianThreshold and the close
	// radius grows to 2 above WideCloseThreshold.
	DetailSuppression  float64
	CLAHEThreshold     float64
	MedianThreshold    float64
	WideCloseThreshold float64

	// Sensitivity in [0,1]; higher finds more edges.
	Sensitivity float64
}

// DefaultPreprocessOptions returns the top-down defaults.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		BilateralRadius:    4,
		SpatialSigma:       3.0,
		ColorSigma:         25,
		DetailSuppression:  0.25,
		CLAHEThreshold:     0.35,
		MedianThreshold:    0.7,
		WideCloseThreshold: 0.6,
		Sensitivity:        0.5,
	}
}

// facadeSigmaScale reduces both sigmas for the double facade pass.
const facadeSigmaScale = 0.75

// Preprocess smooths a grayscale buffer ahead of edge detection.
//
// Order: bilateral (once, or twice at reduced sigma for facades), CLAHE with
// 8x8 tiles when suppression is above its threshold, then a 3x3 median when
// suppression is heavy. The input is left untouched.
func Preprocess(src *Gray, opts PreprocessOptions) *Gray {
	if src.Empty() {
		return src.Clone()
	}

	out := src
	if opts.Facade {
		spatial := opts.SpatialSigma * facadeSigmaScale
		color := opts.ColorSigma * facadeSigmaScale
		out = Bilateral(out, opts.BilateralRadius, spatial, color)
		out = Bilateral(out, opts.BilateralRadius, spatial, color)
	} else {
		out = Bilateral(out, opts.BilateralRadius, opts.SpatialSigma, opts.ColorSigma)
	}

	if opts.DetailSuppression > opts.CLAHEThreshold {
		out = CLAHE(out, 8, 8, ClipLimit(opts.DetailSuppression))
	}
	if opts.DetailSuppression > opts.MedianThreshold {
		out = Median(out, 1)
	}
	return out
}

// ClipLimit maps detail suppression in [0,1] onto a CLAHE clip limit in [1.5, 4].
func ClipLimit(suppression float64) float64 {
	if suppression < 0 {
		suppression = 0
	}
	if suppression > 1 {
		suppression = 1
	}
	return 1.5 + 2.5*suppression
}

// CloseRadius returns the morphological close radius for a suppression level.
func (o PreprocessOptions) CloseRadius() int {
	if o.DetailSuppression > o.WideCloseThreshold {
		return 2
	}
	return 1
}

// EdgeDetect runs auto-Canny on an already preprocessed buffer and closes
// small gaps in the result.
func EdgeDetect(smoothed *Gray, opts PreprocessOptions) *EdgeMap {
	return AutoCanny(smoothed, opts.Sensitivity).Close(opts.CloseRadius())
}
