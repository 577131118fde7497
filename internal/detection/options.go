package detection

import "github.com/ironsheep/roofline-mcp/internal/imaging"

// Options configures a Detector. A Detector copies its Options once and
// never changes them, so one value can be shared between detectors.
type Options struct {
	// Scene forces facade or top-down handling; SceneAuto classifies.
	Scene Scene

	// Sensitivity in [0,1]: higher finds more and fainter edges.
	Sensitivity float64
	// DetailSuppression in [0,1]: higher suppresses more texture.
	DetailSuppression float64

	BilateralRadius int
	SpatialSigma    float64
	ColorSigma      float64

	// ProcessingWidth caps the width top-down images are analyzed at;
	// FacadeProcessingWidth does the same for facades.
	ProcessingWidth       int
	FacadeProcessingWidth int

	// MinComponentPixels discards smaller edge components as noise.
	MinComponentPixels int
	// OrientationTolerance in degrees gates component growth; 0 disables it.
	OrientationTolerance float64
	// MinLineFraction is the minimum segment length as a fraction of width.
	MinLineFraction float64

	MergeAngle       float64
	MergeGapFraction float64
	MergePasses      int

	// Dominant-direction filter, top-down only.
	DominantPeaks       int
	DominantSuppression int
	DominantTolerance   float64

	// SkyFacadeThreshold is the sky score at which a photo counts as a facade.
	SkyFacadeThreshold float64

	// Facade heuristics.
	RoofRegionFraction     float64
	MaxAngleFromHorizontal float64
	ContrastThreshold      float64
	MaxPerDirection        int
	PeakMergeFraction      float64
	HorizonBand            float64
	HorizonBoost           float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	pre := imaging.DefaultPreprocessOptions()
	return Options{
		Scene:                  SceneAuto,
		Sensitivity:            pre.Sensitivity,
		DetailSuppression:      pre.DetailSuppression,
		BilateralRadius:        pre.BilateralRadius,
		SpatialSigma:           pre.SpatialSigma,
		ColorSigma:             pre.ColorSigma,
		ProcessingWidth:        800,
		FacadeProcessingWidth:  512,
		MinComponentPixels:     4,
		OrientationTolerance:   22.5,
		MinLineFraction:        0.05,
		MergeAngle:             10,
		MergeGapFraction:       0.02,
		MergePasses:            2,
		DominantPeaks:          4,
		DominantSuppression:    10,
		DominantTolerance:      12,
		SkyFacadeThreshold:     0.55,
		RoofRegionFraction:     0.7,
		MaxAngleFromHorizontal: 75,
		ContrastThreshold:      20,
		MaxPerDirection:        3,
		PeakMergeFraction:      0.09,
		HorizonBand:            24,
		HorizonBoost:           0.12,
	}
}

// preprocess derives the imaging options for one scene.
func (o Options) preprocess(facade bool) imaging.PreprocessOptions {
	pre := imaging.DefaultPreprocessOptions()
	pre.Facade = facade
	pre.BilateralRadius = o.BilateralRadius
	pre.SpatialSigma = o.SpatialSigma
	pre.ColorSigma = o.ColorSigma
	pre.DetailSuppression = o.DetailSuppression
	pre.Sensitivity = o.Sensitivity
	return pre
}

// processingWidth is the width cap for a scene.
func (o Options) processingWidth(scene Scene) int {
	if scene == SceneFacade {
		return o.FacadeProcessingWidth
	}
	return o.ProcessingWidth
}

// mergeOptions scales the merge gap to the processing width, with a 3px floor.
func (o Options) mergeOptions(width int) MergeOptions {
	gap := o.MergeGapFraction * float64(width)
	if gap < 3 {
		gap = 3
	}
	return MergeOptions{Angle: o.MergeAngle, Gap: gap, Passes: o.MergePasses}
}
