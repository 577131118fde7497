package detection

import (
	"image"

	"github.com/ironsheep/roofline-mcp/internal/geometry"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// OutlineSuggestion is a roof outline proposed from detected lines.
type OutlineSuggestion struct {
	Outline    geometry.Shape `json:"outline"`
	Confidence float64        `json:"confidence"`
	Scene      Scene          `json:"scene"`
	// Lines are the detected lines the outline was built from.
	Lines []LabeledSegment `json:"lines"`
}

// SuggestOutline proposes a closed roof outline: the convex hull of the
// labeled lines' endpoints, refined by geometry.CleanupOutline with the
// vertical gradient of the smoothed buffer as the snap field. Confidence is
// the mean line confidence. When fewer than three distinct endpoints exist
// the outline is empty and confidence is zero.
func (d *Detector) SuggestOutline(img image.Image, opts geometry.OutlineOptions) (*OutlineSuggestion, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	labeled, _ := d.label(a)

	res := &OutlineSuggestion{
		Outline: geometry.Shape{ID: "outline", Closed: true},
		Scene:   a.Classification.Scene,
		Lines:   finalize(labeled, a.ScaleX, a.ScaleY),
	}
	hull := convexHull(segmentEndpoints(segmentsOf(labeled)))
	if len(hull) < 3 {
		return res, nil
	}

	frame := geometry.Frame{
		Width:    a.Smoothed.Width,
		Height:   a.Smoothed.Height,
		Gradient: imaging.Sobel(a.Smoothed).VerticalMagnitude(),
	}
	cleaned := geometry.CleanupOutline(geometry.Shape{ID: "outline", Points: hull, Closed: true}, frame, opts)

	points := make([]geometry.Point, len(cleaned.Points))
	for i, p := range cleaned.Points {
		points[i] = geometry.Pt(p.X*a.ScaleX, p.Y*a.ScaleY)
	}
	res.Outline = cleaned.WithPoints(points)

	var sum float64
	for _, l := range res.Lines {
		sum += l.Confidence
	}
	res.Confidence = sum / float64(len(res.Lines))
	return res, nil
}

// SnapField returns the vertical-gradient field outline cleanup snaps
// against: img downscaled to the processing width for its scene and
// preprocessed the same way Detect does.
func (d *Detector) SnapField(img image.Image) (*imaging.Gray, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	c := ClassifyScene(img, d.opts.SkyFacadeThreshold, d.opts.Scene)
	small, _, _ := imaging.Downscale(img, d.opts.processingWidth(c.Scene))
	smoothed := imaging.Preprocess(imaging.GrayFromImage(small), d.opts.preprocess(c.Scene == SceneFacade))
	return imaging.Sobel(smoothed).VerticalMagnitude(), nil
}
