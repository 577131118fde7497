package detection

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// ErrNilImage is returned when a detector is handed no image at all.
var ErrNilImage = errors.New("detection: nil image")

// Detector turns roof photographs into labeled roof lines. It holds no
// per-call state and is safe for concurrent use.
type Detector struct {
	opts Options
	log  logrus.FieldLogger
}

// NewDetector returns a detector using opts. A nil logger discards output.
func NewDetector(opts Options, log logrus.FieldLogger) *Detector {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &Detector{opts: opts, log: log}
}

// Options returns the detector's configuration.
func (d *Detector) Options() Options {
	return d.opts
}

// Analysis holds the processing-resolution intermediates of one run.
type Analysis struct {
	Classification Classification

	// Width and Height are the source image dimensions.
	Width  int
	Height int

	// Smoothed is the preprocessed grayscale buffer; Edges and Segments
	// share its resolution.
	Smoothed *imaging.Gray
	Edges    *imaging.EdgeMap
	Segments []Segment

	// ScaleX and ScaleY map processing pixels to source pixels.
	ScaleX float64
	ScaleY float64
}

// Analyze classifies the scene, downscales, preprocesses, detects edges and
// extracts merged segments. It stops short of labeling.
func (d *Detector) Analyze(img image.Image) (*Analysis, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	bounds := img.Bounds()
	a := &Analysis{Width: bounds.Dx(), Height: bounds.Dy(), ScaleX: 1, ScaleY: 1}

	a.Classification = ClassifyScene(img, d.opts.SkyFacadeThreshold, d.opts.Scene)
	d.log.WithFields(logrus.Fields{
		"stage":     "classify",
		"mode":      a.Classification.Scene,
		"sky_score": a.Classification.SkyScore,
		"forced":    a.Classification.Forced,
	}).Debug("scene classified")

	facade := a.Classification.Scene == SceneFacade
	small, sx, sy := imaging.Downscale(img, d.opts.processingWidth(a.Classification.Scene))
	a.ScaleX, a.ScaleY = sx, sy

	pre := d.opts.preprocess(facade)
	a.Smoothed = imaging.Preprocess(imaging.GrayFromImage(small), pre)
	a.Edges = imaging.EdgeDetect(a.Smoothed, pre)
	d.log.WithFields(logrus.Fields{
		"stage":       "edges",
		"width":       a.Edges.Width,
		"height":      a.Edges.Height,
		"edge_pixels": a.Edges.Count(),
		"low":         a.Edges.Low,
		"high":        a.Edges.High,
	}).Debug("edge map ready")

	minLength := d.opts.MinLineFraction * float64(a.Edges.Width)
	raw := ExtractSegments(a.Edges, d.opts.MinComponentPixels, d.opts.OrientationTolerance, minLength)
	a.Segments = MergeSegments(raw, d.opts.mergeOptions(a.Edges.Width))
	d.log.WithFields(logrus.Fields{
		"stage":    "segments",
		"raw":      len(raw),
		"segments": len(a.Segments),
	}).Debug("segments extracted")

	return a, nil
}

// Result is the labeled output of Detect, in source-image pixels.
type Result struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	ProcessingWidth  int     `json:"processing_width"`
	ProcessingHeight int     `json:"processing_height"`
	Scene            Scene   `json:"scene"`
	SkyScore         float64 `json:"sky_score"`
	// SkyRow and RoofBottom are the facade anchor rows; zero for top-down scenes.
	SkyRow     float64          `json:"sky_row,omitempty"`
	RoofBottom float64          `json:"roof_bottom,omitempty"`
	EdgePixels int              `json:"edge_pixels"`
	Lines      []LabeledSegment `json:"lines"`
	Count      int              `json:"count"`
}

// Detect runs the full pipeline and returns labeled lines sorted by
// descending confidence, with IDs line-1, line-2, ...
func (d *Detector) Detect(img image.Image) (*Result, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	labeled, anchors := d.label(a)

	res := &Result{
		Width:            a.Width,
		Height:           a.Height,
		ProcessingWidth:  a.Edges.Width,
		ProcessingHeight: a.Edges.Height,
		Scene:            a.Classification.Scene,
		SkyScore:         a.Classification.SkyScore,
		EdgePixels:       a.Edges.Count(),
		Lines:            finalize(labeled, a.ScaleX, a.ScaleY),
	}
	if a.Classification.Scene == SceneFacade {
		res.SkyRow = anchors.SkyRow * a.ScaleY
		res.RoofBottom = anchors.RoofBottom * a.ScaleY
	}
	res.Count = len(res.Lines)

	d.log.WithFields(logrus.Fields{
		"stage":    "label",
		"mode":     res.Scene,
		"segments": res.Count,
	}).Debug("detection complete")
	return res, nil
}

// label applies the scene-specific heuristics in processing pixels.
func (d *Detector) label(a *Analysis) ([]LabeledSegment, facadeAnchors) {
	if a.Edges.Width == 0 || a.Edges.Height == 0 {
		return nil, facadeAnchors{}
	}
	if a.Classification.Scene == SceneFacade {
		return labelFacade(a.Segments, a.Smoothed, d.opts)
	}
	peaks := DominantAngles(a.Segments, d.opts.DominantPeaks, d.opts.DominantSuppression)
	kept := FilterDominant(a.Segments, peaks, d.opts.DominantTolerance)
	d.log.WithFields(logrus.Fields{
		"stage":    "dominant",
		"peaks":    fmt.Sprint(peaks),
		"segments": len(kept),
	}).Debug("dominant directions applied")
	return labelTopDown(kept, a.Edges.Width, a.Edges.Height), facadeAnchors{}
}

// finalize rescales to source pixels, clamps confidence, sorts by confidence
// and numbers the lines.
func finalize(labeled []LabeledSegment, sx, sy float64) []LabeledSegment {
	out := make([]LabeledSegment, len(labeled))
	for i, l := range labeled {
		l.Segment = l.Segment.Scaled(sx, sy)
		l.Confidence = clamp01(l.Confidence)
		out[i] = l
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	for i := range out {
		out[i].ID = fmt.Sprintf("line-%d", i+1)
	}
	return out
}
