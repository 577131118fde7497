// Package suggest produces roof outline and line suggestions from either the
// local detector or a remote multimodal model.
//
// Both producers return the same data: an outline polygon and labeled lines
// in source-image pixels. Remote models answer in normalized 0..1
// coordinates; ParseOutline and ParseLines convert them before anything
// else sees them, so callers can swap producers freely.
package suggest

import (
	"context"
	"image"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

// Suggester proposes roof geometry for a photo.
type Suggester interface {
	// Name identifies the producer in results and logs.
	Name() string
	SuggestOutline(ctx context.Context, img image.Image) (*Outline, error)
	// SuggestLines labels structural lines. outline, in pixels, may be nil.
	SuggestLines(ctx context.Context, img image.Image, outline []geometry.Point) ([]detection.LabeledSegment, error)
}

// LocalSuggester runs the on-device detector.
type LocalSuggester struct {
	detector *detection.Detector
	opts     geometry.OutlineOptions
}

// NewLocalSuggester wraps d; opts configures outline cleanup.
func NewLocalSuggester(d *detection.Detector, opts geometry.OutlineOptions) *LocalSuggester {
	return &LocalSuggester{detector: d, opts: opts}
}

func (l *LocalSuggester) Name() string { return "local" }

// SuggestOutline returns ErrEmptySuggestion when the detector found too
// little structure to enclose.
func (l *LocalSuggester) SuggestOutline(ctx context.Context, img image.Image) (*Outline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := l.detector.SuggestOutline(img, l.opts)
	if err != nil {
		return nil, err
	}
	if len(s.Outline.Points) < 3 {
		return nil, ErrEmptySuggestion
	}
	return &Outline{Outline: s.Outline, Confidence: s.Confidence, Source: l.Name()}, nil
}

// SuggestLines ignores outline; the detector finds the roof on its own.
func (l *LocalSuggester) SuggestLines(ctx context.Context, img image.Image, _ []geometry.Point) ([]detection.LabeledSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := l.detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if len(res.Lines) == 0 {
		return nil, ErrEmptySuggestion
	}
	return res.Lines, nil
}
