package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

var (
	// ErrEmptySuggestion means a producer answered but proposed nothing usable.
	ErrEmptySuggestion = errors.New("suggest: empty suggestion")
	// ErrInvalidPayload means a remote answer was not the expected JSON shape.
	ErrInvalidPayload = errors.New("suggest: invalid payload")
)

// Point is a position in normalized image coordinates, 0..1 on each axis.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OutlinePayload is the wire form of an outline suggestion.
type OutlinePayload struct {
	Outline    []Point `json:"outline"`
	Confidence float64 `json:"confidence"`
}

// LineSuggestion is one labeled line on the wire.
type LineSuggestion struct {
	Kind       string  `json:"kind"`
	Points     []Point `json:"points"`
	Confidence float64 `json:"confidence"`
}

// LinesPayload is the wire form of a line-labeling answer.
type LinesPayload struct {
	Suggestions []LineSuggestion `json:"suggestions"`
}

// Outline is a proposed roof polygon in source-image pixels.
type Outline struct {
	Outline    geometry.Shape `json:"outline"`
	Confidence float64        `json:"confidence"`
	// Source names the producer, "local" or the remote model.
	Source string `json:"source"`
}

// ParseOutline decodes an outline payload and converts it to pixels of a
// width x height image. Coordinates are clamped to the image.
func ParseOutline(data []byte, width, height int, source string) (*Outline, error) {
	var p OutlinePayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if len(p.Outline) < 3 {
		return nil, fmt.Errorf("%w: outline has %d points", ErrEmptySuggestion, len(p.Outline))
	}
	return &Outline{
		Outline:    geometry.Shape{ID: "outline", Points: toPixels(p.Outline, width, height), Closed: true},
		Confidence: clamp01(p.Confidence),
		Source:     source,
	}, nil
}

// ParseLines decodes a line payload into labeled segments in pixels.
// Suggestions with fewer than two points are skipped; extra points beyond
// the first and last are ignored.
func ParseLines(data []byte, width, height int) ([]detection.LabeledSegment, error) {
	var p LinesPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	out := make([]detection.LabeledSegment, 0, len(p.Suggestions))
	for _, s := range p.Suggestions {
		if len(s.Points) < 2 {
			continue
		}
		ends := toPixels([]Point{s.Points[0], s.Points[len(s.Points)-1]}, width, height)
		seg := detection.SegmentBetween(ends[0], ends[1])
		if seg.Length == 0 {
			continue
		}
		label := detection.ParseLabel(strings.ToLower(strings.TrimSpace(s.Kind)))
		l := detection.NewLabeled(seg, label, s.Confidence, detection.OriginRemote)
		l.ID = fmt.Sprintf("line-%d", len(out)+1)
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, ErrEmptySuggestion
	}
	return out, nil
}

// Normalize maps pixel points into the 0..1 space remote producers expect.
func Normalize(points []geometry.Point, width, height int) []Point {
	out := make([]Point, len(points))
	if width <= 0 || height <= 0 {
		return out
	}
	for i, p := range points {
		out[i] = Point{X: p.X / float64(width), Y: p.Y / float64(height)}
	}
	return out
}

// decode accepts bare JSON or JSON wrapped in a markdown code fence.
func decode(data []byte, v any) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrInvalidPayload)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func toPixels(points []Point, width, height int) []geometry.Point {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = geometry.Pt(clamp01(p.X)*float64(width), clamp01(p.Y)*float64(height))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
