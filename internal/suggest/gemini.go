package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	genai "google.golang.org/genai"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
	rimg "github.com/ironsheep/roofline-mcp/internal/imaging"
)

// uploadWidth caps the width of images sent to a remote model.
const uploadWidth = 1024

const outlinePrompt = `You are tracing the roof in this photo.
Return only JSON of the form {"outline":[{"x":0.1,"y":0.2},...],"confidence":0.8}.
The outline is the roof's outer boundary as a closed polygon, listed in order,
without repeating the first point. Coordinates are fractions of the image
width (x) and height (y), from 0 at the top-left to 1 at the bottom-right.
Confidence is between 0 and 1.`

const linesPrompt = `You are labeling the structural lines of the roof in this photo.
Return only JSON of the form
{"suggestions":[{"kind":"ridge","points":[{"x":0.1,"y":0.2},{"x":0.5,"y":0.2}],"confidence":0.8}]}.
kind is one of eave, ridge, rake, valley, hip. Each line has exactly two points.
Coordinates are fractions of the image width (x) and height (y), from 0 at the
top-left to 1 at the bottom-right. Confidence is between 0 and 1.`

// Generator sends a prompt and one JPEG image to a model and returns the
// model's JSON answer.
type Generator interface {
	Model() string
	GenerateJSON(ctx context.Context, prompt string, jpeg []byte) ([]byte, error)
}

// GeminiGenerator is a Generator backed by the Gemini API.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
}

// NewGeminiGenerator creates a Gemini API client for model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{cli: cli, model: model}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

// GenerateJSON asks for application/json and returns the first candidate's text.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string, jpeg []byte) ([]byte, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: jpeg}},
		},
	}}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents,
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrInvalidPayload)
	}
	return []byte(resp.Candidates[0].Content.Parts[0].Text), nil
}

// RemoteSuggester asks a multimodal model for suggestions. Outlines it
// receives are refined the same way local outlines are.
type RemoteSuggester struct {
	gen      Generator
	detector *detection.Detector
	opts     geometry.OutlineOptions
	log      logrus.FieldLogger
}

// NewRemoteSuggester wraps gen. d supplies the edge field outlines are
// snapped against and opts configures their cleanup. A nil logger is
// replaced by the standard logger; a nil detector by a default one.
func NewRemoteSuggester(gen Generator, d *detection.Detector, opts geometry.OutlineOptions, log logrus.FieldLogger) *RemoteSuggester {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if d == nil {
		d = detection.NewDetector(detection.DefaultOptions(), log)
	}
	return &RemoteSuggester{gen: gen, detector: d, opts: opts, log: log}
}

func (r *RemoteSuggester) Name() string { return r.gen.Model() }

func (r *RemoteSuggester) SuggestOutline(ctx context.Context, img image.Image) (*Outline, error) {
	if img == nil {
		return nil, detection.ErrNilImage
	}
	data, err := r.ask(ctx, outlinePrompt, img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out, err := ParseOutline(data, b.Dx(), b.Dy(), r.Name())
	r.logResult("outline", err)
	if err != nil {
		return nil, err
	}
	out.Outline = geometry.CleanupOutline(out.Outline, r.frame(img), r.opts)
	return out, nil
}

// frame is the refinement frame for img. Without an edge field the snap
// step is skipped and the rest of the cleanup still runs.
func (r *RemoteSuggester) frame(img image.Image) geometry.Frame {
	b := img.Bounds()
	f := geometry.Frame{Width: b.Dx(), Height: b.Dy()}
	field, err := r.detector.SnapField(img)
	if err != nil {
		r.log.WithError(err).Warn("edge field unavailable, outline not snapped")
		return f
	}
	f.Gradient = field
	return f
}

// SuggestLines sends the outline along, normalized, so the model labels
// lines on the same roof.
func (r *RemoteSuggester) SuggestLines(ctx context.Context, img image.Image, outline []geometry.Point) ([]detection.LabeledSegment, error) {
	if img == nil {
		return nil, detection.ErrNilImage
	}
	b := img.Bounds()
	prompt := linesPrompt
	if len(outline) > 0 {
		traced, err := json.Marshal(Normalize(outline, b.Dx(), b.Dy()))
		if err != nil {
			return nil, err
		}
		prompt += "\nThe roof outline has already been traced as: " + string(traced)
	}

	data, err := r.ask(ctx, prompt, img)
	if err != nil {
		return nil, err
	}
	lines, err := ParseLines(data, b.Dx(), b.Dy())
	r.logResult("lines", err)
	return lines, err
}

func (r *RemoteSuggester) ask(ctx context.Context, prompt string, img image.Image) ([]byte, error) {
	small, _, _ := rimg.Downscale(img, uploadWidth)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"model": r.gen.Model(),
		"bytes": buf.Len(),
	}).Debug("requesting remote suggestion")
	return r.gen.GenerateJSON(ctx, prompt, buf.Bytes())
}

func (r *RemoteSuggester) logResult(kind string, err error) {
	entry := r.log.WithFields(logrus.Fields{"model": r.gen.Model(), "kind": kind})
	switch {
	case err == nil:
		entry.Debug("remote suggestion parsed")
	case errors.Is(err, ErrEmptySuggestion):
		entry.Info("remote model proposed nothing")
	default:
		entry.WithError(err).Warn("remote suggestion rejected")
	}
}
