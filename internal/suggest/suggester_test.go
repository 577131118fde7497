package suggest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/geometry"
)

// createGableImage draws a 320x240 gable facade: sky, a dark roof between
// y=60 and y=140, and siding below.
func createGableImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			v := uint8(220)
			switch {
			case y >= 140:
				v = 150
			case y >= 60 && x >= 130-(y-60) && x <= 190+(y-60):
				v = 80
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// fakeGenerator records the last request and replays a canned answer.
type fakeGenerator struct {
	answer string
	err    error

	prompt string
	jpeg   []byte
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string, jpeg []byte) ([]byte, error) {
	f.prompt, f.jpeg = prompt, jpeg
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.answer), nil
}

func newLocal() *LocalSuggester {
	return NewLocalSuggester(detection.NewDetector(detection.DefaultOptions(), nil), geometry.DefaultOutlineOptions())
}

func TestLocalSuggester_Outline(t *testing.T) {
	s := newLocal()
	assert.Equal(t, "local", s.Name())

	out, err := s.SuggestOutline(context.Background(), createGableImage())
	require.NoError(t, err)
	assert.True(t, out.Outline.Closed)
	assert.GreaterOrEqual(t, len(out.Outline.Points), 3)
	assert.Equal(t, "local", out.Source)
}

func TestLocalSuggester_Lines(t *testing.T) {
	lines, err := newLocal().SuggestLines(context.Background(), createGableImage(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.Equal(t, detection.OriginFacade, l.Origin)
	}
}

func TestLocalSuggester_NothingFound(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))

	_, err := newLocal().SuggestOutline(context.Background(), blank)
	assert.ErrorIs(t, err, ErrEmptySuggestion)

	_, err = newLocal().SuggestLines(context.Background(), blank, nil)
	assert.ErrorIs(t, err, ErrEmptySuggestion)
}

func TestLocalSuggester_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLocal().SuggestOutline(ctx, createGableImage())
	assert.ErrorIs(t, err, context.Canceled)
}

func newRemote(gen Generator) *RemoteSuggester {
	return NewRemoteSuggester(gen, nil, geometry.DefaultOutlineOptions(), nil)
}

// createUniformImage has no edges for outlines to snap to.
func createUniformImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	return img
}

func TestRemoteSuggester_Outline(t *testing.T) {
	// The fourth point sits 0.4px off the base and is simplified away.
	gen := &fakeGenerator{answer: `{"outline":[{"x":0,"y":0.5},{"x":0.5,"y":0.25},{"x":1,"y":0.5},{"x":0.5,"y":0.5017}],"confidence":0.6}`}
	s := newRemote(gen)

	out, err := s.SuggestOutline(context.Background(), createUniformImage())
	require.NoError(t, err)
	assert.Equal(t, "fake-model", out.Source)
	assert.True(t, out.Outline.Closed)
	assert.Equal(t, []geometry.Point{{X: 0, Y: 120}, {X: 160, Y: 60}, {X: 320, Y: 120}}, out.Outline.Points)

	require.NotEmpty(t, gen.jpeg)
	_, format, err := image.DecodeConfig(bytes.NewReader(gen.jpeg))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestRemoteSuggester_OutlineMatchesLocalCleanup(t *testing.T) {
	gen := &fakeGenerator{answer: `{"outline":[{"x":0.1,"y":0.55},{"x":0.4,"y":0.26},{"x":0.6,"y":0.24},{"x":0.9,"y":0.55}]}`}
	img := createGableImage()

	out, err := newRemote(gen).SuggestOutline(context.Background(), img)
	require.NoError(t, err)

	raw, err := ParseOutline([]byte(gen.answer), 320, 240, "fake-model")
	require.NoError(t, err)
	field, err := detection.NewDetector(detection.DefaultOptions(), nil).SnapField(img)
	require.NoError(t, err)
	want := geometry.CleanupOutline(raw.Outline, geometry.Frame{Width: 320, Height: 240, Gradient: field}, geometry.DefaultOutlineOptions())
	assert.Equal(t, want, out.Outline)
}

func TestRemoteSuggester_LinesSendsOutline(t *testing.T) {
	gen := &fakeGenerator{answer: `{"suggestions":[{"kind":"eave","points":[{"x":0,"y":0.5},{"x":1,"y":0.5}],"confidence":0.8}]}`}
	s := newRemote(gen)

	outline := []geometry.Point{{X: 0, Y: 120}, {X: 320, Y: 120}, {X: 160, Y: 60}}
	lines, err := s.SuggestLines(context.Background(), createGableImage(), outline)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, detection.LabelEave, lines[0].Label)
	assert.Contains(t, gen.prompt, `{"x":0.5,"y":0.25}`)
}

func TestRemoteSuggester_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := newRemote(&fakeGenerator{err: boom})
	_, err := s.SuggestOutline(context.Background(), createGableImage())
	assert.ErrorIs(t, err, boom)

	s = newRemote(&fakeGenerator{answer: `{"outline":"nope"}`})
	_, err = s.SuggestOutline(context.Background(), createGableImage())
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = s.SuggestLines(context.Background(), nil, nil)
	assert.ErrorIs(t, err, detection.ErrNilImage)
}
