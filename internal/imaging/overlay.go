package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// maxThickness caps the stroke width in pixels.
const maxThickness = 64

// OverlayLine is one line to draw on top of an image.
type OverlayLine struct {
	X1, Y1, X2, Y2 float64
	Label          string
	Confidence     float64
}

// Finite reports whether all four coordinates are finite numbers.
func (l OverlayLine) Finite() bool {
	for _, v := range [...]float64{l.X1, l.Y1, l.X2, l.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// OverlayResult contains the annotated image and the palette used.
type OverlayResult struct {
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	ImageBase64 string            `json:"image_base64"`
	MimeType    string            `json:"mime_type"`
	Legend      map[string]string `json:"legend"`
}

var labelHues = map[string]float64{
	"eave":       230,
	"ridge":      10,
	"rake":       130,
	"rake-left":  110,
	"rake-right": 160,
	"valley":     290,
	"hip":        50,
	"outline":    80,
}

// LabelColor returns the overlay color for a line label. Unknown labels are gray.
func LabelColor(label string) colorful.Color {
	hue, ok := labelHues[label]
	if !ok {
		return colorful.Hcl(0, 0, 0.7).Clamped()
	}
	return colorful.Hcl(hue, 0.9, 0.6).Clamped()
}

// RenderOverlay draws lines over a copy of img, colored by label. Lines with
// higher confidence are drawn more opaque. thickness is the stroke width in
// pixels, clamped to 1..64. Lines may extend past the image; only the visible
// part is drawn. A line with a NaN or infinite coordinate is an error.
func RenderOverlay(img image.Image, lines []OverlayLine, thickness int) (*OverlayResult, error) {
	for i, l := range lines {
		if !l.Finite() {
			return nil, fmt.Errorf("line %d has a non-finite coordinate", i)
		}
	}

	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)
	if thickness < 1 {
		thickness = 1
	}
	if thickness > maxThickness {
		thickness = maxThickness
	}

	legend := make(map[string]string)
	for _, l := range lines {
		c := LabelColor(l.Label)
		legend[l.Label] = c.Hex()
		alpha := 0.4 + 0.6*math.Max(0, math.Min(1, l.Confidence))
		drawStroke(result, l, c, alpha, thickness)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Legend:      legend,
	}, nil
}

// clipLine trims l to the w x h image grown by margin on every side. It
// reports false when no part of the line is near the image.
func clipLine(l OverlayLine, w, h, margin int) (OverlayLine, bool) {
	m := float64(margin)
	box := orb.Bound{Min: orb.Point{-m, -m}, Max: orb.Point{float64(w) + m, float64(h) + m}}
	parts := clip.LineString(box, orb.LineString{{l.X1, l.Y1}, {l.X2, l.Y2}})
	if len(parts) == 0 || len(parts[0]) < 2 {
		return l, false
	}
	a, b := parts[0][0], parts[0][len(parts[0])-1]
	l.X1, l.Y1, l.X2, l.Y2 = a[0], a[1], b[0], b[1]
	return l, true
}

// drawStroke walks the visible part of the line at unit steps and blends a
// square brush at each step.
func drawStroke(dst *image.RGBA, l OverlayLine, c colorful.Color, alpha float64, thickness int) {
	bounds := dst.Bounds()
	l, ok := clipLine(l, bounds.Dx(), bounds.Dy(), thickness)
	if !ok {
		return
	}
	dx, dy := l.X2-l.X1, l.Y2-l.Y1
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps < 1 {
		steps = 1
	}
	half := thickness / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		cx := int(math.Round(l.X1 + dx*t))
		cy := int(math.Round(l.Y1 + dy*t))
		for by := cy - half; by < cy-half+thickness; by++ {
			for bx := cx - half; bx < cx-half+thickness; bx++ {
				p := image.Pt(bx+bounds.Min.X, by+bounds.Min.Y)
				if !p.In(bounds) {
					continue
				}
				under, ok := colorful.MakeColor(dst.At(p.X, p.Y))
				if !ok {
					under = colorful.Color{}
				}
				r, g, b := under.BlendRgb(c, alpha).Clamped().RGB255()
				off := dst.PixOffset(p.X, p.Y)
				dst.Pix[off+0] = r
				dst.Pix[off+1] = g
				dst.Pix[off+2] = b
				dst.Pix[off+3] = 255
			}
		}
	}
}
