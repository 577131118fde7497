package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// Scene is the framing of a roof photograph.
type Scene string

const (
	// SceneAuto lets the sky score decide.
	SceneAuto Scene = "auto"
	// SceneFacade is a street-level photo with sky above the roof.
	SceneFacade Scene = "facade"
	// SceneTopDown is an aerial or overhead photo.
	SceneTopDown Scene = "topdown"
)

// ParseScene validates a scene name; the empty string means SceneAuto.
func ParseScene(s string) (Scene, error) {
	switch Scene(s) {
	case "", SceneAuto:
		return SceneAuto, nil
	case SceneFacade, SceneTopDown:
		return Scene(s), nil
	}
	return "", fmt.Errorf("unknown scene %q (want auto, facade or topdown)", s)
}

const (
	// skySampleWidth is the width of the copy the sky score is computed on.
	skySampleWidth = 160
	// skyBandFraction is the share of rows, from the top, treated as potential sky.
	skyBandFraction = 0.15
)

// Classification is the outcome of scene classification.
type Classification struct {
	Scene    Scene   `json:"scene"`
	SkyScore float64 `json:"sky_score"`
	// SkyMean and SkyStdDev describe the top band the score came from.
	SkyMean   float64 `json:"sky_mean"`
	SkyStdDev float64 `json:"sky_stddev"`
	// Forced is set when the scene was chosen by configuration.
	Forced bool `json:"forced,omitempty"`
}

// SkyScore rates how much the top band of a gray buffer looks like open sky.
//
// Bright, low-variance bands score high:
//
//	mean > 150 and stddev < 35  ->  1.0
//	mean > 130 and stddev < 45  ->  0.75
//	mean > 110 and stddev < 55  ->  0.45
//	otherwise                   ->  0
func SkyScore(mean, stddev float64) float64 {
	switch {
	case mean > 150 && stddev < 35:
		return 1.0
	case mean > 130 && stddev < 45:
		return 0.75
	case mean > 110 && stddev < 55:
		return 0.45
	default:
		return 0
	}
}

// ClassifyScene decides between facade and top-down framing from a small
// copy of img. A mode other than SceneAuto is returned as forced, with the
// score still reported.
func ClassifyScene(img image.Image, threshold float64, mode Scene) Classification {
	small, _, _ := imaging.Downscale(img, skySampleWidth)
	gray := imaging.GrayFromImage(small)

	rows := int(math.Round(skyBandFraction * float64(gray.Height)))
	if rows < 1 {
		rows = 1
	}
	mean, stddev := gray.RowStats(0, rows)

	c := Classification{
		Scene:     SceneTopDown,
		SkyScore:  SkyScore(mean, stddev),
		SkyMean:   mean,
		SkyStdDev: stddev,
	}
	if c.SkyScore >= threshold {
		c.Scene = SceneFacade
	}
	if mode == SceneFacade || mode == SceneTopDown {
		c.Scene = mode
		c.Forced = true
	}
	return c
}

// SkyBoundary finds the row between 4% and 40% of the height with the
// strongest mean vertical change |g(y+1) - g(y-1)|. It anchors the ridge
// line in facade photos. Buffers too short to scan return -1.
func SkyBoundary(g *imaging.Gray) int {
	if g.Empty() {
		return -1
	}
	start := int(math.Ceil(0.04 * float64(g.Height)))
	end := int(math.Floor(0.40 * float64(g.Height)))
	if start < 1 {
		start = 1
	}
	if end > g.Height-2 {
		end = g.Height - 2
	}

	best, bestScore := -1, -1.0
	for y := start; y <= end; y++ {
		var sum float64
		above := g.Pix[(y-1)*g.Width : y*g.Width]
		below := g.Pix[(y+1)*g.Width : (y+2)*g.Width]
		for x := range above {
			sum += math.Abs(below[x] - above[x])
		}
		if score := sum / float64(g.Width); score > bestScore {
			best, bestScore = y, score
		}
	}
	return best
}
