package detection

import (
	"math"
	"testing"

	"github.com/ironsheep/roofline-mcp/internal/imaging"
)

// createEdgeMap returns an empty 40x40 edge map.
func createEdgeMap() *imaging.EdgeMap {
	return &imaging.EdgeMap{
		Width:  40,
		Height: 40,
		Pix:    make([]uint8, 1600),
		Orient: make([]float64, 1600),
	}
}

func setEdge(e *imaging.EdgeMap, x, y int, orient float64) {
	e.Pix[y*e.Width+x] = imaging.EdgeStrong
	e.Orient[y*e.Width+x] = orient
}

// createCornerEdgeMap draws an L: a horizontal edge on row 10 from x=5 to
// x=30 and a vertical edge on column 30 from y=11 to y=35.
func createCornerEdgeMap() *imaging.EdgeMap {
	e := createEdgeMap()
	for x := 5; x <= 30; x++ {
		setEdge(e, x, 10, math.Pi/2)
	}
	for y := 11; y <= 35; y++ {
		setEdge(e, 30, y, 0)
	}
	return e
}

func TestFindComponents_OrientationGating(t *testing.T) {
	e := createCornerEdgeMap()

	gated := findComponents(e, 4, 22.5*math.Pi/180)
	if len(gated) != 2 {
		t.Fatalf("gated: got %d components, want 2", len(gated))
	}
	if len(gated[0]) != 26 || len(gated[1]) != 25 {
		t.Errorf("gated sizes = %d, %d, want 26, 25", len(gated[0]), len(gated[1]))
	}

	plain := findComponents(e, 4, 0)
	if len(plain) != 1 || len(plain[0]) != 51 {
		t.Errorf("ungated: got %d components, want one of 51 pixels", len(plain))
	}
}

func TestFindComponents_FlatPixelsJoin(t *testing.T) {
	e := createEdgeMap()
	for x := 5; x <= 30; x++ {
		setEdge(e, x, 10, math.Pi/2)
	}
	e.Orient[10*40+17] = math.NaN()

	comps := findComponents(e, 4, 22.5*math.Pi/180)
	if len(comps) != 1 || len(comps[0]) != 26 {
		t.Errorf("got %d components, want one of 26 pixels", len(comps))
	}
}

func TestFindComponents_MinPixels(t *testing.T) {
	e := createEdgeMap()
	setEdge(e, 3, 3, 0)
	setEdge(e, 4, 3, 0)
	if comps := findComponents(e, 4, 0); len(comps) != 0 {
		t.Errorf("2-pixel speck survived: %d components", len(comps))
	}
}

func TestExtractSegments(t *testing.T) {
	e := createCornerEdgeMap()

	segs := ExtractSegments(e, 4, 22.5, 20)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	h := segs[0]
	if math.Abs(h.X1-5) > 1e-9 || math.Abs(h.X2-30) > 1e-9 || math.Abs(h.Y1-10) > 1e-9 || math.Abs(h.Y2-10) > 1e-9 {
		t.Errorf("horizontal segment = %+v, want (5,10)-(30,10)", h)
	}
	if math.Abs(segs[1].Angle-math.Pi/2) > 1e-9 || math.Abs(segs[1].Length-24) > 1e-9 {
		t.Errorf("vertical segment = %+v", segs[1])
	}

	if long := ExtractSegments(e, 4, 22.5, 24.5); len(long) != 1 {
		t.Errorf("min length 24.5: got %d segments, want 1", len(long))
	}
}
