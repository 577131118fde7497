package imaging

import (
	"math"
	"testing"
)

func TestBilateral_UniformInput(t *testing.T) {
	for _, v := range []float64{0, 37, 137, 255} {
		src := grayColumns(40, 30, func(int) float64 { return v })

		out := Bilateral(src, 4, 3, 25)
		lo, hi := grayRange(out)
		if hi-lo >= 1 {
			t.Errorf("value %v: max-min got %v, want < 1", v, hi-lo)
		}
		if math.Abs(lo-v) > 1e-6 {
			t.Errorf("value %v: output drifted to %v", v, lo)
		}
	}
}

func TestBilateral_PreservesStep(t *testing.T) {
	src := grayColumns(40, 20, func(x int) float64 {
		if x < 20 {
			return 50
		}
		return 200
	})

	out := Bilateral(src, 4, 3, 25)
	if got := out.At(19, 10); got > 51 {
		t.Errorf("dark side of step: got %v, want about 50", got)
	}
	if got := out.At(20, 10); got < 199 {
		t.Errorf("bright side of step: got %v, want about 200", got)
	}
}

func TestBilateral_SmoothsNoise(t *testing.T) {
	src := grayColumns(30, 30, func(x int) float64 {
		if x%2 == 0 {
			return 100
		}
		return 110
	})

	out := Bilateral(src, 4, 3, 25)
	lo, hi := grayRange(out)
	if hi-lo >= 10 {
		t.Errorf("small ripple not reduced: max-min got %v", hi-lo)
	}
}

func TestBilateral_DoesNotModifyInput(t *testing.T) {
	src := grayColumns(10, 10, func(x int) float64 { return float64(x * 20) })
	before := src.Clone()

	Bilateral(src, 2, 2, 10)
	for i := range src.Pix {
		if src.Pix[i] != before.Pix[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestBilateral_DegenerateParameters(t *testing.T) {
	src := grayColumns(5, 5, func(x int) float64 { return float64(x) })

	out := Bilateral(src, 0, 3, 25)
	if out == src {
		t.Error("expected a new buffer")
	}
	for i := range src.Pix {
		if out.Pix[i] != src.Pix[i] {
			t.Fatalf("radius 0 changed pixel %d", i)
		}
	}
}

func TestMedian_RemovesSpeck(t *testing.T) {
	src := grayColumns(21, 21, func(int) float64 { return 50 })
	src.Pix[10*src.Width+10] = 255

	out := Median(src, 1)
	if got := out.At(10, 10); got != 50 {
		t.Errorf("speck at (10,10) got %v, want 50", got)
	}
	if got := Median(src, 0).At(10, 10); got != 255 {
		t.Errorf("radius 0 should copy input, got %v", got)
	}
}
