package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Region is a pixel rectangle. X1/Y1 are inclusive, X2/Y2 exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// IsZero reports whether r is the zero Region, which callers treat as the
// whole image.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Validate checks that r is non-empty and lies inside bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// CropRegion extracts r from img. The result's origin is (0,0); add
// (r.X1, r.Y1) to map its coordinates back onto img.
func CropRegion(img image.Image, r Region) (image.Image, error) {
	if err := r.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	return imaging.Crop(img, r.Rect()), nil
}

// NamedRegion resolves a named part of a width x height image: top-left,
// top-right, bottom-left, bottom-right, top-half, bottom-half, left-half,
// right-half or center (the middle 50% in each direction).
func NamedRegion(width, height int, name string) (Region, error) {
	midX := width / 2
	midY := height / 2

	switch name {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, width, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, height}, nil
	case "bottom-right":
		return Region{midX, midY, width, height}, nil
	case "top-half":
		return Region{0, 0, width, midY}, nil
	case "bottom-half":
		return Region{0, midY, width, height}, nil
	case "left-half":
		return Region{0, 0, midX, height}, nil
	case "right-half":
		return Region{midX, 0, width, height}, nil
	case "center":
		qW := width / 4
		qH := height / 4
		return Region{qW, qH, width - qW, height - qH}, nil
	}
	return Region{}, fmt.Errorf("unknown region: %s", name)
}
