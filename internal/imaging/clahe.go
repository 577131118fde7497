package imaging

import "math"

// CLAHE performs contrast-limited adaptive histogram equalization.
//
// The buffer is split into tilesX x tilesY tiles. Each tile gets a 256-bin
// histogram whose bins are clipped at clipLimit times the mean bin height;
// the clipped excess is redistributed evenly and the cumulative histogram
// becomes that tile's lookup table. Output pixels bilinearly interpolate the
// lookup tables of the four nearest tile centers so no tile seams appear.
func CLAHE(src *Gray, tilesX, tilesY int, clipLimit float64) *Gray {
	if src.Empty() {
		return src.Clone()
	}
	if tilesX > src.Width {
		tilesX = src.Width
	}
	if tilesY > src.Height {
		tilesY = src.Height
	}
	if tilesX < 1 {
		tilesX = 1
	}
	if tilesY < 1 {
		tilesY = 1
	}
	if clipLimit < 1 {
		clipLimit = 1
	}

	tileW := float64(src.Width) / float64(tilesX)
	tileH := float64(src.Height) / float64(tilesY)

	luts := make([][256]float64, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := int(float64(ty)*tileH), int(float64(ty+1)*tileH)
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := int(float64(tx)*tileW), int(float64(tx+1)*tileW)
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	out := NewGray(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		ty0, ty1, ay := tileNeighbors(y, tileH, tilesY)
		for x := 0; x < src.Width; x++ {
			tx0, tx1, ax := tileNeighbors(x, tileW, tilesX)
			bin := int(toByte(src.Pix[y*src.Width+x]))

			tl := luts[ty0*tilesX+tx0][bin]
			tr := luts[ty0*tilesX+tx1][bin]
			bl := luts[ty1*tilesX+tx0][bin]
			br := luts[ty1*tilesX+tx1][bin]
			top := tl*(1-ax) + tr*ax
			bottom := bl*(1-ax) + br*ax
			out.Pix[y*src.Width+x] = top*(1-ay) + bottom*ay
		}
	}
	return out
}

// tileLUT builds the clipped, equalized mapping for one tile.
func tileLUT(src *Gray, x0, y0, x1, y1 int, clipLimit float64) [256]float64 {
	var hist [256]float64
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[toByte(src.Pix[y*src.Width+x])]++
			n++
		}
	}

	var lut [256]float64
	if n == 0 {
		for i := range lut {
			lut[i] = float64(i)
		}
		return lut
	}

	limit := math.Max(1, clipLimit*float64(n)/256)
	var excess float64
	for i, h := range hist {
		if h > limit {
			excess += h - limit
			hist[i] = limit
		}
	}
	bonus := excess / 256

	var cdf float64
	for i := range hist {
		cdf += hist[i] + bonus
		lut[i] = cdf / float64(n) * 255
	}
	return lut
}

// tileNeighbors finds the two tiles whose centers bracket pos along one axis
// and the interpolation weight toward the second.
func tileNeighbors(pos int, tileSize float64, tiles int) (t0, t1 int, alpha float64) {
	f := (float64(pos)+0.5)/tileSize - 0.5
	if f <= 0 {
		return 0, 0, 0
	}
	if f >= float64(tiles-1) {
		return tiles - 1, tiles - 1, 0
	}
	t0 = int(f)
	return t0, t0 + 1, f - float64(t0)
}
