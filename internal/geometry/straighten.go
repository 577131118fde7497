package geometry

// StraightenOptions controls breakpoint straightening.
type StraightenOptions struct {
	// BreakAngle in degrees: a vertex whose heading changes by more than this
	// is a corner and never moves.
	BreakAngle float64
	// Blend in [0,1] is how far interior vertices move toward the fitted line.
	Blend float64
}

// Breakpoints returns the indices of corner vertices in ascending order.
// Open sequences always include both ends.
func Breakpoints(points []Point, closed bool, breakAngle float64) []int {
	n := len(points)
	limit := degToRad(breakAngle)
	var out []int
	for i := 0; i < n; i++ {
		if !closed && (i == 0 || i == n-1) {
			out = append(out, i)
			continue
		}
		if closed && n < 3 {
			break
		}
		prev := points[(i-1+n)%n]
		next := points[(i+1)%n]
		if turnAngle(prev, points[i], next) > limit {
			out = append(out, i)
		}
	}
	return out
}

// Straighten removes wobble between corners. Each run of vertices between
// two consecutive breakpoints gets a PCA line fitted through it, and the
// run's interior vertices are pulled toward that line by Blend. Breakpoints
// keep their exact coordinates. Runs whose fit is degenerate are left alone,
// as are closed shapes with no corner at all.
func Straighten(points []Point, closed bool, opts StraightenOptions) []Point {
	out := ClonePoints(points)
	n := len(points)
	if n < 3 || opts.Blend <= 0 {
		return out
	}

	breaks := Breakpoints(points, closed, opts.BreakAngle)
	if len(breaks) == 0 {
		return out
	}

	runs := len(breaks) - 1
	if closed {
		runs = len(breaks)
	}
	for k := 0; k < runs; k++ {
		start := breaks[k]
		end := breaks[(k+1)%len(breaks)]
		span := end - start
		if span <= 0 {
			span += n
		}
		if span < 2 {
			continue
		}

		run := make([]Point, 0, span+1)
		for s := 0; s <= span; s++ {
			run = append(run, points[(start+s)%n])
		}
		line, ok := FitLine(run)
		if !ok {
			continue
		}
		for s := 1; s < span; s++ {
			idx := (start + s) % n
			p := points[idx]
			out[idx] = p.Lerp(line.Closest(p), opts.Blend)
		}
	}
	return out
}

// RemoveCollinear drops vertices whose heading changes by less than angle
// degrees, flattest first. Open sequences keep both ends; closed ones keep
// at least three points.
func RemoveCollinear(points []Point, closed bool, angle float64) []Point {
	out := ClonePoints(points)
	limit := degToRad(angle)
	minKeep := 2
	if closed {
		minKeep = 3
	}

	for len(out) > minKeep {
		n := len(out)
		best, bestTurn := -1, limit
		for i := 0; i < n; i++ {
			if !closed && (i == 0 || i == n-1) {
				continue
			}
			turn := turnAngle(out[(i-1+n)%n], out[i], out[(i+1)%n])
			if turn < bestTurn {
				best, bestTurn = i, turn
			}
		}
		if best < 0 {
			break
		}
		out = append(out[:best], out[best+1:]...)
	}
	return out
}
