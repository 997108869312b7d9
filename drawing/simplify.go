package drawing

import "gonum.org/v1/gonum/spatial/r2"

// simplify reduces a polyline with the Douglas-Peucker algorithm. Points
// closer than eps to the chord of their span are dropped. The first and last
// points are always kept.
func simplify(pts []r2.Vec, eps float64) []r2.Vec {
	if len(pts) < 3 {
		out := make([]r2.Vec, len(pts))
		copy(out, pts)
		return out
	}

	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	reduce(pts, 0, len(pts)-1, eps, keep)

	out := make([]r2.Vec, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func reduce(pts []r2.Vec, first, last int, eps float64, keep []bool) {
	if last-first < 2 {
		return
	}
	var (
		index int
		dmax  float64
	)
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(pts[i], pts[first], pts[last]); d > dmax {
			index, dmax = i, d
		}
	}
	if dmax > eps {
		keep[index] = true
		reduce(pts, first, index, eps, keep)
		reduce(pts, index, last, eps, keep)
	}
}

// segmentDistance returns the distance between p and the segment ab.
func segmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l := r2.Dot(ab, ab)
	if l == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}
