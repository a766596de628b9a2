package surface

import "gonum.org/v1/gonum/interp"

// Point is a vertex of a silhouette polygon in field-local pixels,
// with Y growing downwards from the top of the strip.
type Point struct {
	X, Y float64
}

// Polygon is a closed outline; the last vertex connects back to the first.
type Polygon []Point

// Silhouette returns the smoothed outline of the current heights as one
// closed polygon per contiguous run of non-zero columns. Heights are
// averaged over buckets of ten columns and a monotone spline through the
// bucket means is sampled at every column.
func (f *Field) Silhouette() []Polygon {
	xs, ys := f.bucketMeans()

	var spline interp.FritschButland
	if err := spline.Fit(xs, ys); err != nil {
		return nil
	}

	profile := make([]int, f.Width)
	for i := range profile {
		profile[i] = int(spline.Predict(float64(i)))
	}
	return outline(profile, float64(f.Depth))
}

// outline closes one polygon per run of non-zero profile values. A run
// still open at the last column is closed there.
func outline(profile []int, depth float64) []Polygon {
	var out []Polygon
	var cur Polygon
	start := 0
	drawing := false
	last := len(profile) - 1

	for i, v := range profile {
		x := float64(i)
		if !drawing {
			if v == 0 {
				continue
			}
			start = i
			cur = Polygon{{x, depth}}
			drawing = true
		}

		cur = append(cur, Point{x, depth - float64(v)})

		if v == 0 || i == last {
			cur = append(cur, Point{x, depth}, Point{float64(start), depth})
			out = append(out, cur)
			cur = nil
			drawing = false
		}
	}
	return out
}

// bucketMeans returns spline knots for the silhouette: the left edge,
// one knot per full bucket, one for the remainder and the right edge.
// Window strips taper to zero at both edges; the floor repeats its
// outermost bucket means.
func (f *Field) bucketMeans() (xs, ys []float64) {
	n := MinWidth + (f.Width-2)/bucketColumns
	xs = make([]float64, n)
	ys = make([]float64, n)

	full := n - MinWidth
	for b := 0; b < full; b++ {
		sum := 0
		for j := 0; j < bucketColumns; j++ {
			sum += f.Height[bucketColumns*b+j]
		}
		ys[b+1] = float64(sum) / bucketColumns
		xs[b+1] = float64(bucketColumns*b) + bucketColumns*0.5
	}

	mk := bucketColumns * full
	sum := 0
	for i := mk; i < f.Width; i++ {
		sum += f.Height[i]
	}
	ys[full+1] = float64(sum) / float64(f.Width-mk)
	xs[full+1] = float64(mk) + 0.5*float64(f.Width-mk-1)

	xs[n-1] = float64(f.Width - 1)
	if f.Floor {
		ys[0] = ys[1]
		ys[n-1] = ys[n-2]
	}
	return xs, ys
}
