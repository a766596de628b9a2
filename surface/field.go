// Package surface implements the per-surface accumulation height field:
// target profile generation, deposits, relaxation and the smoothed
// silhouette used for drawing.
package surface

import (
	"errors"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/interp"
)

const (
	// ControlPoints is the number of spline knots in a target profile.
	ControlPoints = 6
	// MinWidth is the narrowest strip that can carry a spline.
	MinWidth = 3
	// MinTarget is the lowest target height of any column.
	MinTarget = 2

	knotSpacing   = 1e-7
	knotRetries   = 100
	bucketColumns = 10
)

// ErrTooNarrow is returned for strips narrower than MinWidth.
var ErrTooNarrow = errors.New("surface: width below minimum spline width")

// Field is a strip of columns that accumulates height.
// Column i of a field of depth D holds Height[i] pixels, bounded by Max[i] ≤ D.
type Field struct {
	Width  int
	Depth  int
	Floor  bool // desktop floor: profile pinned full at the edges
	Height []int
	Max    []int
}

// New creates an empty field. Floor fields keep full height at their edges;
// window fields taper to zero.
func New(width, depth int, floor bool, rng *rand.Rand) (*Field, error) {
	if width < MinWidth {
		return nil, ErrTooNarrow
	}
	if depth < 0 {
		depth = 0
	}
	f := &Field{
		Width:  width,
		Depth:  depth,
		Floor:  floor,
		Height: make([]int, width),
		Max:    make([]int, width),
	}
	f.Reshape(rng)
	return f, nil
}

// Reshape generates a new random target profile.
func (f *Field) Reshape(rng *rand.Rand) {
	xs := uniqueSorted(rng, ControlPoints, knotSpacing)
	ys := make([]float64, ControlPoints)

	last := float64(f.Width - 1)
	for i := range xs {
		xs[i] *= last
		ys[i] = rng.Float64()
	}
	xs[0] = 0
	xs[ControlPoints-1] = last

	edge := 0.0
	if f.Floor {
		edge = 1.0
	}
	ys[0] = edge
	ys[ControlPoints-1] = edge

	var spline interp.FritschButland
	if err := spline.Fit(xs, ys); err != nil {
		// Knots are strictly increasing, so Fit only fails on a
		// degenerate width; fall back to a flat profile.
		for i := range f.Max {
			f.Max[i] = max(MinTarget, f.Depth/2)
		}
		return
	}

	for i := 0; i < f.Width; i++ {
		v := int(float64(f.Depth) * spline.Predict(float64(i)))
		if v < MinTarget {
			v = MinTarget
		}
		f.Max[i] = v
	}
}

// uniqueSorted returns n sorted values in [0,1) with neighbours at least d
// apart, redrawing offenders. After knotRetries rounds it gives up and
// returns equidistant values.
func uniqueSorted(rng *rand.Rand, n int, d float64) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = rng.Float64()
	}
	sort.Float64s(a)

	for round := 0; ; round++ {
		changed := false
		for i := 0; i < n-1; i++ {
			if a[i+1]-a[i] < d {
				a[i] = rng.Float64()
				changed = true
			}
		}
		if !changed {
			return a
		}
		if round >= knotRetries {
			for i := range a {
				a[i] = float64(i) / float64(n)
			}
			return a
		}
		sort.Float64s(a)
	}
}

// column clamps i into the field and returns its height.
func (f *Field) column(i int) int {
	if i < 0 {
		return f.Height[0]
	}
	if i >= f.Width {
		return f.Height[f.Width-1]
	}
	return f.Height[i]
}

// window copies heights for columns imin-1..imax inclusive, replicating the edges.
func (f *Field) window(dst []int, imin, imax int) []int {
	dst = dst[:0]
	for i := imin - 1; i <= imax; i++ {
		dst = append(dst, f.column(i))
	}
	return dst
}

// Deposit raises the columns [position, position+width) where a particle
// landed. Each column below its target is lifted to the mean of its
// neighbours plus a raise of 4, 2 or 1 pixels (depending on how full the
// first column is), and by at least one pixel, never past its target. A
// 3-point box average then smooths the range; it never takes a raised
// column below one pixel over its old height, nor any column below its old
// height. Heights at a spot that keeps collecting therefore rise by at least
// one pixel per call until they reach the target. Returns true if any
// column was raised.
func (f *Field) Deposit(position, width int) bool {
	imin := max(position, 0)
	imax := min(position+width, f.Width)
	if imin >= imax {
		return false
	}

	raise := 1
	switch h, m := f.Height[imin], f.Max[imin]; {
	case h < m/4:
		raise = 4
	case h < m/2:
		raise = 2
	}

	tmp := f.window(make([]int, 0, imax-imin+2), imin, imax)
	floor := make([]int, imax-imin)
	changed := false
	for i, k := imin, 1; i < imax; i, k = i+1, k+1 {
		floor[k-1] = tmp[k]
		if tmp[k] >= f.Max[i] {
			continue
		}
		f.Height[i] = min(f.Max[i], max(tmp[k]+1, raise+(tmp[k-1]+tmp[k+1])/2))
		floor[k-1] = tmp[k] + 1
		changed = true
	}

	tmp = f.window(tmp, imin, imax)
	for i, k := imin, 1; i < imax; i, k = i+1, k+1 {
		h := min(f.Max[i], (tmp[k-1]+tmp[k]+tmp[k+1])/3)
		f.Height[i] = max(h, floor[k-1])
	}
	return changed
}

// Relax lowers every column above its target by one pixel and returns the
// number of columns adjusted.
func (f *Field) Relax() int {
	n := 0
	for i := range f.Height {
		if f.Height[i] > f.Max[i] {
			f.Height[i]--
			n++
		}
	}
	return n
}

// Lower removes one pixel from column i. Returns false if it was empty.
func (f *Field) Lower(i int) bool {
	if i < 0 || i >= f.Width || f.Height[i] <= 0 {
		return false
	}
	f.Height[i]--
	return true
}

// Top returns the height of column i, or 0 outside the field.
func (f *Field) Top(i int) int {
	if i < 0 || i >= f.Width {
		return 0
	}
	return f.Height[i]
}

// Clear empties every column.
func (f *Field) Clear() {
	for i := range f.Height {
		f.Height[i] = 0
	}
}

// FillRatio is total height over total target height.
func (f *Field) FillRatio() float64 {
	var h, m int
	for i := range f.Height {
		h += f.Height[i]
		m += f.Max[i]
	}
	if m == 0 {
		return 0
	}
	return float64(h) / float64(m)
}
