// Package renderer turns simulation state into pixels: particle shapes,
// the star decoration, surface silhouettes and the per-tick frame.
package renderer

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/systems"
)

// RandomShapeCount is the number of generated shapes added to the
// built-in set.
const RandomShapeCount = 300

// builtinShapes are small hand-drawn flakes, '#' marking a set pixel.
var builtinShapes = [][]string{
	{
		".#.",
		"###",
		".#.",
	},
	{
		"#.#",
		".#.",
		"#.#",
	},
	{
		"..#..",
		"#.#.#",
		".###.",
		"#.#.#",
		"..#..",
	},
	{
		"##",
		"##",
	},
}

// Shape is one particle sprite.
type Shape struct {
	Raster *canvas.Raster
	W, H   int
}

// Shapes is the sprite table particles index into by shape id.
type Shapes struct {
	list []Shape
}

// ShapeOptions configures shape generation.
type ShapeOptions struct {
	SizeFactor  int     // base extent in pixels
	Scale       float64 // user scale multiplier
	WindowScale float64 // display scale, see WindowScale
	Colors      [2]color.RGBA
}

// WindowScale relates the display size to a 1000×576 reference.
func WindowScale(w, h int) float64 {
	return math.Min(float64(w)/1000, float64(h)/576)
}

// NewShapes builds the built-in shapes followed by RandomShapeCount
// generated ones. Colors alternate between the two configured colors.
func NewShapes(rng *rand.Rand, o ShapeOptions) *Shapes {
	s := &Shapes{list: make([]Shape, 0, len(builtinShapes)+RandomShapeCount)}
	next := 0
	nextColor := func() color.RGBA {
		c := o.Colors[next%2]
		next++
		return c
	}

	for _, rows := range builtinShapes {
		s.list = append(s.list, fromRows(rows, nextColor()))
	}

	scale := o.Scale * 0.8 * o.WindowScale
	f := float64(max(o.SizeFactor, 1))
	for i := 0; i < RandomShapeCount; i++ {
		w := max(1, int((f+f*rng.Float64())*scale))
		h := max(1, int((f+f*rng.Float64())*scale))
		s.list = append(s.list, randomShape(rng, w, h, nextColor()))
	}
	return s
}

// Len returns the number of shapes.
func (s *Shapes) Len() int { return len(s.list) }

// Get returns shape i, or the first shape for an out-of-range id.
func (s *Shapes) Get(i int) Shape {
	if i < 0 || i >= len(s.list) {
		return s.list[0]
	}
	return s.list[i]
}

// Sizes lists every shape's extent in id order.
func (s *Shapes) Sizes() []systems.ShapeSize {
	out := make([]systems.ShapeSize, len(s.list))
	for i, sh := range s.list {
		out[i] = systems.ShapeSize{W: sh.W, H: sh.H}
	}
	return out
}

func fromRows(rows []string, c color.RGBA) Shape {
	h := len(rows)
	w := len(rows[0])
	r := canvas.NewRaster(w, h)
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				r.Set(x, y, c)
			}
		}
	}
	return Shape{Raster: r, W: w, H: h}
}

// randomShape scatters pixels over a w×h grid, favouring the centre, and
// rotates the result by a random angle in [0, π).
func randomShape(rng *rand.Rand, w, h int, c color.RGBA) Shape {
	hw, hh := 0.5*float64(w), 0.5*float64(h)
	xs := []float64{0}
	ys := []float64{0}

	for j := 0; j < h; j++ {
		py := 2 * float64(min(j, h-j)) / float64(h)
		for i := 0; i < w; i++ {
			px := 2 * float64(min(i, w-i)) / float64(w)
			if rng.Float64() > 1.1-px*py && len(xs) < w*h {
				xs = append(xs, float64(i)-hw)
				ys = append(ys, float64(j)-hh)
			}
		}
	}

	a := rng.Float64() * math.Pi
	cos, sin := math.Cos(a), math.Sin(a)
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for k := range xs {
		x := xs[k]*cos - ys[k]*sin
		y := xs[k]*sin + ys[k]*cos
		xs[k], ys[k] = x, y
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}

	nw := int(math.Ceil(xmax - xmin + 1))
	nh := int(math.Ceil(ymax - ymin + 1))
	if nw == 1 && nh == 1 {
		nh = 2
	}

	r := canvas.NewRaster(nw, nh)
	for k := range xs {
		r.Set(int(xs[k]-xmin), int(ys[k]-ymin), c)
	}
	if nw == 1 && nh == 2 {
		r.Set(0, 1, c)
	}
	return Shape{Raster: r, W: nw, H: nh}
}
