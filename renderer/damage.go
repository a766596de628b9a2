package renderer

import (
	"image"

	"github.com/pthm-cable/snowdrift/canvas"
)

// Damage collects the rectangles drawn in one frame so the next frame can
// clear exactly those.
type Damage struct {
	rects []image.Rectangle
}

// Add records r; empty rectangles are ignored.
func (d *Damage) Add(r image.Rectangle) {
	if r.Empty() {
		return
	}
	d.rects = append(d.rects, r)
}

// Len returns the number of recorded rectangles.
func (d *Damage) Len() int { return len(d.rects) }

// Erase clears every recorded rectangle from dst and forgets them.
func (d *Damage) Erase(dst *canvas.Raster) {
	for _, r := range d.rects {
		dst.ClearRect(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	}
	d.rects = d.rects[:0]
}
