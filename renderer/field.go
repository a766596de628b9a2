package renderer

import (
	"image/color"

	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/surface"
)

// PaintField fills the silhouette of f into dst. It matches
// registry.Painter.
func PaintField(dst *canvas.Raster, f *surface.Field, c color.RGBA) {
	var pts []canvas.Point
	for _, poly := range f.Silhouette() {
		pts = pts[:0]
		for _, p := range poly {
			pts = append(pts, canvas.Point{X: p.X, Y: p.Y})
		}
		dst.FillPolygon(pts, c)
	}
}
