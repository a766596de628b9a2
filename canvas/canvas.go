// Package canvas is the immediate-mode drawing surface the overlay renders
// into: an RGBA pixel buffer with rectangle clears, filled polygons and
// alpha blits, plus a provider for off-screen buffers.
package canvas

import (
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// MaxClearExtent bounds the width or height of a single clear.
const MaxClearExtent = 20000

// Point is a vertex in pixel coordinates.
type Point struct {
	X, Y float64
}

// Raster is a premultiplied RGBA pixel buffer.
type Raster struct {
	img *image.RGBA
	rz  *vector.Rasterizer
}

// NewRaster allocates a transparent w×h raster.
func NewRaster(w, h int) *Raster {
	w, h = max(w, 0), max(h, 0)
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image exposes the pixels.
func (r *Raster) Image() *image.RGBA { return r.img }

// Bounds returns the raster rectangle.
func (r *Raster) Bounds() image.Rectangle { return r.img.Rect }

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.img.Rect.Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.img.Rect.Dy() }

// Clear makes every pixel transparent.
func (r *Raster) Clear() {
	clear(r.img.Pix)
}

// ClearRect makes the rectangle transparent. Non-positive or oversized
// extents are dropped with a debug trace and false is returned.
func (r *Raster) ClearRect(x, y, w, h int) bool {
	if w <= 0 || h <= 0 || w > MaxClearExtent || h > MaxClearExtent {
		slog.Debug("clear rect dropped", "x", x, "y", y, "w", w, "h", h)
		return false
	}
	rect := image.Rect(x, y, x+w, y+h).Intersect(r.img.Rect)
	if rect.Empty() {
		return true
	}
	draw.Draw(r.img, rect, image.Transparent, image.Point{}, draw.Src)
	return true
}

// Set colors a single pixel, ignoring coordinates outside the raster.
func (r *Raster) Set(x, y int, c color.RGBA) {
	r.img.SetRGBA(x, y, c)
}

// FillRect paints an opaque rectangle.
func (r *Raster) FillRect(x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h).Intersect(r.img.Rect)
	if rect.Empty() {
		return
	}
	draw.Draw(r.img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

// FillPolygon fills the closed polygon with c using the non-zero rule.
func (r *Raster) FillPolygon(pts []Point, c color.RGBA) {
	if len(pts) < 3 || r.img.Rect.Empty() {
		return
	}
	w, h := r.Width(), r.Height()
	if r.rz == nil {
		r.rz = vector.NewRasterizer(w, h)
	} else {
		r.rz.Reset(w, h)
	}
	r.rz.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.rz.LineTo(float32(p.X), float32(p.Y))
	}
	r.rz.ClosePath()
	r.rz.Draw(r.img, r.img.Rect, image.NewUniform(c), image.Point{})
}

// Blit composites src over r with its top-left corner at (x, y), scaling
// src's alpha by alpha in [0,1]. Returns the destination rectangle touched.
func (r *Raster) Blit(src *Raster, x, y int, alpha float64) image.Rectangle {
	if src == nil || alpha <= 0 {
		return image.Rectangle{}
	}
	dst := src.img.Rect.Add(image.Pt(x, y)).Intersect(r.img.Rect)
	if dst.Empty() {
		return dst
	}
	sp := dst.Min.Sub(image.Pt(x, y))
	if alpha >= 1 {
		draw.Draw(r.img, dst, src.img, sp, draw.Over)
		return dst
	}
	mask := image.NewUniform(color.Alpha{A: uint8(alpha*255 + 0.5)})
	draw.DrawMask(r.img, dst, src.img, sp, mask, image.Point{}, draw.Over)
	return dst
}

// Provider creates and releases off-screen rasters.
type Provider interface {
	Create(w, h int) *Raster
	Destroy(r *Raster)
}

// Heap allocates rasters on the Go heap; Destroy drops the pixel buffer so
// a retained pointer cannot be drawn into.
type Heap struct{}

// Create allocates a transparent raster.
func (Heap) Create(w, h int) *Raster { return NewRaster(w, h) }

// Destroy releases r's pixels.
func (Heap) Destroy(r *Raster) {
	if r == nil {
		return
	}
	r.img = image.NewRGBA(image.Rectangle{})
	r.rz = nil
}
