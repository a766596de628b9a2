package renderer

import (
	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/registry"
)

// SurfaceSource yields the published accumulation surfaces.
type SurfaceSource interface {
	Draw(fn func(registry.Drawable))
}

// ParticleSource yields every drawable particle.
type ParticleSource interface {
	Draw(fn func(x, y, shape int, fade float64))
}

// Layers is what one frame draws, back to front.
type Layers struct {
	Active    bool    // workspace visible; false only erases
	Alpha     float64 // global opacity
	Stars     *Stars  // nil when stars are hidden
	Surfaces  SurfaceSource
	Particles ParticleSource
	Shapes    *Shapes
}

// Frame owns the overlay image and redraws it once per display tick.
type Frame struct {
	target *canvas.Raster
	damage Damage
	warmUp int
	ticks  int
}

// NewFrame creates a w×h frame that stays blank for its first warmUp
// ticks.
func NewFrame(w, h, warmUp int) *Frame {
	return &Frame{target: canvas.NewRaster(w, h), warmUp: warmUp}
}

// Target exposes the frame image for presentation.
func (f *Frame) Target() *canvas.Raster { return f.target }

// Resize replaces the frame image with a blank w×h one.
func (f *Frame) Resize(w, h int) {
	f.target = canvas.NewRaster(w, h)
	f.damage = Damage{}
}

// Render erases what the last frame drew and, when active, draws stars,
// surfaces and particles in that order. It returns false while warming up.
func (f *Frame) Render(l Layers) bool {
	f.ticks++
	if f.ticks <= f.warmUp {
		return false
	}

	f.damage.Erase(f.target)
	if !l.Active {
		return true
	}

	if l.Stars != nil {
		l.Stars.Draw(f.target, l.Alpha, &f.damage)
	}

	if l.Surfaces != nil {
		l.Surfaces.Draw(func(d registry.Drawable) {
			f.damage.Add(f.target.Blit(d.Raster, d.X, d.Y, l.Alpha))
		})
	}

	if l.Particles != nil && l.Shapes != nil {
		l.Particles.Draw(func(x, y, shape int, fade float64) {
			sh := l.Shapes.Get(shape)
			r := f.target.Blit(sh.Raster, x, y, l.Alpha*fade)
			f.damage.Add(r.Inset(-1).Intersect(f.target.Bounds()))
		})
	}
	return true
}
