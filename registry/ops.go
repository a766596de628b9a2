package registry

import (
	"image"
	"image/color"

	"github.com/pthm-cable/snowdrift/components"
	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/syncutil"
	"github.com/pthm-cable/snowdrift/windows"
)

// SetWind records the wind state blow-off uses.
func (r *Registry) SetWind(class int, speed float64) {
	r.base.Lock()
	r.class, r.newWind = class, speed
	r.base.Unlock()
}

// SetSettings applies settings that do not change surface geometry.
func (r *Registry) SetSettings(s config.Settings) {
	r.base.Lock()
	r.settings = s
	r.base.Unlock()
}

// SetColors changes the colors new surfaces alternate between.
func (r *Registry) SetColors(c [2]color.RGBA) {
	r.base.Lock()
	r.colors = c
	r.base.Unlock()
}

// Reset drops every surface without blow-off and starts over with the floor
// sized for a width×height display. Windows return on the next Reconcile.
func (r *Registry) Reset(s config.Settings, width, height int) {
	r.base.Lock()
	defer r.unlockBase()
	for _, id := range append([]windows.ID(nil), r.order...) {
		r.retire(id)
	}
	r.settings = s
	r.width, r.height = width, height
	r.addFloor()
	r.log.Info("surfaces reset", "width", width, "height", height)
}

// Blowoff lets the wind lift accumulation off every consuming surface.
// Returns false when the soft lock was not acquired.
func (r *Registry) Blowoff(a *syncutil.Attempts) bool {
	if !r.base.SoftLock(a) {
		return false
	}
	defer r.base.Unlock()
	if r.emit == nil || !r.settings.Blowoff.Show || !r.settings.Storm.Show {
		return true
	}
	for _, id := range r.order {
		s := r.surfaces[id]
		if _, consumes := r.eligible(s); consumes {
			r.blowoffWind(s)
		}
	}
	return true
}

// blowoffWind picks a random quarter of the surface and, for each column
// deeper than a quarter of the surface depth, may lift particles off it.
func (r *Registry) blowoffWind(s *Surface) {
	run, low := s.W/4, s.H/4
	x := r.randint(s.W - run)
	for i := x; i < x+run; i++ {
		h := s.Field.Height[i]
		if h <= low {
			continue
		}
		if !r.settings.Wind.Show || r.class == config.WindCalm || r.rng.Float64() <= 0.5 {
			continue
		}
		n := r.blowoffCount()
		for j := 0; j < n; j++ {
			r.emit.Emit(components.Spawn{
				X:      float64(s.X + i),
				Y:      float64(s.Y-h) - r.rng.Float64()*4,
				VX:     0.25 * sign(r.newWind) * config.WindLimit,
				VY:     blowoffVY,
				Cyclic: s.Floor(),
			})
		}
		s.Field.Lower(i)
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Reshape gives every surface a new target profile. Returns false when the
// soft lock was not acquired.
func (r *Registry) Reshape(a *syncutil.Attempts) bool {
	if !r.base.SoftLock(a) {
		return false
	}
	defer r.base.Unlock()
	for _, s := range r.surfaces {
		s.Field.Reshape(r.rng)
	}
	return true
}

// Relax settles every column above its target by one pixel and returns the
// number of columns lowered.
func (r *Registry) Relax() int {
	r.base.Lock()
	defer r.base.Unlock()
	n := 0
	for _, s := range r.surfaces {
		n += s.Field.Relax()
	}
	return n
}

// HitTest checks a particle whose top-left corner is at (x, y) and whose
// width is w against every reachable surface, newest window first. A
// consuming surface below its target deposits where the particle landed.
func (r *Registry) HitTest(x, y, w int) Hit {
	r.base.Lock()
	defer r.base.Unlock()
	for _, id := range r.order {
		s := r.surfaces[id]
		reachable, consumes := r.eligible(s)
		if !reachable {
			continue
		}
		if x < s.X || x > s.X+s.W || y >= s.Y+2 {
			continue
		}
		istart := max(x-s.X, 0)
		imax := min(istart+w, s.W)
		for i := istart; i < imax; i++ {
			if y <= s.Y-s.Field.Height[i]-1 {
				continue
			}
			if !consumes {
				return HitDissolve
			}
			if s.Field.Height[i] < s.Field.Max[i] {
				s.Field.Deposit(x-s.X, w)
			}
			return HitConsumed
		}
	}
	return HitNone
}

// RedrawAndSwap repaints every consuming surface into its back buffer under
// the base lock, then swaps buffers and publishes the front buffers under
// the swap lock. With active false nothing is published. Retired surfaces
// are released once the new list is live. Returns the number published.
func (r *Registry) RedrawAndSwap(active bool) int {
	var drawn []*Surface

	r.base.Lock()
	if active {
		for _, id := range r.order {
			s := r.surfaces[id]
			if _, consumes := r.eligible(s); !consumes {
				continue
			}
			s.back.Clear()
			if r.paint != nil {
				r.paint(s.back, s.Field, s.Color)
			}
			drawn = append(drawn, s)
		}
	}
	retired := r.retired
	r.retired = nil
	r.base.Unlock()

	r.swap.Lock()
	defer r.swap.Unlock()
	vis := make([]Drawable, 0, len(drawn))
	for _, s := range drawn {
		s.front, s.back = s.back, s.front
		vis = append(vis, Drawable{ID: s.Window.ID, X: s.X, Y: s.Y - s.H, Raster: s.front})
	}
	r.visible = vis
	for _, s := range retired {
		r.destroy(s)
	}
	return len(vis)
}

func (r *Registry) destroy(s *Surface) {
	r.provider.Destroy(s.front)
	r.provider.Destroy(s.back)
	s.front, s.back = nil, nil
}

// Draw calls fn for every published front buffer, floor last.
func (r *Registry) Draw(fn func(Drawable)) {
	r.swap.Lock()
	defer r.swap.Unlock()
	for _, d := range r.visible {
		fn(d)
	}
}

// Bounds returns the screen rectangle a window's accumulation occupies.
func (r *Registry) Bounds(id windows.ID) (image.Rectangle, bool) {
	r.base.Lock()
	defer r.base.Unlock()
	s, ok := r.surfaces[id]
	if !ok {
		return image.Rectangle{}, false
	}
	return image.Rect(s.X, s.Y-s.H, s.X+s.W, s.Y), true
}

// IDs returns the tracked window ids, newest first, floor last.
func (r *Registry) IDs() []windows.ID {
	r.base.Lock()
	defer r.base.Unlock()
	return append([]windows.ID(nil), r.order...)
}

// Lookup returns a copy of a tracked surface.
func (r *Registry) Lookup(id windows.ID) (Surface, bool) {
	r.base.Lock()
	defer r.base.Unlock()
	s, ok := r.surfaces[id]
	if !ok {
		return Surface{}, false
	}
	return *s, true
}

// Stats summarizes the registry.
func (r *Registry) Stats() Stats {
	r.base.Lock()
	defer r.base.Unlock()
	st := Stats{
		Surfaces:   len(r.surfaces),
		FillRatios: make([]float64, 0, len(r.surfaces)),
		Created:    r.created,
		Removed:    r.removed,
	}
	for _, id := range r.order {
		st.FillRatios = append(st.FillRatios, r.surfaces[id].Field.FillRatio())
	}
	return st
}

// Close releases every surface. Later reconciles are no-ops.
func (r *Registry) Close() {
	r.base.Lock()
	r.closed = true
	for _, id := range append([]windows.ID(nil), r.order...) {
		r.retire(id)
	}
	retired := r.retired
	r.retired, r.dropped = nil, nil
	r.base.Unlock()

	r.swap.Lock()
	r.visible = nil
	for _, s := range retired {
		r.destroy(s)
	}
	r.swap.Unlock()
}
