// Package registry tracks one accumulation surface per eligible window plus
// the desktop floor, and reconciles them against window snapshots.
//
// Two locks guard it. The base lock covers the surface set and every height
// field; the swap lock covers the buffer swap and the read-for-draw path.
// No code path holds both.
package registry

import (
	"image/color"
	"log/slog"
	"math/rand"
	"slices"
	"sync"

	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/components"
	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/surface"
	"github.com/pthm-cable/snowdrift/syncutil"
	"github.com/pthm-cable/snowdrift/windows"
)

// FloorID keys the desktop floor surface.
const FloorID windows.ID = 0

const (
	windowInset = 4  // trimmed from each side of a window surface
	keepFree    = 25 // display rows the floor never reaches
	panelBand   = 100
	blowoffVY   = -10
)

// Emitter receives particles produced by blow-off.
type Emitter interface {
	Emit(components.Spawn)
}

// Painter draws a field's silhouette into a cleared raster.
type Painter func(dst *canvas.Raster, f *surface.Field, c color.RGBA)

// Surface is one accumulation strip. Geometry is fixed at creation; a
// window that moves gets a fresh surface.
type Surface struct {
	Window windows.Window
	X, Y   int // Y is the baseline the accumulation rests on
	W, H   int
	Field  *surface.Field
	Color  color.RGBA

	front, back *canvas.Raster
}

// Floor reports whether s is the desktop floor.
func (s *Surface) Floor() bool { return s.Window.ID == FloorID }

// Drawable is a published front buffer and its top-left position.
type Drawable struct {
	ID     windows.ID
	X, Y   int
	Raster *canvas.Raster
}

// Hit is the outcome of a particle collision test.
type Hit uint8

const (
	HitNone Hit = iota
	HitConsumed
	HitDissolve
)

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Surfaces   int
	FillRatios []float64
	Created    int
	Removed    int
}

// Options configures a Registry.
type Options struct {
	Width, Height int
	Settings      config.Settings
	Colors        [2]color.RGBA
	Provider      canvas.Provider
	Painter       Painter
	Emitter       Emitter
	Rand          *rand.Rand
	Logger        *slog.Logger
	LockTries     int
}

// Registry owns all accumulation surfaces.
type Registry struct {
	base *syncutil.SoftMutex
	swap sync.Mutex

	provider canvas.Provider
	paint    Painter
	emit     Emitter
	rng      *rand.Rand
	log      *slog.Logger
	colors   [2]color.RGBA

	// Guarded by base.
	surfaces map[windows.ID]*Surface
	order    []windows.ID // newest window first, floor last
	snap     windows.Snapshot
	settings config.Settings
	width    int
	height   int
	toggle   int
	class    int     // wind class
	newWind  float64 // target wind speed
	retired  []*Surface
	dropped  []*canvas.Raster // published fronts of retired surfaces
	created  int
	removed  int
	closed   bool

	// Guarded by swap.
	visible []Drawable
}

// New creates a registry holding only the floor.
func New(o Options) *Registry {
	if o.Provider == nil {
		o.Provider = canvas.Heap{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(1))
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	r := &Registry{
		base:     syncutil.NewSoftMutex(o.LockTries),
		provider: o.Provider,
		paint:    o.Painter,
		emit:     o.Emitter,
		rng:      o.Rand,
		log:      o.Logger,
		colors:   o.Colors,
		surfaces: make(map[windows.ID]*Surface),
		settings: o.Settings,
		width:    o.Width,
		height:   o.Height,
	}
	r.addFloor()
	return r
}

// randint returns a uniform integer in [0, m), or 0 when m ≤ 0.
func (r *Registry) randint(m int) int {
	if m <= 0 {
		return 0
	}
	return r.rng.Intn(m)
}

func (r *Registry) nextColor() color.RGBA {
	c := r.colors[r.toggle]
	r.toggle ^= 1
	return c
}

// floorDepth bounds the desktop depth so part of the display stays clear.
func (r *Registry) floorDepth() int {
	return max(0, min(r.settings.Fallen.MaxDesktopDepth, r.height-keepFree))
}

func (r *Registry) addFloor() {
	y := r.height - r.settings.Fallen.DesktopTopOffset
	s := r.add(windows.Window{ID: FloorID}, 0, y, r.width, r.floorDepth())
	if s == nil {
		r.log.Warn("display too narrow for floor accumulation", "width", r.width)
	}
}

// add creates a surface and places it at the head of the window order
// (the floor always stays last). Returns nil for strips too narrow to carry
// a spline.
func (r *Registry) add(w windows.Window, x, y, width, depth int) *Surface {
	floor := w.ID == FloorID
	field, err := surface.New(width, depth, floor, r.rng)
	if err != nil {
		return nil
	}
	s := &Surface{
		Window: w,
		X:      x,
		Y:      y,
		W:      width,
		H:      depth,
		Field:  field,
		Color:  r.nextColor(),
		front:  r.provider.Create(width, depth),
		back:   r.provider.Create(width, depth),
	}
	r.surfaces[w.ID] = s
	if floor {
		r.order = append(r.order, w.ID)
	} else {
		r.order = append([]windows.ID{w.ID}, r.order...)
	}
	r.created++
	r.log.Debug("surface created", "window", uint32(w.ID), "x", x, "y", y, "width", width, "depth", depth)
	return s
}

// retire detaches a surface. It is withdrawn from the draw list when the
// base lock is released, and its buffers are destroyed at the next swap so a
// concurrent draw never reads a destroyed raster.
func (r *Registry) retire(id windows.ID) {
	s, ok := r.surfaces[id]
	if !ok {
		return
	}
	delete(r.surfaces, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.retired = append(r.retired, s)
	r.dropped = append(r.dropped, s.front)
	r.removed++
	r.log.Debug("surface removed", "window", uint32(id))
}

// unlockBase releases the base lock and then withdraws the surfaces retired
// while it was held from the published draw list.
func (r *Registry) unlockBase() {
	dropped := r.dropped
	r.dropped = nil
	r.base.Unlock()
	if len(dropped) == 0 {
		return
	}

	r.swap.Lock()
	defer r.swap.Unlock()
	vis := r.visible[:0:0]
	for _, d := range r.visible {
		if !slices.Contains(dropped, d.Raster) {
			vis = append(vis, d)
		}
	}
	r.visible = vis
}

// eligible reports whether particles can reach s and whether s keeps what
// lands on it. The floor is always reachable; windows must be visible and
// shown on the current workspace.
func (r *Registry) eligible(s *Surface) (reachable, consumes bool) {
	if s.Floor() {
		return true, r.settings.Fallen.KeepOnDesktop
	}
	reachable = !s.Window.Hidden && r.snap.OnCurrentWorkspace(s.Window)
	return reachable, reachable && r.settings.Fallen.KeepOnWindows
}

// windowGeometry maps a window to its surface rectangle.
func (r *Registry) windowGeometry(w windows.Window) (x, y, width, depth int) {
	return w.X + windowInset, w.Y + r.settings.Fallen.WindowTopOffset,
		w.Width - 2*windowInset, r.settings.Fallen.MaxWindowDepth
}

// trackable reports whether an untracked window should get a surface.
func (r *Registry) trackable(w windows.Window, snap windows.Snapshot) bool {
	switch {
	case w.Y <= 0, w.Dock, w.Hidden:
		return false
	case w.Width == r.width && w.X == 0 && w.Y < panelBand:
		return false
	case snap.Drag != 0:
		return false
	}
	return true
}

// Reconcile brings the surface set in line with snap. It returns false
// without doing anything when the soft lock was not acquired.
func (r *Registry) Reconcile(snap windows.Snapshot, a *syncutil.Attempts) bool {
	if !r.base.SoftLock(a) {
		return false
	}
	defer r.unlockBase()
	if r.closed {
		return true
	}
	r.snap = snap

	var remove []windows.ID
	for _, id := range r.order {
		s := r.surfaces[id]
		if s.Floor() {
			continue
		}
		w, ok := snap.Find(id)
		if !ok || w.Hidden {
			remove = append(remove, id)
			continue
		}
		x, y, width, _ := r.windowGeometry(w)
		if x != s.X || y != s.Y || width != s.W {
			remove = append(remove, id)
			continue
		}
		s.Window = w
	}

	for _, id := range remove {
		r.blowoffAll(r.surfaces[id])
		r.retire(id)
	}

	for _, w := range snap.Windows {
		if _, ok := r.surfaces[w.ID]; ok || w.ID == FloorID {
			continue
		}
		if !r.trackable(w, snap) {
			continue
		}
		x, y, width, depth := r.windowGeometry(w)
		r.add(w, x, y, width, depth)
	}
	return true
}

// RemoveWindow blows off and drops the surface of a window that started
// being dragged. Returns false if the window had no surface.
func (r *Registry) RemoveWindow(id windows.ID) bool {
	if id == FloorID {
		return false
	}
	r.base.Lock()
	defer r.unlockBase()
	s, ok := r.surfaces[id]
	if !ok {
		return false
	}
	r.blowoffAll(s)
	r.retire(id)
	return true
}

// blowoffCount draws the number of particles one blow-off site produces.
func (r *Registry) blowoffCount() int {
	return int(0.04 * float64(r.settings.Blowoff.Factor) * r.rng.Float64())
}

// blowoffAll converts a whole surface's accumulation into particles.
func (r *Registry) blowoffAll(s *Surface) {
	if r.emit == nil || !r.settings.Blowoff.Show || !r.settings.Storm.Show {
		return
	}
	var vx float64
	if r.settings.Wind.Show {
		vx = r.newWind / 8
	}
	for i := 0; i < s.W; i += 2 {
		for j := 0; j < s.Field.Height[i]; j += 2 {
			n := r.blowoffCount()
			for k := 0; k < n; k++ {
				if r.rng.Float64() >= 0.1 {
					continue
				}
				r.emit.Emit(components.Spawn{
					X:  float64(s.X+i) + 16*(r.rng.Float64()-0.5),
					Y:  float64(s.Y - j - 8),
					VX: vx,
					VY: blowoffVY,
				})
			}
		}
	}
}
