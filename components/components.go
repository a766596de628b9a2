// Package components defines ECS components for airborne particles.
package components

// Position is a particle's real-valued screen position (top-left of its shape).
type Position struct {
	X, Y float64
}

// Velocity is a particle's velocity in pixels per second before the speed factor.
type Velocity struct {
	X, Y float64
}

// Flake holds per-particle physical and lifecycle state.
type Flake struct {
	Shape int // index into the shape table

	Mass        float64
	Sensitivity float64 // wind sensitivity
	InitVY      float64 // initial vertical velocity; caps the random walk

	Cyclic  bool // wraps horizontally instead of leaving the screen
	Frozen  bool // resting on a window being dragged
	Visible bool // false while covered by a foreground window

	// Dissolve ("fluff") state
	Fluff      bool
	FluffTimer float64
	FluffTime  float64
	Stalled    bool // dissolve was started by a stall

	// Last drawn position, rounded
	DrawX, DrawY int
}

// StartFluff begins dissolving over t seconds. No-op if already dissolving.
func (f *Flake) StartFluff(t float64) bool {
	if f.Fluff {
		return false
	}
	f.Fluff = true
	f.FluffTimer = 0
	f.FluffTime = max(t, 0.01)
	return true
}

// FadeFactor is the remaining opacity of a dissolving flake in [0,1].
func (f *Flake) FadeFactor() float64 {
	if !f.Fluff {
		return 1
	}
	return max(0, 1-f.FluffTimer/f.FluffTime)
}

// Spawn describes a particle emitted outside the creation throttle,
// for example by blow-off from an accumulation surface.
type Spawn struct {
	X, Y   float64
	VX, VY float64
	Cyclic bool
}
