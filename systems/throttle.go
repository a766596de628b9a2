package systems

import "math"

// anomalyFactor bounds a plausible elapsed time as a multiple of the call
// interval; anything longer (suspend, clock jump) is discarded.
const anomalyFactor = 10

// CreationThrottle turns elapsed wall time into a whole number of particles
// to create. Rounding residue is carried to the next call, so a low rate
// still produces its exact long-run count.
type CreationThrottle struct {
	Interval float64 // expected seconds between calls

	carry   float64
	last    float64
	started bool
}

// NewCreationThrottle creates a throttle called every interval seconds.
func NewCreationThrottle(interval float64) *CreationThrottle {
	return &CreationThrottle{Interval: interval}
}

// Carry returns the elapsed time not yet turned into particles.
func (t *CreationThrottle) Carry() float64 { return t.carry }

// Skip advances the clock without creating, for ticks where creation is
// suspended.
func (t *CreationThrottle) Skip(now float64) {
	t.last = now
}

// Tick returns how many particles to create at time now for a rate of pps
// particles per second. The first call only starts the clock.
func (t *CreationThrottle) Tick(now, pps float64) int {
	if !t.started {
		t.started = true
		t.last = now
		t.carry = 0
		return 0
	}

	elapsed := now - t.last
	t.last = now
	if elapsed < 0 || elapsed > anomalyFactor*t.Interval {
		return 0
	}
	if pps <= 0 {
		t.carry = 0
		return 0
	}

	total := elapsed + t.carry
	n := int(math.RoundToEven(total * pps))
	if n < 0 {
		n = 0
	}
	t.carry = total - float64(n)/pps
	return n
}

// ParticlesPerSecond is the creation rate for a display width given the
// per-pixel spawn rate, saturation percentage and speed factor.
func ParticlesPerSecond(width int, spawnRate float64, saturation int, speedFactor float64) float64 {
	return float64(width) * spawnRate * float64(saturation) / 100 * speedFactor
}
