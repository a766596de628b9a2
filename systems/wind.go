package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/snowdrift/config"
)

const (
	gustProbability = 0.65 // a short tick turns gusty when rand exceeds this
	gustRightBias   = 0.4
	gustCountdown   = 5
	steadyCountdown = 3
	gustFactor      = 1.2
	steadyFactor    = 0.06
)

// WindModel drifts between calm, steady and gusty wind. ShortTick moves the
// wind class; LongTick moves the target speed towards that class.
type WindModel struct {
	Class     int
	Direction float64
	NewWind   float64 // target speed every particle drifts towards

	whirl      float64
	whirlStart float64
	timer      float64

	prevShort   float64
	initialized bool

	rng *rand.Rand
}

// NewWindModel creates a calm wind.
func NewWindModel(rng *rand.Rand, whirl, whirlStart float64) *WindModel {
	w := &WindModel{Direction: 1, rng: rng}
	w.Configure(whirl, whirlStart)
	return w
}

// Configure sets the whirl magnitude and the calm countdown, resetting the
// current countdown.
func (w *WindModel) Configure(whirl, whirlStart float64) {
	w.whirl = whirl
	w.whirlStart = whirlStart
	w.timer = whirlStart
}

// Reset stills the wind.
func (w *WindModel) Reset() {
	w.Class = config.WindCalm
	w.NewWind = 0
}

// Force sets the wind class and direction directly.
func (w *WindModel) Force(class int, direction float64) {
	w.Class = class
	w.Direction = direction
}

// Countdown returns the current whirl countdown in seconds.
func (w *WindModel) Countdown() float64 { return w.timer }

// ShortTick may change the wind class. On average a change happens once per
// countdown; gusts decay to steady wind and steady wind to calm.
func (w *WindModel) ShortTick(now float64) {
	if !w.initialized {
		w.prevShort = now
		w.initialized = true
		return
	}
	if now-w.prevShort < w.timer*2*w.rng.Float64() {
		return
	}
	w.prevShort = now

	if w.rng.Float64() > gustProbability {
		if w.rng.Float64() > gustRightBias {
			w.Direction = 1
		} else {
			w.Direction = -1
		}
		w.Class = config.WindGust
		w.timer = gustCountdown
		return
	}

	if w.Class == config.WindGust {
		w.Class = config.WindSteady
		w.timer = steadyCountdown
		return
	}
	w.Class = config.WindCalm
	w.timer = w.whirlStart
}

// LongTick sets the target speed for the current class. Calm wind takes a
// bounded random walk.
func (w *WindModel) LongTick() {
	switch w.Class {
	case config.WindGust:
		w.NewWind = w.Direction * w.whirl * gustFactor
	case config.WindSteady:
		w.NewWind = w.Direction * w.whirl * steadyFactor
	default:
		w.NewWind += w.rng.Float64()*w.whirl - w.whirl/2
		w.NewWind = math.Max(-config.WindLimit, math.Min(config.WindLimit, w.NewWind))
	}
}
