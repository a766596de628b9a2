package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/snowdrift/config"
)

func TestLongTickTargets(t *testing.T) {
	tests := []struct {
		name      string
		class     int
		direction float64
		want      float64
	}{
		{"gust right", config.WindGust, 1, 12.0},
		{"gust left", config.WindGust, -1, -12.0},
		{"steady", config.WindSteady, 1, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindModel(rand.New(rand.NewSource(1)), 10, 30)
			w.Force(tt.class, tt.direction)
			w.LongTick()
			if math.Abs(w.NewWind-tt.want) > 1e-9 {
				t.Errorf("NewWind = %v, want %v", w.NewWind, tt.want)
			}
		})
	}
}

func TestCalmWalkBounded(t *testing.T) {
	w := NewWindModel(rand.New(rand.NewSource(3)), 2000, 30)
	for i := 0; i < 500; i++ {
		w.LongTick()
		if math.Abs(w.NewWind) > config.WindLimit {
			t.Fatalf("tick %d: NewWind = %v beyond ±%v", i, w.NewWind, config.WindLimit)
		}
	}
}

func TestShortTickTransitions(t *testing.T) {
	w := NewWindModel(rand.New(rand.NewSource(5)), 100, 30)
	w.ShortTick(0)

	now := 0.0
	gusts := 0
	for i := 0; i < 2000; i++ {
		prev := w.Class
		now += 100 // always past the countdown
		w.ShortTick(now)

		switch w.Class {
		case config.WindGust:
			gusts++
			if w.Countdown() != 5 {
				t.Fatalf("gust countdown = %v", w.Countdown())
			}
		case config.WindSteady:
			if prev != config.WindGust {
				t.Fatalf("steady wind entered from class %d", prev)
			}
			if w.Countdown() != 3 {
				t.Fatalf("steady countdown = %v", w.Countdown())
			}
		case config.WindCalm:
			if prev == config.WindGust {
				t.Fatal("gust fell straight to calm")
			}
			if w.Countdown() != 30 {
				t.Fatalf("calm countdown = %v", w.Countdown())
			}
		default:
			t.Fatalf("unknown class %d", w.Class)
		}
	}
	if gusts == 0 {
		t.Error("no gusts in 2000 transitions")
	}
}

func TestResetStillsWind(t *testing.T) {
	w := NewWindModel(rand.New(rand.NewSource(1)), 10, 30)
	w.Force(config.WindGust, 1)
	w.LongTick()
	w.Reset()
	if w.Class != config.WindCalm || w.NewWind != 0 {
		t.Errorf("after reset class=%d wind=%v", w.Class, w.NewWind)
	}
}
