package systems

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/snowdrift/components"
	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/registry"
)

func testParams() Params {
	return Params{
		Width:       800,
		Height:      600,
		CountMax:    300,
		SpeedFactor: 0.7,
		DT:          0.02,
	}
}

type fixedCollider struct {
	hit   registry.Hit
	calls int
	emit  func()
}

func (c *fixedCollider) HitTest(x, y, w int) registry.Hit {
	c.calls++
	if c.emit != nil {
		c.emit()
	}
	return c.hit
}

type coverAll struct{}

func (coverAll) Covers(x, y, w, h int) bool { return true }

func drawn(s *ParticleSet) [][2]int {
	var out [][2]int
	s.Draw(func(x, y, shape int, fade float64) {
		out = append(out, [2]int{x, y})
	})
	return out
}

// TestNonCyclicExit checks that a non-cyclic particle leaving the right
// edge is removed on its next step.
func TestNonCyclicExit(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	s.Emit(components.Spawn{X: 799, Y: 100, VX: 100})
	if s.Count() != 1 {
		t.Fatalf("count = %d after emit", s.Count())
	}

	s.Step()
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
	if got := s.Counters().Exit; got != 1 {
		t.Errorf("exit removals = %d, want 1", got)
	}
	if len(drawn(s)) != 0 {
		t.Error("removed particle still drawn")
	}
}

func TestCyclicWraps(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	s.Emit(components.Spawn{X: 799.5, Y: 100, VX: 100, Cyclic: true})
	s.Step()

	pts := drawn(s)
	if len(pts) != 1 {
		t.Fatalf("drawn %d particles, want 1", len(pts))
	}
	if pts[0][0] != 1 {
		t.Errorf("wrapped x = %d, want 1", pts[0][0])
	}
}

func TestFallsPastBottom(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	s.Emit(components.Spawn{X: 400, Y: 599.9, VY: 100, Cyclic: true})
	s.Step()
	if s.Count() != 0 || s.Counters().Floor != 1 {
		t.Errorf("count=%d floor=%d", s.Count(), s.Counters().Floor)
	}
}

func TestCollision(t *testing.T) {
	t.Run("consumed", func(t *testing.T) {
		s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
		s.SetCollider(&fixedCollider{hit: registry.HitConsumed})
		s.Emit(components.Spawn{X: 400, Y: 100, Cyclic: true})
		s.Step()
		if s.Count() != 0 || s.Counters().Consumed != 1 {
			t.Errorf("count=%d consumed=%d", s.Count(), s.Counters().Consumed)
		}
	})

	t.Run("dissolve", func(t *testing.T) {
		s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
		c := &fixedCollider{hit: registry.HitDissolve}
		s.SetCollider(c)
		s.Emit(components.Spawn{X: 400, Y: 100, Cyclic: true})
		s.Step()
		if s.Count() != 1 || s.Dissolving() != 1 {
			t.Fatalf("count=%d dissolving=%d", s.Count(), s.Dissolving())
		}
		for i := 0; i < 60; i++ {
			s.Step()
		}
		if s.Count() != 0 || s.Dissolving() != 0 {
			t.Errorf("count=%d dissolving=%d after dissolve time", s.Count(), s.Dissolving())
		}
		if s.Counters().Dissolved != 1 {
			t.Errorf("dissolved = %d", s.Counters().Dissolved)
		}
		if c.calls != 1 {
			t.Errorf("dissolving particle collided %d times", c.calls)
		}
	})
}

func TestEmitDuringStepIsQueued(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	c := &fixedCollider{hit: registry.HitNone}
	c.emit = func() {
		if c.calls == 1 {
			s.Emit(components.Spawn{X: 10, Y: 10, Cyclic: true})
		}
	}
	s.SetCollider(c)
	s.Emit(components.Spawn{X: 400, Y: 100, Cyclic: true})

	s.Step()
	if s.Count() != 2 {
		t.Errorf("count = %d, want queued spawn added after the sweep", s.Count())
	}
	if c.calls != 1 {
		t.Errorf("queued spawn stepped in the same tick: %d collisions", c.calls)
	}
}

func TestOccludedNotDrawn(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	s.SetOccluder(coverAll{})
	s.Emit(components.Spawn{X: 400, Y: 100, Cyclic: true})
	s.Step()
	if s.Count() != 1 {
		t.Fatalf("occluded particle removed")
	}
	if len(drawn(s)) != 0 {
		t.Error("occluded particle drawn")
	}
}

func TestStallRemovesAll(t *testing.T) {
	tests := []struct {
		name   string
		frozen bool
	}{
		{"falling", false},
		{"frozen", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.Height = 100000
			s := NewParticleSet(p, rand.New(rand.NewSource(1)))
			for i := range 10 {
				s.Emit(components.Spawn{X: float64(10 + 50*i), Y: 10, Cyclic: true})
			}
			if tt.frozen {
				s.Freeze(image.Rect(0, 0, 800, 600))
			}
			s.SetStalling(true)

			s.Step()
			if s.Count() != 10 || s.Dissolving() != 10 {
				t.Fatalf("after one step count=%d dissolving=%d, want 10 fading", s.Count(), s.Dissolving())
			}

			// Still fading just before the dissolve time runs out.
			for elapsed := p.DT; elapsed < cullDissolveTime-p.DT; elapsed += p.DT {
				s.Step()
			}
			if s.Count() != 10 {
				t.Fatalf("count = %d before the fade ended", s.Count())
			}

			for range 5 {
				s.Step()
			}
			c := s.Counters()
			if s.Count() != 0 || c.Stalled != 10 || c.Dissolved != 0 {
				t.Errorf("count=%d stalled=%d dissolved=%d", s.Count(), c.Stalled, c.Dissolved)
			}
			if s.Dissolving() != 0 {
				t.Errorf("dissolving = %d after the set emptied", s.Dissolving())
			}
		})
	}
}

func TestRemoveFluffDropsFrozen(t *testing.T) {
	s := NewParticleSet(testParams(), rand.New(rand.NewSource(1)))
	s.Emit(components.Spawn{X: 10, Y: 10, Cyclic: true})
	s.Emit(components.Spawn{X: 500, Y: 10, Cyclic: true})

	if n := s.Freeze(image.Rect(0, 0, 100, 100)); n != 1 {
		t.Fatalf("froze %d, want 1", n)
	}
	if got := len(drawn(s)); got != 1 {
		t.Errorf("drawn %d, frozen particle should be skipped", got)
	}

	s.SetRemoveFluff(true)
	s.Step()
	if s.Count() != 1 {
		t.Errorf("count = %d, want only the free particle", s.Count())
	}
}

func TestWindClampsSpeed(t *testing.T) {
	p := testParams()
	p.ShowWind = true
	s := NewParticleSet(p, rand.New(rand.NewSource(1)))
	s.SetWind(config.WindCalm, 100)
	s.Emit(components.Spawn{X: 400, Y: 100, VX: 5000, Cyclic: true})
	s.Step()

	speeds := s.Speeds(nil)
	if len(speeds) != 1 {
		t.Fatalf("speeds = %v", speeds)
	}
	if bound := config.WindMax(config.WindCalm) * 2; speeds[0] > bound {
		t.Errorf("|vx| = %v, want at most %v", speeds[0], bound)
	}
}

// simulate runs the throttle and physics for the given number of steps and
// returns the largest population seen.
func simulate(s *ParticleSet, th *CreationThrottle, pps float64, steps int) int {
	peak := 0
	dt := s.Params().DT
	for i := 0; i < steps; i++ {
		now := float64(i) * dt
		if i%5 == 0 {
			s.Create(th.Tick(now, pps))
		}
		s.Step()
		peak = max(peak, s.Count())
	}
	return peak
}

// TestPopulationConverges runs 60 simulated seconds on an 800px display
// with a cap of 300 and checks the population settles near the cap.
func TestPopulationConverges(t *testing.T) {
	p := testParams()
	p.Height = 100000 // nothing reaches the bottom within the run
	s := NewParticleSet(p, rand.New(rand.NewSource(42)))
	th := NewCreationThrottle(0.1)
	pps := ParticlesPerSecond(p.Width, 0.045, 100, p.SpeedFactor)

	simulate(s, th, pps, 3000)

	if n := s.Count(); math.Abs(float64(n)-300) > 30 {
		t.Errorf("population after 60s = %d, want 300 ± 10%%", n)
	}
}

func TestPopulationBounded(t *testing.T) {
	p := testParams()
	p.Height = 1000000
	s := NewParticleSet(p, rand.New(rand.NewSource(7)))
	th := NewCreationThrottle(0.1)
	pps := ParticlesPerSecond(p.Width, 0.045, 200, p.SpeedFactor)

	peak := simulate(s, th, pps, 10000)
	if limit := p.CountMax * 3 / 2; peak > limit {
		t.Errorf("peak population %d exceeds %d", peak, limit)
	}
}
