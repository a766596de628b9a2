package storm

import (
	"time"

	"github.com/pthm-cable/snowdrift/renderer"
	"github.com/pthm-cable/snowdrift/scheduler"
	"github.com/pthm-cable/snowdrift/telemetry"
	"github.com/pthm-cable/snowdrift/windows"
)

// forcedReconcileEvery is how many window polls may pass between
// reconciles when nothing structural changed.
const forcedReconcileEvery = 10

func (s *Storm) every(name string, p scheduler.Priority, seconds float64, fn func()) scheduler.Handle {
	return s.sched.Schedule(name, p, scheduler.Seconds(seconds), func() scheduler.Result {
		if s.shutdown.Load() {
			return scheduler.Stop
		}
		fn()
		return scheduler.Continue
	})
}

func (s *Storm) schedule() {
	t := s.timing
	cpu := s.settings.CPUFactor()

	s.drawTask = s.every("draw", scheduler.Default, t.Draw*cpu, s.draw)
	s.updateTask = s.every("update", scheduler.Default, t.Update*cpu, s.update)
	s.every("create", scheduler.Default, t.Create, s.create)
	s.every("stall", scheduler.High, t.Stall, s.stall)
	s.every("wind_short", scheduler.Default, t.WindShort, s.windShort)
	s.every("wind_long", scheduler.Default, t.WindLong, s.windLong)
	s.every("blowoff", scheduler.Default, t.Blowoff, s.blowoff)
	s.every("windows", scheduler.Default, t.WindowPoll, s.pollWindows)
	s.every("settings", scheduler.High, t.Settings, s.reconcileSettings)
	s.every("reconfigure", scheduler.Default, t.Reconfigure, s.reconfigure)
	s.every("stars", scheduler.Default, t.Stars, s.twinkle)
	statsPoll := 1.0
	if w := s.cfg.Telemetry.StatsWindow; w > 0 && w < statsPoll {
		statsPoll = w
	}
	s.every("stats", scheduler.Default, statsPoll, s.flushStats)
	if s.maxSec > 0 {
		s.every("deadline", scheduler.High, 0.1, func() {
			if s.now() >= s.maxSec {
				s.log.Info("max seconds reached", "seconds", s.maxSec)
				s.Shutdown()
			}
		})
	}
}

// draw renders and presents one frame.
func (s *Storm) draw() {
	s.perf.StartTick()
	s.perf.StartPhase(telemetry.PhaseDraw)

	var stars *renderer.Stars
	if s.settings.Stars.Show {
		stars = s.stars
	}
	var particles renderer.ParticleSource
	if s.settings.Storm.Show {
		particles = s.particles
	}
	drawn := s.frame.Render(renderer.Layers{
		Active:    s.workspaceActive(),
		Alpha:     s.settings.Alpha(),
		Stars:     stars,
		Surfaces:  s.reg,
		Particles: particles,
		Shapes:    s.shapes,
	})

	if drawn {
		s.perf.StartPhase(telemetry.PhasePresent)
		if err := s.disp.Present(s.frame.Target().Image()); err != nil {
			s.log.Error("present failed", "error", err)
		}
		s.perf.RecordFrame()
	}
	s.perf.EndTick()

	if s.disp.Quit() {
		s.Shutdown()
	}
}

func (s *Storm) timed(ph telemetry.Phase, fn func()) {
	start := time.Now()
	fn()
	s.perf.AddPhase(ph, time.Since(start))
}

// update advances every particle one step.
func (s *Storm) update() {
	if !s.workspaceActive() {
		return
	}
	s.timed(telemetry.PhaseParticles, func() {
		s.particles.SetWind(s.wind.Class, s.wind.NewWind)
		s.particles.Step()
	})
}

// create adds the particles the elapsed time owes.
func (s *Storm) create() {
	s.timed(telemetry.PhaseThrottle, func() {
		now := s.now()
		if !s.workspaceActive() || !s.settings.Storm.Show || s.particles.Stalling() {
			s.throttle.Skip(now)
			return
		}
		s.particles.Create(s.throttle.Tick(now, s.particlesPerSecond()))
	})
}

// stall ends a stall once every particle is gone.
func (s *Storm) stall() {
	if s.particles.Stalling() && s.particles.Count() == 0 {
		s.particles.SetStalling(false)
		s.log.Debug("stall finished")
	}
}

// startStall fades every particle out over the next steps so they come back
// with new parameters.
func (s *Storm) startStall() {
	s.particles.SetStalling(true)
}

func (s *Storm) publishWind() {
	s.particles.SetWind(s.wind.Class, s.wind.NewWind)
	s.reg.SetWind(s.wind.Class, s.wind.NewWind)
}

func (s *Storm) windShort() {
	if !s.workspaceActive() || !s.settings.Wind.Show {
		return
	}
	s.timed(telemetry.PhaseWind, func() {
		s.wind.ShortTick(s.now())
		s.publishWind()
	})
}

func (s *Storm) windLong() {
	if !s.workspaceActive() || !s.settings.Wind.Show {
		return
	}
	s.timed(telemetry.PhaseWind, func() {
		s.wind.LongTick()
		s.publishWind()
	})
}

func (s *Storm) blowoff() {
	if !s.workspaceActive() {
		return
	}
	s.timed(telemetry.PhaseSurfaces, func() {
		s.reg.Blowoff(&s.blowLock)
	})
}

func (s *Storm) twinkle() {
	if s.workspaceActive() {
		s.stars.Twinkle()
	}
}

// pollWindows refreshes the window snapshot and dispatches the changes.
func (s *Storm) pollWindows() {
	s.timed(telemetry.PhaseWindows, func() {
		snap, err := s.prov.Snapshot()
		if err != nil {
			s.log.Debug("window snapshot failed", "error", err)
			return
		}

		for _, e := range windows.Diff(s.snap, snap) {
			s.dispatch(e)
		}
		s.snap = snap
		s.active.Store(s.simulating())

		s.polls++
		if s.polls%forcedReconcileEvery == 0 {
			s.reconcile = true
		}
		if s.reconcile && s.reg.Reconcile(snap, &s.pollLock) {
			s.reconcile = false
		}
	})
}

func (s *Storm) dispatch(e windows.Event) {
	switch e.Kind {
	case windows.DragStarted:
		if r, ok := s.reg.Bounds(e.Window.ID); ok {
			n := s.particles.Freeze(r)
			s.reg.RemoveWindow(e.Window.ID)
			s.log.Debug("drag started", "window", e.Window.ID, "frozen", n)
		}
	case windows.DragEnded:
		s.particles.Unfreeze()
		s.reconcile = true
	default:
		if e.Structural() {
			s.reconcile = true
		}
	}
}

// flushStats closes a statistics window.
func (s *Storm) flushStats() {
	now := s.now()
	if !s.collector.ShouldFlush(now) {
		return
	}
	rs := s.reg.Stats()
	ws := s.collector.Flush(now, telemetry.Sample{
		Live:       s.particles.Count(),
		Dissolving: s.particles.Dissolving(),
		Counters:   s.particles.Counters(),
		Surfaces:   rs.Surfaces,
		FillRatios: rs.FillRatios,
		Speeds:     s.particles.Speeds(nil),
	})
	perf := s.perf.Stats()

	if s.logStats {
		ws.LogStats()
		perf.LogStats()
	}
	if err := s.output.WriteTelemetry(ws); err != nil {
		s.log.Error("telemetry write failed", "error", err)
	}
	if err := s.output.WritePerf(perf, now); err != nil {
		s.log.Error("perf write failed", "error", err)
	}
}
