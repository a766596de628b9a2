package storm

import (
	"image/color"

	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/scheduler"
)

// reconcileSettings picks up a new settings version and applies what
// changed.
func (s *Storm) reconcileSettings() {
	if _, err := s.store.Reload(); err != nil {
		s.log.Warn("settings reload failed", "error", err)
	}
	if s.store.Version() == s.version {
		return
	}
	next, version := s.store.Get()
	prev := s.settings
	s.settings, s.version = next, version
	s.apply(prev, next)
}

func (s *Storm) apply(prev, next config.Settings) {
	stall := false

	if next.Storm.Color1 != prev.Storm.Color1 || next.Storm.Color2 != prev.Storm.Color2 {
		if colors, ok := s.parseColors(next); ok {
			s.colors = colors
			s.reg.SetColors(colors)
		}
	}
	if next.Storm.Color1 != prev.Storm.Color1 || next.Storm.Color2 != prev.Storm.Color2 ||
		next.Storm.ShapeSizeFactor != prev.Storm.ShapeSizeFactor ||
		next.Advanced.Scale != prev.Advanced.Scale {
		s.rebuildShapes()
		stall = true
	}

	if next.Storm.CountMax != prev.Storm.CountMax ||
		next.Storm.SpeedFactor != prev.Storm.SpeedFactor ||
		next.Storm.Saturation != prev.Storm.Saturation ||
		next.Storm.SpawnRate != prev.Storm.SpawnRate ||
		next.Wind.Show != prev.Wind.Show {
		stall = true
	}

	if next.Stars.MaxCount != prev.Stars.MaxCount || next.Advanced.Scale != prev.Advanced.Scale {
		s.rebuildStars()
	}

	if next.Wind.WhirlFactor != prev.Wind.WhirlFactor || next.Wind.WhirlTimer != prev.Wind.WhirlTimer {
		s.wind.Configure(next.WhirlValue(), next.WhirlStart())
	}
	if !next.Wind.Show && prev.Wind.Show {
		s.wind.Reset()
		s.publishWind()
	}

	if next.Advanced.CPULoad != prev.Advanced.CPULoad {
		cpu := next.CPUFactor()
		s.sched.Reschedule(s.drawTask, scheduler.Seconds(s.timing.Draw*cpu))
		s.sched.Reschedule(s.updateTask, scheduler.Seconds(s.timing.Update*cpu))
	}

	s.particles.SetParams(s.particleParams())
	s.particles.SetRemoveFluff(!next.Storm.Show)
	if next.Fallen != prev.Fallen {
		s.reg.Reset(next, s.width, s.height)
		s.reconcile = true
	} else {
		s.reg.SetSettings(next)
	}
	s.active.Store(s.simulating())

	if stall {
		s.startStall()
	}
	s.log.Info("settings applied", "version", s.version, "stall", stall)
}

func (s *Storm) parseColors(next config.Settings) ([2]color.RGBA, bool) {
	c1, err := config.ParseColor(next.Storm.Color1)
	if err != nil {
		s.log.Warn("ignoring color", "error", err)
		return s.colors, false
	}
	c2, err := config.ParseColor(next.Storm.Color2)
	if err != nil {
		s.log.Warn("ignoring color", "error", err)
		return s.colors, false
	}
	return [2]color.RGBA{c1, c2}, true
}

// reconfigure follows display size changes.
func (s *Storm) reconfigure() {
	if s.cfg.Screen.Width > 0 && s.cfg.Screen.Height > 0 {
		return
	}
	w, h := s.disp.Size()
	if w <= 0 || h <= 0 || (w == s.width && h == s.height) {
		return
	}
	s.log.Info("display resized", "from_w", s.width, "from_h", s.height, "width", w, "height", h)

	s.width, s.height = w, h
	s.frame.Resize(w, h)
	s.particles.SetParams(s.particleParams())
	s.reg.Reset(s.settings, w, h)
	s.reconcile = true
	s.rebuildShapes()
	s.rebuildStars()
	s.startStall()
}
