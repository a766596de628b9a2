package storm

import (
	"context"
	"time"

	"github.com/pthm-cable/snowdrift/scheduler"
)

// accumulate repaints the surfaces off the main loop until shutdown.
func (s *Storm) accumulate(ctx context.Context) {
	defer s.bg.Done()

	period := scheduler.Seconds(s.timing.FallenLoop)
	if period <= 0 {
		period = 200 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var lastRelax, lastReshape float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.shutdown.Load() {
			return
		}
		s.accumulateOnce(&lastRelax, &lastReshape)
	}
}

// accumulateOnce publishes fresh surface buffers and, when due, relaxes and
// reshapes the height fields.
func (s *Storm) accumulateOnce(lastRelax, lastReshape *float64) {
	s.reg.RedrawAndSwap(s.active.Load())

	now := s.now()
	if s.timing.Relax > 0 && now-*lastRelax >= s.timing.Relax {
		*lastRelax = now
		if n := s.reg.Relax(); n > 0 {
			s.log.Debug("surfaces relaxed", "columns", n)
		}
	}
	if s.timing.Reshape > 0 && now-*lastReshape >= s.timing.Reshape {
		if s.reg.Reshape(&s.reshapeLock) {
			*lastReshape = now
			s.log.Debug("surfaces reshaped")
		}
	}
}
