// Package telemetry measures the overlay: per-phase frame timing, windowed
// particle and surface statistics, and CSV output of both.
package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one timed section of a frame.
type Phase int

const (
	PhaseWindows Phase = iota
	PhaseWind
	PhaseThrottle
	PhaseParticles
	PhaseSurfaces
	PhaseDraw
	PhasePresent
	numPhases
)

var phaseNames = [numPhases]string{
	"windows", "wind", "throttle", "particles", "surfaces", "draw", "present",
}

// String returns the phase name used in logs and CSV columns.
func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

type perfSample struct {
	tick   time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps a ring of the most recent tick timings. Phases may
// be timed across several ticks' worth of callbacks; each AddPhase is
// attributed to the tick in progress.
type PerfCollector struct {
	samples []perfSample
	next    int
	count   int

	cur       perfSample
	added     time.Duration // AddPhase time since the last EndTick
	tickStart time.Time
	phase     Phase
	phaseAt   time.Time
	inPhase   bool

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{samples: make([]perfSample, window)}
}

// StartTick begins a new tick. Time added with AddPhase since the last
// EndTick stays with it.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and starts ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseAt, p.inPhase = ph, now, true
}

// AddPhase charges d to ph in the current tick. Used for work that runs
// outside the tick's own call chain.
func (p *PerfCollector) AddPhase(ph Phase, d time.Duration) {
	if ph >= 0 && ph < numPhases {
		p.cur.phases[ph] += d
		p.added += d
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.phaseAt)
		p.inPhase = false
	}
}

// EndTick closes the running phase and stores the tick.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.cur.tick = now.Sub(p.tickStart) + p.added

	p.samples[p.next] = p.cur
	p.cur, p.added = perfSample{}, 0
	p.next = (p.next + 1) % len(p.samples)
	p.count = min(p.count+1, len(p.samples))
}

// RecordFrame marks a presented frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats aggregates the ticks in the window.
type PerfStats struct {
	AvgTick time.Duration
	MinTick time.Duration
	MaxTick time.Duration

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64

	TicksPerSecond float64
	FrameDuration  time.Duration
	FPS            float64
}

// Stats summarizes the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{FrameDuration: p.frame}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var sums [numPhases]time.Duration
	for i := 0; i < p.count; i++ {
		smp := p.samples[i]
		total += smp.tick
		if i == 0 || smp.tick < s.MinTick {
			s.MinTick = smp.tick
		}
		s.MaxTick = max(s.MaxTick, smp.tick)
		for ph, d := range smp.phases {
			sums[ph] += d
		}
	}

	n := time.Duration(p.count)
	s.AvgTick = total / n
	for ph := range sums {
		s.PhaseAvg[ph] = sums[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	return s
}

// LogStats logs a perf record, omitting phases under 0.1% of a tick.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"min_tick_us", s.MinTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	Time         float64 `csv:"time"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	WindowsPct   float64 `csv:"windows_pct"`
	WindPct      float64 `csv:"wind_pct"`
	ThrottlePct  float64 `csv:"throttle_pct"`
	ParticlesPct float64 `csv:"particles_pct"`
	SurfacesPct  float64 `csv:"surfaces_pct"`
	DrawPct      float64 `csv:"draw_pct"`
	PresentPct   float64 `csv:"present_pct"`
}

// ToCSV flattens the stats for perf.csv; t is seconds since start.
func (s PerfStats) ToCSV(t float64) PerfStatsCSV {
	return PerfStatsCSV{
		Time:         t,
		AvgTickUS:    s.AvgTick.Microseconds(),
		MinTickUS:    s.MinTick.Microseconds(),
		MaxTickUS:    s.MaxTick.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		WindowsPct:   s.PhasePct[PhaseWindows],
		WindPct:      s.PhasePct[PhaseWind],
		ThrottlePct:  s.PhasePct[PhaseThrottle],
		ParticlesPct: s.PhasePct[PhaseParticles],
		SurfacesPct:  s.PhasePct[PhaseSurfaces],
		DrawPct:      s.PhasePct[PhaseDraw],
		PresentPct:   s.PhasePct[PhasePresent],
	}
}
