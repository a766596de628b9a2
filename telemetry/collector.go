package telemetry

import "github.com/pthm-cable/snowdrift/systems"

// Sample is the state read at the end of a window.
type Sample struct {
	Live       int
	Dissolving int
	Counters   systems.Counters // cumulative since start
	Surfaces   int
	FillRatios []float64
	Speeds     []float64
}

// Collector turns cumulative counters into per-window statistics.
type Collector struct {
	window float64
	start  float64
	last   systems.Counters
}

// NewCollector creates a collector with windows of the given length in
// seconds.
func NewCollector(window float64) *Collector {
	if window <= 0 {
		window = 10
	}
	return &Collector{window: window}
}

// ShouldFlush reports whether the window ending at now is complete.
func (c *Collector) ShouldFlush(now float64) bool {
	return now-c.start >= c.window
}

// Flush closes the window at now and starts the next one.
func (c *Collector) Flush(now float64, s Sample) WindowStats {
	d := s.Counters
	prev := c.last
	ws := WindowStats{
		Time:       now,
		Live:       s.Live,
		Dissolving: s.Dissolving,
		Created:    d.Created - prev.Created,
		Floor:      d.Floor - prev.Floor,
		Exit:       d.Exit - prev.Exit,
		Consumed:   d.Consumed - prev.Consumed,
		Dissolved:  d.Dissolved - prev.Dissolved,
		Stalled:    d.Stalled - prev.Stalled,
		Surfaces:   s.Surfaces,
	}
	ws.FillMean, ws.FillP90 = Summarize(s.FillRatios)
	ws.SpeedMean, ws.SpeedP90 = Summarize(s.Speeds)

	c.start = now
	c.last = d
	return ws
}
