package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats summarizes one statistics window.
type WindowStats struct {
	Time float64 `csv:"time"` // seconds since start at window end

	Live       int `csv:"live"`
	Dissolving int `csv:"dissolving"`

	// Churn during the window
	Created   int `csv:"created"`
	Floor     int `csv:"removed_floor"`
	Exit      int `csv:"removed_exit"`
	Consumed  int `csv:"removed_consumed"`
	Dissolved int `csv:"removed_dissolved"`
	Stalled   int `csv:"removed_stalled"`

	Surfaces int     `csv:"surfaces"`
	FillMean float64 `csv:"fill_mean"`
	FillP90  float64 `csv:"fill_p90"`

	SpeedMean float64 `csv:"speed_mean"` // mean |vx|
	SpeedP90  float64 `csv:"speed_p90"`
}

// Summarize returns the mean and 90th percentile of values. values is
// sorted in place.
func Summarize(values []float64) (mean, p90 float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sort.Float64s(values)
	return stat.Mean(values, nil), stat.Quantile(0.9, stat.Empirical, values, nil)
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("time", s.Time),
		slog.Int("live", s.Live),
		slog.Int("dissolving", s.Dissolving),
		slog.Int("created", s.Created),
		slog.Int("removed_floor", s.Floor),
		slog.Int("removed_exit", s.Exit),
		slog.Int("removed_consumed", s.Consumed),
		slog.Int("removed_dissolved", s.Dissolved),
		slog.Int("removed_stalled", s.Stalled),
		slog.Int("surfaces", s.Surfaces),
		slog.Float64("fill_mean", s.FillMean),
		slog.Float64("fill_p90", s.FillP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
	)
}

// LogStats logs the window as a stats record.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
