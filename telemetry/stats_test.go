package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/snowdrift/systems"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantP90  float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{5}, 5, 5},
		{"unsorted", []float64{3, 1, 2}, 2, 3},
		{"twenty", func() []float64 {
			v := make([]float64, 20)
			for i := range v {
				v[i] = float64(20 - i)
			}
			return v
		}(), 10.5, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p90 := Summarize(tt.values)
			if math.Abs(mean-tt.wantMean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if math.Abs(p90-tt.wantP90) > 1 {
				t.Errorf("p90 = %v, want about %v", p90, tt.wantP90)
			}
		})
	}
}

func TestCollectorDeltas(t *testing.T) {
	c := NewCollector(10)
	if c.ShouldFlush(9.9) {
		t.Fatal("flush before window end")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("no flush at window end")
	}

	first := c.Flush(10, Sample{
		Live:     40,
		Counters: systems.Counters{Created: 100, Floor: 50, Consumed: 10},
	})
	if first.Created != 100 || first.Floor != 50 || first.Consumed != 10 {
		t.Errorf("first window = %+v", first)
	}

	second := c.Flush(20, Sample{
		Live:       45,
		Counters:   systems.Counters{Created: 130, Floor: 70, Consumed: 10, Stalled: 3},
		Surfaces:   2,
		FillRatios: []float64{0.2, 0.4},
	})
	if second.Created != 30 || second.Floor != 20 || second.Consumed != 0 || second.Stalled != 3 {
		t.Errorf("second window = %+v", second)
	}
	if math.Abs(second.FillMean-0.3) > 1e-9 {
		t.Errorf("fill mean = %v", second.FillMean)
	}
	if c.ShouldFlush(25) {
		t.Error("window restarted at the wrong time")
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{Time: float64(i * 10), Live: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 10); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,live,") {
		t.Errorf("header = %q", lines[0])
	}

	var nilManager *OutputManager
	if err := nilManager.WriteTelemetry(WindowStats{}); err != nil {
		t.Error("nil manager should ignore writes")
	}
}
