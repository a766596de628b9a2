package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/snowdrift/config"
)

// OutputManager writes run output: the effective config and the two CSV
// streams.
type OutputManager struct {
	dir       string
	telemetry *csvStream
	perf      *csvStream
}

type csvStream struct {
	f       *os.File
	written bool
}

func openStream(dir, name string) (*csvStream, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvStream{f: f}, nil
}

// write appends records, with a header on the first call.
func (s *csvStream) write(records any) error {
	if !s.written {
		s.written = true
		return gocsv.Marshal(records, s.f)
	}
	return gocsv.MarshalWithoutHeaders(records, s.f)
}

// NewOutputManager creates dir and opens telemetry.csv and perf.csv in it.
// It returns nil for an empty dir; a nil manager ignores every call.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	tel, err := openStream(dir, "telemetry.csv")
	if err != nil {
		return nil, err
	}
	perf, err := openStream(dir, "perf.csv")
	if err != nil {
		tel.f.Close()
		return nil, err
	}
	return &OutputManager{dir: dir, telemetry: tel, perf: perf}, nil
}

// WriteConfig saves cfg as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a row to telemetry.csv.
func (om *OutputManager) WriteTelemetry(s WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{s}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf appends a row to perf.csv.
func (om *OutputManager) WritePerf(s PerfStats, t float64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{s.ToCSV(t)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory, or "" for a nil manager.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes both CSV files and returns the first error.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	err := om.telemetry.f.Close()
	if perr := om.perf.f.Close(); err == nil {
		err = perr
	}
	return err
}
