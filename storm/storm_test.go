package storm

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/display"
	"github.com/pthm-cable/snowdrift/scheduler"
	"github.com/pthm-cable/snowdrift/telemetry"
	"github.com/pthm-cable/snowdrift/windows"
)

var oneWindow = windows.Snapshot{
	Windows: []windows.Window{
		{ID: 11, X: 100, Y: 200, Width: 300, Height: 200},
	},
}

type harness struct {
	s     *Storm
	clock *scheduler.ManualClock
	prov  *windows.Static
	disp  *display.HeadlessBackend
	store *config.Store

	lastRelax, lastReshape float64
	sinceAccum             float64
}

func newHarness(t *testing.T, snap windows.Snapshot, mutate func(*Options)) *harness {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	h := &harness{
		clock: scheduler.NewManualClock(),
		prov:  windows.NewStatic(snap),
		disp:  display.NewHeadless(800, 600),
		store: config.NewStore(cfg.Settings, ""),
	}
	o := Options{
		Config:  cfg,
		Store:   h.store,
		Windows: h.prov,
		Display: h.disp,
		Clock:   h.clock,
		Seed:    42,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&o)
	}
	s, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.s = s
	s.begin()
	return h
}

// advance runs the loop and the accumulation pass for the given simulated
// seconds in 10ms steps.
func (h *harness) advance(seconds float64) {
	const step = 0.01
	for t := 0.0; t < seconds; t += step {
		h.clock.Advance(scheduler.Seconds(step))
		h.s.sched.RunDue()
		h.sinceAccum += step
		if h.sinceAccum >= h.s.timing.FallenLoop {
			h.sinceAccum = 0
			h.s.accumulateOnce(&h.lastRelax, &h.lastReshape)
		}
	}
}

func TestNewRejectsMissingPieces(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{Display: display.NewHeadless(10, 10)}); err == nil {
		t.Error("nil config accepted")
	}
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Error("nil display accepted")
	}
}

func TestHeadlessRun(t *testing.T) {
	h := newHarness(t, oneWindow, nil)
	h.advance(5)

	if got := h.s.Particles().Counters().Created; got == 0 {
		t.Error("no particles created")
	}
	if h.disp.Frames() == 0 {
		t.Error("no frames presented")
	}
	if _, ok := h.s.Registry().Lookup(11); !ok {
		t.Error("window surface not tracked")
	}
	if _, ok := h.s.Registry().Lookup(0); !ok {
		t.Error("floor surface missing")
	}
}

func TestWarmUpHoldsFrames(t *testing.T) {
	h := newHarness(t, windows.Snapshot{}, nil)
	h.advance(1.0)
	if n := h.disp.Frames(); n != 0 {
		t.Errorf("presented %d frames during warm-up", n)
	}
	h.advance(1.5)
	if h.disp.Frames() == 0 {
		t.Error("no frames after warm-up")
	}
}

func TestSettingsChangeApplies(t *testing.T) {
	h := newHarness(t, oneWindow, nil)
	h.advance(1)

	h.store.Update(func(s *config.Settings) { s.Storm.CountMax = 10 })
	h.advance(0.5)

	if got := h.s.Particles().Params().CountMax; got != 10 {
		t.Errorf("CountMax = %d, want 10", got)
	}
	if h.s.version != h.store.Version() {
		t.Errorf("version %d not picked up (store %d)", h.s.version, h.store.Version())
	}
}

func TestFallenChangeRebuildsSurfaces(t *testing.T) {
	h := newHarness(t, oneWindow, nil)
	h.advance(0.5)

	h.store.Update(func(s *config.Settings) { s.Fallen.MaxWindowDepth = 12 })
	h.advance(0.5)

	surf, ok := h.s.Registry().Lookup(11)
	if !ok {
		t.Fatal("window surface not re-added")
	}
	if surf.H != 12 {
		t.Errorf("depth = %d, want 12", surf.H)
	}
}

func TestDragRemovesAndRestores(t *testing.T) {
	h := newHarness(t, oneWindow, nil)
	h.advance(0.5)
	if _, ok := h.s.Registry().Lookup(11); !ok {
		t.Fatal("window surface not tracked")
	}

	moved := windows.Snapshot{
		Windows: []windows.Window{{ID: 11, X: 150, Y: 200, Width: 300, Height: 200}},
		Drag:    11,
	}
	h.prov.Set(moved)
	h.advance(0.1)
	if _, ok := h.s.Registry().Lookup(11); ok {
		t.Fatal("surface kept while dragging")
	}

	moved.Drag = 0
	h.prov.Set(moved)
	h.advance(0.1)
	surf, ok := h.s.Registry().Lookup(11)
	if !ok {
		t.Fatal("surface not restored after drag")
	}
	if surf.X != 154 {
		t.Errorf("surface x = %d, want 154", surf.X)
	}
}

func TestOtherWorkspacePausesSimulation(t *testing.T) {
	tests := []struct {
		name          string
		allWorkspaces bool
		wantPaused    bool
	}{
		{"own workspace only", false, true},
		{"all workspaces", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, oneWindow, nil)
			h.store.Update(func(s *config.Settings) { s.Advanced.AllWorkspaces = tt.allWorkspaces })
			h.advance(3)
			if h.s.Particles().Counters().Created == 0 {
				t.Fatal("no particles created on the home workspace")
			}

			away := oneWindow
			away.Workspace = 1
			h.prov.Set(away)
			h.advance(0.1)

			created := h.s.Particles().Counters().Created
			before := positions(h.s)
			h.advance(2)

			paused := h.s.Particles().Counters().Created == created &&
				reflect.DeepEqual(before, positions(h.s))
			if paused != tt.wantPaused {
				t.Errorf("paused = %v, want %v (created %d -> %d)",
					paused, tt.wantPaused, created, h.s.Particles().Counters().Created)
			}

			h.prov.Set(oneWindow)
			h.advance(2)
			if got := h.s.Particles().Counters().Created; got == created {
				t.Error("creation did not resume on the home workspace")
			}
		})
	}
}

func positions(s *Storm) [][2]int {
	var out [][2]int
	s.Particles().Draw(func(x, y, _ int, _ float64) {
		out = append(out, [2]int{x, y})
	})
	return out
}

func TestShutdownStopsTasks(t *testing.T) {
	h := newHarness(t, oneWindow, nil)
	h.advance(0.5)

	h.s.Shutdown()
	h.advance(20)
	if n := h.s.sched.Len(); n != 0 {
		t.Errorf("%d tasks still scheduled", n)
	}
	if !h.s.Stopping() {
		t.Error("Stopping() = false after Shutdown")
	}
}

func TestDisplayQuitShutsDown(t *testing.T) {
	h := newHarness(t, windows.Snapshot{}, nil)
	h.disp.RequestQuit()
	h.advance(0.2)
	if !h.s.Stopping() {
		t.Error("display quit ignored")
	}
}

func TestMaxSeconds(t *testing.T) {
	h := newHarness(t, windows.Snapshot{}, func(o *Options) { o.MaxSeconds = 1 })
	h.advance(0.5)
	if h.s.Stopping() {
		t.Fatal("stopped early")
	}
	h.advance(1)
	if !h.s.Stopping() {
		t.Error("still running past MaxSeconds")
	}
}

func TestStatsWritten(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	h := newHarness(t, oneWindow, func(o *Options) { o.Output = out })
	h.advance(12)

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("telemetry.csv has %d lines, want header and a row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,live,") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(Options{
		Config:  cfg,
		Display: display.NewHeadless(320, 240),
		Seed:    1,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != context.DeadlineExceeded {
			t.Errorf("Run = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
