// Package storm runs the overlay: it owns the particle set, wind, the
// accumulation registry and the frame, and drives them from recurring
// tasks on one cooperative loop plus a background accumulation goroutine.
package storm

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/display"
	"github.com/pthm-cable/snowdrift/registry"
	"github.com/pthm-cable/snowdrift/renderer"
	"github.com/pthm-cable/snowdrift/scheduler"
	"github.com/pthm-cable/snowdrift/syncutil"
	"github.com/pthm-cable/snowdrift/systems"
	"github.com/pthm-cable/snowdrift/telemetry"
	"github.com/pthm-cable/snowdrift/windows"
)

// Options configures a Storm.
type Options struct {
	Config   *config.Config
	Store    *config.Store // live settings; nil uses Config.Settings forever
	Windows  windows.Provider
	Display  display.Backend
	Clock    scheduler.Clock
	Seed     int64
	Logger   *slog.Logger
	Output   *telemetry.OutputManager
	LogStats bool
	// MaxSeconds stops the storm after this long; 0 runs until shutdown.
	MaxSeconds float64
}

// Storm is the running overlay.
type Storm struct {
	cfg      *config.Config
	timing   config.TimingConfig
	store    *config.Store
	settings config.Settings
	version  uint64
	colors   [2]color.RGBA

	prov  windows.Provider
	disp  display.Backend
	clock scheduler.Clock
	sched *scheduler.Scheduler
	log   *slog.Logger
	seed  int64

	reg       *registry.Registry
	particles *systems.ParticleSet
	wind      *systems.WindModel
	throttle  *systems.CreationThrottle
	shapes    *renderer.Shapes
	stars     *renderer.Stars
	frame     *renderer.Frame
	rng       *rand.Rand

	width, height int

	// Loop-only window state.
	snap      windows.Snapshot
	workspace int
	polls     int
	reconcile bool // a forced reconcile is still owed

	pollLock    syncutil.Attempts
	blowLock    syncutil.Attempts
	reshapeLock syncutil.Attempts

	active   atomic.Bool
	shutdown atomic.Bool
	cancel   context.CancelFunc
	bg       sync.WaitGroup

	drawTask   scheduler.Handle
	updateTask scheduler.Handle

	start     time.Time
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	logStats  bool
	maxSec    float64
}

// New builds a storm sized to the display.
func New(o Options) (*Storm, error) {
	if o.Config == nil {
		return nil, errors.New("storm: nil config")
	}
	if o.Display == nil {
		return nil, errors.New("storm: nil display")
	}
	if o.Windows == nil {
		o.Windows = windows.NewStatic(windows.Snapshot{})
	}
	if o.Clock == nil {
		o.Clock = scheduler.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Store == nil {
		o.Store = config.NewStore(o.Config.Settings, "")
	}

	settings, version := o.Store.Get()
	s := &Storm{
		cfg:      o.Config,
		timing:   o.Config.Timing,
		store:    o.Store,
		settings: settings,
		version:  version,
		colors:   [2]color.RGBA{o.Config.Derived.Color1, o.Config.Derived.Color2},
		prov:     o.Windows,
		disp:     o.Display,
		clock:    o.Clock,
		log:      o.Logger.With("component", "storm"),
		seed:     o.Seed,
		rng:      rand.New(rand.NewSource(o.Seed)),
		output:   o.Output,
		logStats: o.LogStats,
		maxSec:   o.MaxSeconds,
	}
	s.sched = scheduler.New(o.Clock, rand.New(rand.NewSource(o.Seed+1)), s.timing.Jitter)
	s.perf = telemetry.NewPerfCollector(o.Config.Telemetry.PerfCollectorWindow)
	s.collector = telemetry.NewCollector(o.Config.Telemetry.StatsWindow)

	s.width, s.height = s.displaySize()
	if s.width <= 0 || s.height <= 0 {
		return nil, fmt.Errorf("storm: display size %dx%d", s.width, s.height)
	}

	s.particles = systems.NewParticleSet(s.particleParams(), rand.New(rand.NewSource(o.Seed+2)))
	s.wind = systems.NewWindModel(rand.New(rand.NewSource(o.Seed+3)),
		settings.WhirlValue(), settings.WhirlStart())
	s.throttle = systems.NewCreationThrottle(s.timing.Create)

	s.reg = registry.New(registry.Options{
		Width:     s.width,
		Height:    s.height,
		Settings:  settings,
		Colors:    s.colors,
		Provider:  canvas.Heap{},
		Painter:   renderer.PaintField,
		Emitter:   s.particles,
		Rand:      rand.New(rand.NewSource(o.Seed + 4)),
		Logger:    s.log,
		LockTries: s.timing.SoftLockTries,
	})
	s.particles.SetCollider(s.reg)
	s.particles.SetOccluder(s)

	s.frame = renderer.NewFrame(s.width, s.height, s.warmUpTicks())
	s.rebuildShapes()
	s.rebuildStars()
	return s, nil
}

// displaySize prefers the configured size over the backend's.
func (s *Storm) displaySize() (int, int) {
	if w, h := s.cfg.Screen.Width, s.cfg.Screen.Height; w > 0 && h > 0 {
		return w, h
	}
	return s.disp.Size()
}

func (s *Storm) warmUpTicks() int {
	if s.timing.Draw <= 0 {
		return 0
	}
	return int(s.timing.WarmUp / s.timing.Draw)
}

func (s *Storm) windowScale() float64 {
	return renderer.WindowScale(s.width, s.height)
}

func (s *Storm) particleParams() systems.Params {
	return systems.Params{
		Width:       s.width,
		Height:      s.height,
		CountMax:    s.settings.Storm.CountMax,
		SpeedFactor: s.settings.SpeedFactor(),
		ShowWind:    s.settings.Wind.Show,
		DT:          s.timing.Update * s.settings.CPUFactor(),
	}
}

func (s *Storm) particlesPerSecond() float64 {
	st := s.settings.Storm
	return systems.ParticlesPerSecond(s.width, st.SpawnRate, st.Saturation, s.settings.SpeedFactor())
}

func (s *Storm) rebuildShapes() {
	s.shapes = renderer.NewShapes(s.rng, renderer.ShapeOptions{
		SizeFactor:  s.settings.Storm.ShapeSizeFactor,
		Scale:       s.settings.ScaleFactor(),
		WindowScale: s.windowScale(),
		Colors:      s.colors,
	})
	s.particles.SetShapes(s.shapes.Sizes())
}

func (s *Storm) rebuildStars() {
	s.stars = renderer.NewStars(s.rng, s.settings.Stars.MaxCount, s.width, s.height,
		s.windowScale()*s.settings.ScaleFactor())
}

// Covers hides particles behind windows on the current workspace.
func (s *Storm) Covers(x, y, w, h int) bool {
	return s.snap.Covers(x, y, w, h)
}

// now is seconds since the storm started.
func (s *Storm) now() float64 {
	return s.clock.Now().Sub(s.start).Seconds()
}

// workspaceActive reports whether the overlay should draw on the current
// workspace.
func (s *Storm) workspaceActive() bool {
	return s.settings.Advanced.AllWorkspaces || s.snap.Workspace == s.workspace
}

// simulating reports whether accumulation should be redrawn at all.
func (s *Storm) simulating() bool {
	f := s.settings.Fallen
	return s.workspaceActive() && s.settings.Storm.Show && (f.KeepOnWindows || f.KeepOnDesktop)
}

// Shutdown asks every task and the accumulation goroutine to stop.
func (s *Storm) Shutdown() {
	if s.shutdown.Swap(true) {
		return
	}
	s.log.Info("shutdown requested")
	if s.cancel != nil {
		s.cancel()
	}
}

// Stopping reports whether shutdown was requested.
func (s *Storm) Stopping() bool { return s.shutdown.Load() }

// Particles exposes the particle set.
func (s *Storm) Particles() *systems.ParticleSet { return s.particles }

// Registry exposes the accumulation registry.
func (s *Storm) Registry() *registry.Registry { return s.reg }

// begin takes the first window snapshot and schedules every task.
func (s *Storm) begin() {
	s.start = s.clock.Now()
	if snap, err := s.prov.Snapshot(); err == nil {
		s.snap = snap
		s.workspace = snap.Workspace
		s.reconcile = true
	} else {
		s.log.Warn("initial window snapshot failed", "error", err)
	}
	s.active.Store(s.simulating())
	s.schedule()
	s.log.Info("storm started",
		"width", s.width,
		"height", s.height,
		"count_max", s.settings.Storm.CountMax,
		"particles_per_sec", s.particlesPerSecond(),
	)
}

// Run drives the storm until ctx is cancelled, Shutdown is called, the
// display asks to quit or MaxSeconds elapses.
func (s *Storm) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()
	if s.shutdown.Load() {
		return nil
	}

	s.begin()
	s.bg.Add(1)
	go s.accumulate(ctx)

	err := s.sched.Run(ctx)
	s.shutdown.Store(true)
	s.bg.Wait()
	s.reg.Close()

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s.log.Info("storm stopped", "seconds", s.now(), "created", s.particles.Counters().Created)
	return err
}
