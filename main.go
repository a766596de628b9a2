package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/display"
	"github.com/pthm-cable/snowdrift/storm"
	"github.com/pthm-cable/snowdrift/telemetry"
	"github.com/pthm-cable/snowdrift/windows"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults); re-read while running")
	backend := flag.String("backend", "", "Display backend: auto, raylib, terminal, headless (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	logFile := flag.String("log-file", "", "Write logs to this file instead of stderr")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxSeconds := flag.Float64("max-seconds", 0, "Stop after N seconds (0 = unlimited)")
	windowsPath := flag.String("windows", "", "YAML window snapshot to use instead of the window system")
	noX11 := flag.Bool("no-x11", false, "Do not track X11 windows")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON for structured logging)
	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	if err := run(cfg, runOptions{
		configPath:  *configPath,
		backend:     *backend,
		seed:        rngSeed,
		logStats:    *logStats,
		outputDir:   *outputDir,
		maxSeconds:  *maxSeconds,
		windowsPath: *windowsPath,
		noX11:       *noX11,
	}); err != nil {
		slog.Error("snowdrift failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath  string
	backend     string
	seed        int64
	logStats    bool
	outputDir   string
	maxSeconds  float64
	windowsPath string
	noX11       bool
}

func run(cfg *config.Config, o runOptions) error {
	prov, x11 := openWindows(o)
	defer prov.Close()

	name := cfg.Display.Backend
	if o.backend != "" {
		name = o.backend
	}
	disp, err := display.Open(display.Options{
		Backend: name,
		Title:   cfg.Display.Title,
		Width:   cfg.Screen.Width,
		Height:  cfg.Screen.Height,
	})
	if err != nil {
		return err
	}
	defer disp.Close()

	if rb, ok := disp.(*display.RaylibBackend); ok && x11 != nil {
		x, y := rb.Origin()
		x11.SetOverlay(windows.ID(rb.NativeID()), x, y)
	}

	out, err := telemetry.NewOutputManager(o.outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	s, err := storm.New(storm.Options{
		Config:     cfg,
		Store:      config.NewStore(cfg.Settings, o.configPath),
		Windows:    prov,
		Display:    disp,
		Seed:       o.seed,
		Logger:     slog.Default(),
		Output:     out,
		LogStats:   o.logStats,
		MaxSeconds: o.maxSeconds,
	})
	if err != nil {
		return err
	}

	slog.Info("starting snowdrift",
		"seed", o.seed,
		"backend", disp.Name(),
		"output_dir", out.Dir(),
		"max_seconds", o.maxSeconds,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// openWindows picks the window source: a snapshot file, the X server, or
// an empty desktop. The X11 provider is returned separately so the overlay
// window can be registered with it.
func openWindows(o runOptions) (windows.Provider, *windows.X11) {
	if o.windowsPath != "" {
		st, err := windows.LoadStatic(o.windowsPath)
		if err == nil {
			return st, nil
		}
		slog.Warn("window snapshot not loaded", "path", o.windowsPath, "error", err)
	}
	if !o.noX11 && o.windowsPath == "" && os.Getenv("DISPLAY") != "" {
		x, err := windows.NewX11()
		if err == nil {
			return x, x
		}
		slog.Warn("window tracking disabled", "error", err)
	}
	return windows.NewStatic(windows.Snapshot{}), nil
}
