// Package config provides configuration loading and access for the overlay.
package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all overlay configuration parameters.
type Config struct {
	Screen  ScreenConfig  `yaml:"screen"`
	Display DisplayConfig `yaml:"display"`

	// User-tunable parameters, polled live through a Store.
	Settings `yaml:",inline"`

	Timing    TimingConfig    `yaml:"timing"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display size settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`  // 0 = backend size
	Height    int `yaml:"height"` // 0 = backend size
	TargetFPS int `yaml:"target_fps"`
}

// DisplayConfig selects the presentation backend.
type DisplayConfig struct {
	Backend string `yaml:"backend"` // auto, raylib, terminal, headless
	Title   string `yaml:"title"`
}

// Settings holds the parameters a user may change while the overlay runs.
type Settings struct {
	Storm    StormConfig    `yaml:"storm"`
	Stars    StarsConfig    `yaml:"stars"`
	Wind     WindConfig     `yaml:"wind"`
	Fallen   FallenConfig   `yaml:"fallen"`
	Blowoff  BlowoffConfig  `yaml:"blowoff"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// StormConfig holds particle population parameters.
type StormConfig struct {
	Show            bool    `yaml:"show"`
	CountMax        int     `yaml:"count_max"`
	ShapeSizeFactor int     `yaml:"shape_size_factor"`
	SpeedFactor     int     `yaml:"speed_factor"` // percent
	Saturation      int     `yaml:"saturation"`   // percent
	SpawnRate       float64 `yaml:"spawn_rate"`   // particles/sec per pixel of width at 100% saturation
	Color1          string  `yaml:"color1"`
	Color2          string  `yaml:"color2"`
}

// StarsConfig holds background decoration parameters.
type StarsConfig struct {
	Show     bool `yaml:"show"`
	MaxCount int  `yaml:"max_count"`
}

// WindConfig holds wind model parameters.
type WindConfig struct {
	Show        bool `yaml:"show"`
	WhirlFactor int  `yaml:"whirl_factor"`
	WhirlTimer  int  `yaml:"whirl_timer"` // seconds of calm between whirls
}

// FallenConfig holds accumulation surface parameters.
type FallenConfig struct {
	KeepOnWindows    bool `yaml:"keep_on_windows"`
	MaxWindowDepth   int  `yaml:"max_window_depth"`
	WindowTopOffset  int  `yaml:"window_top_offset"`
	KeepOnDesktop    bool `yaml:"keep_on_desktop"`
	MaxDesktopDepth  int  `yaml:"max_desktop_depth"`
	DesktopTopOffset int  `yaml:"desktop_top_offset"`
}

// BlowoffConfig holds blow-off parameters.
type BlowoffConfig struct {
	Show   bool `yaml:"show"`
	Factor int  `yaml:"factor"`
}

// AdvancedConfig holds rendering and workspace parameters.
type AdvancedConfig struct {
	CPULoad       int  `yaml:"cpu_load"`     // percent; lower values slow every periodic task
	Transparency  int  `yaml:"transparency"` // percent
	Scale         int  `yaml:"scale"`        // percent
	AllWorkspaces bool `yaml:"all_workspaces"`
}

// TimingConfig holds periodic task intervals in seconds.
type TimingConfig struct {
	Draw          float64 `yaml:"draw"`
	Update        float64 `yaml:"update"`
	FallenLoop    float64 `yaml:"fallen_loop"`
	Blowoff       float64 `yaml:"blowoff"`
	WindLong      float64 `yaml:"wind_long"`
	WindShort     float64 `yaml:"wind_short"`
	Stall         float64 `yaml:"stall"`
	Create        float64 `yaml:"create"`
	Reshape       float64 `yaml:"reshape"`
	Relax         float64 `yaml:"relax"`
	WindowPoll    float64 `yaml:"window_poll"`
	Settings      float64 `yaml:"settings"`
	Reconfigure   float64 `yaml:"reconfigure"`
	Stars         float64 `yaml:"stars"`
	WarmUp        float64 `yaml:"warm_up"`
	Jitter        float64 `yaml:"jitter"` // fractional interval jitter, e.g. 0.05 = ±5%
	SoftLockTries int     `yaml:"soft_lock_tries"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Color1 color.RGBA
	Color2 color.RGBA
}

// Wind classes.
const (
	WindCalm   = 0
	WindSteady = 1
	WindGust   = 2
)

// WindLimit bounds the calm wind random walk and sets the speed of
// wind-driven blow-off.
const WindLimit = 500.0

// windMaxByClass is the maximum horizontal speed per wind class.
var windMaxByClass = [3]float64{100, 300, 600}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	if c.Timing.SoftLockTries < 1 {
		c.Timing.SoftLockTries = 1
	}
	if c.Screen.TargetFPS <= 0 {
		c.Screen.TargetFPS = 25
	}

	var err error
	if c.Derived.Color1, err = ParseColor(c.Storm.Color1); err != nil {
		return fmt.Errorf("storm.color1: %w", err)
	}
	if c.Derived.Color2, err = ParseColor(c.Storm.Color2); err != nil {
		return fmt.Errorf("storm.color2: %w", err)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CPUFactor scales every periodic interval: 100/cpu_load, or 1 when cpu_load is not positive.
func (s Settings) CPUFactor() float64 {
	if s.Advanced.CPULoad <= 0 {
		return 1
	}
	return 100.0 / float64(s.Advanced.CPULoad)
}

// SpeedFactor converts the speed percentage into the integration multiplier.
func (s Settings) SpeedFactor() float64 {
	speed := s.Storm.SpeedFactor
	if speed < 10 {
		speed = 10
	}
	return float64(speed) * 0.01 * 0.7
}

// WindMax returns the maximum wind speed for a wind class.
func WindMax(class int) float64 {
	if class < WindCalm || class > WindGust {
		return windMaxByClass[WindCalm]
	}
	return windMaxByClass[class]
}

// WhirlValue is the whirl magnitude fed to the wind model.
func (s Settings) WhirlValue() float64 {
	return float64(s.Wind.WhirlFactor)
}

// WhirlStart is the calm countdown, never below 3 seconds.
func (s Settings) WhirlStart() float64 {
	return math.Max(float64(s.Wind.WhirlTimer), 3)
}

// Alpha converts the transparency percentage into an opacity in [0,1].
func (s Settings) Alpha() float64 {
	a := 0.01 * float64(100-s.Advanced.Transparency)
	return math.Max(0, math.Min(1, a))
}

// ScaleFactor returns the user scale as a multiplier.
func (s Settings) ScaleFactor() float64 {
	return float64(s.Advanced.Scale) * 0.01
}

var namedColors = map[string]string{
	"white":  "#ffffff",
	"black":  "#000000",
	"cyan":   "#00ffff",
	"red":    "#ff0000",
	"green":  "#00ff00",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"gold":   "#ffd700",
	"brown":  "#a52a2a",
	"gray":   "#808080",
}

// ParseColor accepts "#rrggbb" or a small set of color names.
func ParseColor(s string) (color.RGBA, error) {
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
