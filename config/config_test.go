package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storm.CountMax != 300 {
		t.Errorf("count_max = %d, want 300", cfg.Storm.CountMax)
	}
	if !cfg.Fallen.KeepOnDesktop || cfg.Fallen.MaxDesktopDepth != 50 {
		t.Errorf("fallen defaults = %+v", cfg.Fallen)
	}
	if cfg.Timing.SoftLockTries != 3 {
		t.Errorf("soft_lock_tries = %d, want 3", cfg.Timing.SoftLockTries)
	}
	if cfg.Derived.Color2.G != 255 || cfg.Derived.Color2.R != 0 {
		t.Errorf("color2 = %+v, want cyan", cfg.Derived.Color2)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("storm:\n  count_max: 50\nwind:\n  show: false\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storm.CountMax != 50 {
		t.Errorf("count_max = %d, want 50", cfg.Storm.CountMax)
	}
	if cfg.Wind.Show {
		t.Error("wind.show should be overridden to false")
	}
	// Untouched keys keep their defaults
	if cfg.Storm.SpeedFactor != 100 {
		t.Errorf("speed_factor = %d, want 100", cfg.Storm.SpeedFactor)
	}
}

func TestLoadBadColor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("storm:\n  color1: \"#zz\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid color")
	}
}

func TestSettingsDerived(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(s Settings) float64
		setup func(s *Settings)
		want  float64
	}{
		{"cpu factor default", Settings.CPUFactor, func(s *Settings) {}, 1},
		{"cpu factor half", Settings.CPUFactor, func(s *Settings) { s.Advanced.CPULoad = 50 }, 2},
		{"cpu factor zero", Settings.CPUFactor, func(s *Settings) { s.Advanced.CPULoad = 0 }, 1},
		{"speed factor", Settings.SpeedFactor, func(s *Settings) {}, 0.7},
		{"speed factor floor", Settings.SpeedFactor, func(s *Settings) { s.Storm.SpeedFactor = 1 }, 0.07},
		{"whirl start floor", Settings.WhirlStart, func(s *Settings) { s.Wind.WhirlTimer = 1 }, 3},
		{"alpha", Settings.Alpha, func(s *Settings) { s.Advanced.Transparency = 25 }, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			s := cfg.Settings
			tt.setup(&s)
			if got := tt.fn(s); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindMax(t *testing.T) {
	if WindMax(WindGust) != 600 || WindMax(WindSteady) != 300 || WindMax(WindCalm) != 100 {
		t.Error("unexpected wind max table")
	}
	if WindMax(7) != 100 {
		t.Error("out of range class should fall back to calm")
	}
}

func TestStoreVersioning(t *testing.T) {
	cfg, _ := Load("")
	st := NewStore(cfg.Settings, "")

	_, v1 := st.Get()
	st.Update(func(s *Settings) { s.Storm.CountMax = 10 })
	s, v2 := st.Get()

	if v2 <= v1 {
		t.Errorf("version did not advance: %d -> %d", v1, v2)
	}
	if s.Storm.CountMax != 10 {
		t.Errorf("count_max = %d, want 10", s.Storm.CountMax)
	}

	changed, err := st.Reload()
	if err != nil || changed {
		t.Errorf("Reload without path = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("storm:\n  count_max: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	st := NewStore(cfg.Settings, path)

	if changed, _ := st.Reload(); changed {
		t.Error("unchanged file should not reload")
	}

	if err := os.WriteFile(path, []byte("storm:\n  count_max: 40\n"), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	changed, err := st.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload = (%v, %v), want (true, nil)", changed, err)
	}
	s, _ := st.Get()
	if s.Storm.CountMax != 40 {
		t.Errorf("count_max = %d, want 40", s.Storm.CountMax)
	}
}
