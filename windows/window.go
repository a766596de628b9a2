// Package windows describes the desktop's top-level windows and turns
// successive snapshots of them into lifecycle events.
package windows

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnsupported is returned by providers that cannot run on this platform.
var ErrUnsupported = errors.New("windows: provider not supported on this platform")

// ID identifies a window. Zero is reserved for "no window".
type ID uint32

// Window is one visible-window descriptor in overlay coordinates.
type Window struct {
	ID        ID   `yaml:"id"`
	X         int  `yaml:"x"`
	Y         int  `yaml:"y"`
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	Workspace int  `yaml:"workspace"`
	Sticky    bool `yaml:"sticky"`
	Hidden    bool `yaml:"hidden"`
	Dock      bool `yaml:"dock"`
}

// Snapshot is the window list at one instant.
type Snapshot struct {
	Windows   []Window `yaml:"windows"`
	Workspace int      `yaml:"workspace"` // current workspace
	Drag      ID       `yaml:"drag"`      // window being dragged, 0 if none
}

// Find returns the window with the given id.
func (s Snapshot) Find(id ID) (Window, bool) {
	for _, w := range s.Windows {
		if w.ID == id {
			return w, true
		}
	}
	return Window{}, false
}

// OnCurrentWorkspace reports whether w is shown on the current workspace.
func (s Snapshot) OnCurrentWorkspace(w Window) bool {
	return w.Sticky || w.Workspace == s.Workspace
}

// Covers reports whether the rectangle lies entirely inside a visible,
// non-dock window on the current workspace.
func (s Snapshot) Covers(x, y, w, h int) bool {
	for _, win := range s.Windows {
		if win.Hidden || win.Dock || !s.OnCurrentWorkspace(win) {
			continue
		}
		if x >= win.X && y >= win.Y &&
			x+w <= win.X+win.Width && y+h <= win.Y+win.Height {
			return true
		}
	}
	return false
}

// Provider supplies window snapshots on demand.
type Provider interface {
	Snapshot() (Snapshot, error)
	Close() error
}

// Static is a Provider over a fixed, replaceable snapshot. It serves runs
// without a window system and tests.
type Static struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStatic creates a provider that returns snap until replaced with Set.
func NewStatic(snap Snapshot) *Static {
	return &Static{snap: snap}
}

// LoadStatic reads a snapshot from a YAML file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading window list: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing window list: %w", err)
	}
	return NewStatic(snap), nil
}

// Snapshot returns a copy of the current snapshot.
func (s *Static) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Windows = append([]Window(nil), s.snap.Windows...)
	return out, nil
}

// Set replaces the snapshot.
func (s *Static) Set(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Close is a no-op.
func (s *Static) Close() error { return nil }
