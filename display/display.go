// Package display presents rendered frames: a transparent raylib overlay
// on a desktop session, a tcell half-block view in a terminal, or nothing.
package display

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Backend names.
const (
	Auto     = "auto"
	Raylib   = "raylib"
	Terminal = "terminal"
	Headless = "headless"
)

// Backend shows frames. Present and Quit must be called from the
// goroutine that opened the backend.
type Backend interface {
	Name() string
	// Size is the pixel size frames should be rendered at.
	Size() (w, h int)
	Present(img *image.RGBA) error
	// Quit reports whether the user asked to close the overlay.
	Quit() bool
	Close() error
}

// Options configures Open.
type Options struct {
	Backend string
	Title   string
	Width   int // 0 = backend size
	Height  int
}

// Select resolves "auto" to a concrete backend name: raylib when an X
// display is set, the terminal when stdout is a TTY, else headless.
func Select(name string, getenv func(string) string, isTTY func() bool) string {
	if name != "" && name != Auto {
		return name
	}
	switch {
	case getenv("DISPLAY") != "":
		return Raylib
	case isTTY():
		return Terminal
	default:
		return Headless
	}
}

func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Open creates the backend named by o.Backend.
func Open(o Options) (Backend, error) {
	name := Select(o.Backend, os.Getenv, stdoutIsTTY)

	var (
		b   Backend
		err error
	)
	switch name {
	case Raylib:
		b, err = NewRaylib(o)
	case Terminal:
		b, err = NewTerminal()
	case Headless:
		b = NewHeadless(o.Width, o.Height)
	default:
		return nil, fmt.Errorf("unknown display backend %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s display: %w", name, err)
	}

	w, h := b.Size()
	slog.Info("display opened", "backend", name, "width", w, "height", h)
	return b, nil
}
