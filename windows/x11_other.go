//go:build !linux

package windows

// X11 is unavailable on this platform.
type X11 struct{}

// NewX11 always fails on this platform.
func NewX11() (*X11, error) { return nil, ErrUnsupported }

// SetOverlay is a no-op.
func (p *X11) SetOverlay(id ID, x, y int) {}

// ScreenSize returns zero.
func (p *X11) ScreenSize() (int, int) { return 0, 0 }

// Snapshot always fails on this platform.
func (p *X11) Snapshot() (Snapshot, error) { return Snapshot{}, ErrUnsupported }

// Close is a no-op.
func (p *X11) Close() error { return nil }
