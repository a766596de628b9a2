package display

import "image"

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// HeadlessBackend discards frames and counts them.
type HeadlessBackend struct {
	w, h   int
	frames int
	quit   bool
}

// NewHeadless creates a w×h sink; zero sizes fall back to 1280×720.
func NewHeadless(w, h int) *HeadlessBackend {
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	return &HeadlessBackend{w: w, h: h}
}

func (b *HeadlessBackend) Name() string     { return Headless }
func (b *HeadlessBackend) Size() (int, int) { return b.w, b.h }
func (b *HeadlessBackend) Quit() bool       { return b.quit }
func (b *HeadlessBackend) Close() error     { return nil }

// Present counts the frame.
func (b *HeadlessBackend) Present(*image.RGBA) error {
	b.frames++
	return nil
}

// Frames returns the number of frames presented.
func (b *HeadlessBackend) Frames() int { return b.frames }

// RequestQuit makes Quit return true.
func (b *HeadlessBackend) RequestQuit() { b.quit = true }
