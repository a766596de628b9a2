package display

import (
	"errors"
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// RaylibBackend is a borderless, transparent, always-on-top window that
// lets mouse input through to the desktop underneath.
type RaylibBackend struct {
	w, h   int
	tex    rl.Texture2D
	pixels []color.RGBA
}

// NewRaylib opens the overlay window, sized to the monitor unless o sets a
// size.
func NewRaylib(o Options) (*RaylibBackend, error) {
	rl.SetConfigFlags(rl.FlagWindowTransparent | rl.FlagWindowUndecorated |
		rl.FlagWindowTopmost | rl.FlagWindowMousePassthrough)
	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(o.Width), int32(o.Height), o.Title)
	if !rl.IsWindowReady() {
		return nil, errors.New("raylib window not ready")
	}

	w, h := o.Width, o.Height
	if w <= 0 || h <= 0 {
		m := rl.GetCurrentMonitor()
		w, h = rl.GetMonitorWidth(m), rl.GetMonitorHeight(m)
		rl.SetWindowSize(w, h)
		rl.SetWindowPosition(0, 0)
	}

	b := &RaylibBackend{w: w, h: h}
	b.allocate(w, h)
	return b, nil
}

func (b *RaylibBackend) allocate(w, h int) {
	img := rl.GenImageColor(w, h, rl.Blank)
	b.tex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	b.pixels = make([]color.RGBA, w*h)
	b.w, b.h = w, h
}

func (b *RaylibBackend) Name() string     { return Raylib }
func (b *RaylibBackend) Size() (int, int) { return b.w, b.h }
func (b *RaylibBackend) Quit() bool       { return rl.WindowShouldClose() }

// Origin returns the window position on the desktop.
func (b *RaylibBackend) Origin() (int, int) {
	p := rl.GetWindowPosition()
	return int(p.X), int(p.Y)
}

// NativeID returns the platform window id (the X11 window on Linux).
func (b *RaylibBackend) NativeID() uint32 {
	return uint32(uintptr(rl.GetWindowHandle()))
}

// Present uploads img to the window texture and draws it. img holds
// premultiplied alpha, so it is drawn with the premultiplied blend mode.
func (b *RaylibBackend) Present(img *image.RGBA) error {
	iw, ih := img.Rect.Dx(), img.Rect.Dy()
	if iw != b.w || ih != b.h {
		rl.UnloadTexture(b.tex)
		b.allocate(iw, ih)
	}

	for y := 0; y < ih; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+iw*4]
		dst := b.pixels[y*iw : (y+1)*iw]
		for x := range dst {
			p := row[x*4 : x*4+4]
			dst[x] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}
	rl.UpdateTexture(b.tex, b.pixels)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Blank)
	rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	rl.DrawTexture(b.tex, 0, 0, rl.White)
	rl.EndBlendMode()
	rl.EndDrawing()
	return nil
}

// Close releases the texture and the window.
func (b *RaylibBackend) Close() error {
	rl.UnloadTexture(b.tex)
	rl.CloseWindow()
	return nil
}
