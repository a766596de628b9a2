package display

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// TerminalBackend draws frames with one '▀' per cell: the foreground
// colors the upper pixel and the background the lower one.
type TerminalBackend struct {
	screen tcell.Screen
	quit   atomic.Bool
}

// NewTerminal takes over the terminal until Close.
func NewTerminal() (*TerminalBackend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.Clear()

	b := &TerminalBackend{screen: screen}
	go b.poll()
	return b, nil
}

func (b *TerminalBackend) poll() {
	for {
		switch ev := b.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				b.quit.Store(true)
			}
		case *tcell.EventResize:
			b.screen.Sync()
		}
	}
}

func (b *TerminalBackend) Name() string { return Terminal }
func (b *TerminalBackend) Quit() bool   { return b.quit.Load() }

// Size is the cell grid with two pixel rows per cell.
func (b *TerminalBackend) Size() (int, int) {
	cols, rows := b.screen.Size()
	return cols, rows * 2
}

// Present downsamples img onto the cell grid.
func (b *TerminalBackend) Present(img *image.RGBA) error {
	cols, rows := b.screen.Size()
	iw, ih := img.Rect.Dx(), img.Rect.Dy()
	if cols == 0 || rows == 0 || iw == 0 || ih == 0 {
		return nil
	}

	for cy := 0; cy < rows; cy++ {
		top := (2 * cy) * ih / (2 * rows)
		bottom := (2*cy + 1) * ih / (2 * rows)
		for cx := 0; cx < cols; cx++ {
			x := cx * iw / cols
			st := tcell.StyleDefault.
				Foreground(cellColor(img, x, top)).
				Background(cellColor(img, x, bottom))
			b.screen.SetContent(cx, cy, '▀', nil, st)
		}
	}
	b.screen.Show()
	return nil
}

func cellColor(img *image.RGBA, x, y int) tcell.Color {
	c := img.RGBAAt(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	if c.A == 0 {
		return tcell.ColorReset
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Close restores the terminal.
func (b *TerminalBackend) Close() error {
	b.screen.Fini()
	return nil
}
