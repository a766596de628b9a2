package windows

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// stickyDesktop is the _NET_WM_DESKTOP value for windows on all desktops.
const stickyDesktop = 0xFFFFFFFF

// X11 reads the window list from an EWMH-compliant window manager.
type X11 struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	self             ID // overlay window, never reported
	originX, originY int

	last Snapshot
}

// NewX11 connects to the X server named by $DISPLAY.
func NewX11() (*X11, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to X server: %w", err)
	}
	return &X11{xu: xu, root: xu.RootWin()}, nil
}

// SetOverlay excludes the overlay window from snapshots and reports window
// positions relative to its origin.
func (p *X11) SetOverlay(id ID, x, y int) {
	p.self = id
	p.originX, p.originY = x, y
}

// ScreenSize returns the root window size in pixels.
func (p *X11) ScreenSize() (int, int) {
	s := p.xu.Screen()
	return int(s.WidthInPixels), int(s.HeightInPixels)
}

// Snapshot queries the client list. Windows that vanish between the list
// query and their attribute queries are skipped.
func (p *X11) Snapshot() (Snapshot, error) {
	clients, err := ewmh.ClientListGet(p.xu)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading client list: %w", err)
	}

	snap := Snapshot{Windows: make([]Window, 0, len(clients))}
	if desk, err := ewmh.CurrentDesktopGet(p.xu); err == nil {
		snap.Workspace = int(desk)
	}

	for _, id := range clients {
		if ID(id) == p.self {
			continue
		}
		w, ok := p.describe(id)
		if !ok {
			slog.Debug("window vanished during query", "window", uint32(id))
			continue
		}
		snap.Windows = append(snap.Windows, w)
	}

	snap.Drag = p.dragging(snap)
	p.last = snap
	return snap, nil
}

func (p *X11) describe(id xproto.Window) (Window, bool) {
	conn := p.xu.Conn()
	w := Window{ID: ID(id)}

	if desk, err := ewmh.WmDesktopGet(p.xu, id); err == nil {
		if desk == stickyDesktop {
			w.Sticky = true
			w.Workspace = -1
		} else {
			w.Workspace = int(desk)
		}
	}

	if states, err := ewmh.WmStateGet(p.xu, id); err == nil {
		for _, s := range states {
			if s == "_NET_WM_STATE_HIDDEN" {
				w.Hidden = true
			}
		}
	}
	if types, err := ewmh.WmWindowTypeGet(p.xu, id); err == nil {
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				w.Dock = true
			}
		}
	}

	attrs, err := xproto.GetWindowAttributes(conn, id).Reply()
	if err != nil {
		return Window{}, false
	}
	if attrs.MapState != xproto.MapStateViewable {
		w.Hidden = true
	}

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(id)).Reply()
	if err != nil {
		return Window{}, false
	}
	translate, err := xproto.TranslateCoordinates(conn, id, p.root, 0, 0).Reply()
	if err != nil {
		return Window{}, false
	}

	w.X = int(translate.DstX) - p.originX
	w.Y = int(translate.DstY) - p.originY
	w.Width = int(geom.Width)
	w.Height = int(geom.Height)

	if ext, err := ewmh.FrameExtentsGet(p.xu, id); err == nil {
		w.X -= int(ext.Left)
		w.Y -= int(ext.Top)
		w.Width += int(ext.Left) + int(ext.Right)
		w.Height += int(ext.Top) + int(ext.Bottom)
	}
	return w, true
}

// dragging reports the active window while button 1 is held and the window
// has moved since the previous snapshot, or stays on the current drag.
func (p *X11) dragging(snap Snapshot) ID {
	ptr, err := xproto.QueryPointer(p.xu.Conn(), p.root).Reply()
	if err != nil || ptr.Mask&xproto.KeyButMaskButton1 == 0 {
		return 0
	}

	active, err := ewmh.ActiveWindowGet(p.xu)
	if err != nil {
		return 0
	}
	id := ID(active)
	if id == p.last.Drag {
		return id
	}

	now, ok := snap.Find(id)
	if !ok {
		return 0
	}
	before, ok := p.last.Find(id)
	if !ok || (before.X == now.X && before.Y == now.Y) {
		return 0
	}
	return id
}

// Close disconnects from the X server.
func (p *X11) Close() error {
	p.xu.Conn().Close()
	return nil
}
