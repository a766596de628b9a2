package windows

// EventKind is the kind of a window lifecycle event.
type EventKind uint8

const (
	Created EventKind = iota
	Destroyed
	Shown
	Hidden
	Moved
	Resized
	WorkspaceChanged
	DragStarted
	DragEnded
)

var eventNames = [...]string{
	Created:          "created",
	Destroyed:        "destroyed",
	Shown:            "shown",
	Hidden:           "hidden",
	Moved:            "moved",
	Resized:          "resized",
	WorkspaceChanged: "workspace_changed",
	DragStarted:      "drag_started",
	DragEnded:        "drag_ended",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is a change between two snapshots. Window is the new state (the
// old state for Destroyed and DragEnded); Prev is the old state when one
// exists. A WorkspaceChanged event with a zero Window means the current
// workspace changed.
type Event struct {
	Kind   EventKind
	Window Window
	Prev   Window
}

// Structural reports whether the event changes the set or geometry of
// accumulation surfaces, i.e. whether a reconcile should be forced.
func (e Event) Structural() bool {
	return e.Kind <= WorkspaceChanged
}

// Diff returns the events that turn prev into next. Order: workspace change,
// per-window changes in next's order, destroyed windows in prev's order,
// then drag transitions.
func Diff(prev, next Snapshot) []Event {
	var out []Event
	if prev.Workspace != next.Workspace {
		out = append(out, Event{Kind: WorkspaceChanged})
	}

	before := make(map[ID]Window, len(prev.Windows))
	for _, w := range prev.Windows {
		before[w.ID] = w
	}

	seen := make(map[ID]bool, len(next.Windows))
	for _, w := range next.Windows {
		seen[w.ID] = true
		p, ok := before[w.ID]
		if !ok {
			out = append(out, Event{Kind: Created, Window: w})
			continue
		}
		if p.Hidden != w.Hidden {
			kind := Shown
			if w.Hidden {
				kind = Hidden
			}
			out = append(out, Event{Kind: kind, Window: w, Prev: p})
		}
		if p.X != w.X || p.Y != w.Y {
			out = append(out, Event{Kind: Moved, Window: w, Prev: p})
		}
		if p.Width != w.Width || p.Height != w.Height {
			out = append(out, Event{Kind: Resized, Window: w, Prev: p})
		}
		if p.Workspace != w.Workspace || p.Sticky != w.Sticky {
			out = append(out, Event{Kind: WorkspaceChanged, Window: w, Prev: p})
		}
	}

	for _, w := range prev.Windows {
		if !seen[w.ID] {
			out = append(out, Event{Kind: Destroyed, Window: w, Prev: w})
		}
	}

	if prev.Drag != next.Drag {
		if prev.Drag != 0 {
			w, _ := prev.Find(prev.Drag)
			if w.ID == 0 {
				w.ID = prev.Drag
			}
			out = append(out, Event{Kind: DragEnded, Window: w})
		}
		if next.Drag != 0 {
			w, _ := next.Find(next.Drag)
			if w.ID == 0 {
				w.ID = next.Drag
			}
			out = append(out, Event{Kind: DragStarted, Window: w})
		}
	}
	return out
}
