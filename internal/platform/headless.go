package platform

import (
	"fmt"
	"sort"
	"sync"
)

// Headless is an in-memory Backend used in tests and in contexts with no
// window system attached. Commands mutate the internal window table and
// emit the matching events, which makes asynchronous protocols (resize
// confirmation, desktop moves) observable without a display server.
type Headless struct {
	mu       sync.Mutex
	display  Display
	desktops int
	current  int
	active   WindowID
	pointerX int
	pointerY int
	pressed  bool
	windows  map[WindowID]*Window

	// minSizes clamps resize requests per window, mimicking a client
	// whose size hints forbid shrinking below its minimum.
	minSizes map[WindowID]Rect

	events chan Event
}

var _ Backend = (*Headless)(nil)

// NewHeadless creates a headless backend with a single display of the
// given work area and the given number of virtual desktops.
func NewHeadless(workArea Rect, desktops int) *Headless {
	if desktops < 1 {
		desktops = 1
	}
	return &Headless{
		display: Display{
			ID:     0,
			Name:   "headless-0",
			Bounds: workArea,
			Usable: workArea,
		},
		desktops: desktops,
		windows:  make(map[WindowID]*Window),
		minSizes: make(map[WindowID]Rect),
		events:   make(chan Event, 256),
	}
}

// AddWindow registers a window and emits WindowCreated.
func (h *Headless) AddWindow(w Window) {
	h.mu.Lock()
	cp := w
	h.windows[w.ID] = &cp
	h.mu.Unlock()
	h.emit(Event{Kind: EventWindowCreated, Window: w.ID, Bounds: w.Bounds, Desktop: w.Desktop, States: w.States})
}

// DestroyWindow removes a window and emits WindowDestroyed.
func (h *Headless) DestroyWindow(id WindowID) {
	h.mu.Lock()
	_, ok := h.windows[id]
	delete(h.windows, id)
	delete(h.minSizes, id)
	h.mu.Unlock()
	if ok {
		h.emit(Event{Kind: EventWindowDestroyed, Window: id})
	}
}

// SetMinSize installs a per-window minimum that clamps resize requests.
func (h *Headless) SetMinSize(id WindowID, minWidth, minHeight int) {
	h.mu.Lock()
	h.minSizes[id] = Rect{Width: minWidth, Height: minHeight}
	h.mu.Unlock()
}

// SetStates replaces a window's state flags and emits StateChanged.
func (h *Headless) SetStates(id WindowID, states StateFlags) {
	h.mu.Lock()
	w, ok := h.windows[id]
	if ok {
		w.States = states
	}
	h.mu.Unlock()
	if ok {
		h.emit(Event{Kind: EventStateChanged, Window: id, States: states})
	}
}

// SetPointer positions the pointer and records the button state.
func (h *Headless) SetPointer(x, y int, pressed bool) {
	h.mu.Lock()
	h.pointerX, h.pointerY, h.pressed = x, y, pressed
	h.mu.Unlock()
}

// BeginGrab emits a GrabBegin event for the window.
func (h *Headless) BeginGrab(id WindowID, op GrabOp) {
	h.emit(Event{Kind: EventGrabBegin, Window: id, Op: op})
}

// EndGrab emits a GrabEnd event for the window.
func (h *Headless) EndGrab(id WindowID, op GrabOp) {
	h.emit(Event{Kind: EventGrabEnd, Window: id, Op: op})
}

func (h *Headless) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		// A stalled consumer drops the oldest pending event rather
		// than blocking command paths.
		select {
		case <-h.events:
		default:
		}
		h.events <- ev
	}
}

func (h *Headless) Displays() ([]Display, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return []Display{h.display}, nil
}

func (h *Headless) ActiveDisplay() (Display, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.display, nil
}

func (h *Headless) CurrentDesktop() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, nil
}

func (h *Headless) DesktopCount() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.desktops, nil
}

func (h *Headless) ListWindows(desktop, displayID int) ([]Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Window, 0, len(h.windows))
	for _, w := range h.windows {
		if w.Desktop != desktop {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *Headless) ActiveWindow() (WindowID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, nil
}

func (h *Headless) WindowGeometry(id WindowID) (Rect, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return Rect{}, fmt.Errorf("window %d not found", id)
	}
	return w.Bounds, nil
}

func (h *Headless) WindowStates(id WindowID) (StateFlags, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return StateFlags{}, fmt.Errorf("window %d not found", id)
	}
	return w.States, nil
}

func (h *Headless) WindowDesktop(id WindowID) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return 0, fmt.Errorf("window %d not found", id)
	}
	return w.Desktop, nil
}

func (h *Headless) Pointer() (int, int, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pointerX, h.pointerY, h.pressed, nil
}

func (h *Headless) MoveResize(id WindowID, bounds Rect, userInitiated bool) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("window %d not found", id)
	}
	if min, has := h.minSizes[id]; has {
		if bounds.Width < min.Width {
			bounds.Width = min.Width
		}
		if bounds.Height < min.Height {
			bounds.Height = min.Height
		}
	}
	w.Bounds = bounds
	h.mu.Unlock()
	h.emit(Event{Kind: EventGeometryChanged, Window: id, Bounds: bounds})
	return nil
}

func (h *Headless) SetWindowDesktop(id WindowID, desktop int) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("window %d not found", id)
	}
	w.Desktop = desktop
	if desktop >= h.desktops {
		h.desktops = desktop + 1
	}
	h.mu.Unlock()
	h.emit(Event{Kind: EventDesktopChanged, Window: id, Desktop: desktop})
	return nil
}

func (h *Headless) SwitchDesktop(desktop int) error {
	h.mu.Lock()
	if desktop >= h.desktops {
		h.desktops = desktop + 1
	}
	h.current = desktop
	h.mu.Unlock()
	return nil
}

func (h *Headless) Unmaximize(id WindowID) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	var states StateFlags
	if ok {
		w.States.Maximized = false
		states = w.States
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("window %d not found", id)
	}
	h.emit(Event{Kind: EventStateChanged, Window: id, States: states})
	return nil
}

func (h *Headless) Unfullscreen(id WindowID) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	var states StateFlags
	if ok {
		w.States.Fullscreen = false
		states = w.States
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("window %d not found", id)
	}
	h.emit(Event{Kind: EventStateChanged, Window: id, States: states})
	return nil
}

func (h *Headless) Activate(id WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[id]; !ok {
		return fmt.Errorf("window %d not found", id)
	}
	h.active = id
	return nil
}

func (h *Headless) Events() <-chan Event {
	return h.events
}
