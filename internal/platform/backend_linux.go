//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/rivenirvana/MosaicWM-sub002/internal/x11"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn    *x11.Connection
	watcher *x11.Watcher
	events  chan Event
	done    chan struct{}
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11
// connection. Call Start to begin event delivery.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:    conn,
		watcher: x11.NewWatcher(conn),
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh
// X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Start registers event listeners and runs the X event loop in a goroutine,
// translating watcher notifications onto the Events channel.
func (b *LinuxBackend) Start() error {
	if err := b.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start event watcher: %w", err)
	}

	go b.conn.EventLoop()
	go b.translateEvents()
	return nil
}

// Disconnect stops event delivery and closes the X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b == nil || b.conn == nil {
		return
	}
	close(b.done)
	b.conn.StopEventLoop()
	b.conn.Close()
}

func (b *LinuxBackend) translateEvents() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.watcher.Events():
			out, ok := b.translate(ev)
			if !ok {
				continue
			}
			select {
			case b.events <- out:
			case <-b.done:
				return
			}
		}
	}
}

func (b *LinuxBackend) translate(ev x11.Event) (Event, bool) {
	id := WindowID(ev.Window)
	switch ev.Type {
	case x11.EventWindowCreated:
		return Event{
			Kind:    EventWindowCreated,
			Window:  id,
			Bounds:  Rect{X: ev.X, Y: ev.Y, Width: ev.Width, Height: ev.Height},
			Desktop: ev.Desktop,
			States:  stateFlagsFromAtoms(ev.States),
		}, true
	case x11.EventWindowDestroyed:
		return Event{Kind: EventWindowDestroyed, Window: id}, true
	case x11.EventWindowConfigured:
		return Event{
			Kind:   EventGeometryChanged,
			Window: id,
			Bounds: Rect{X: ev.X, Y: ev.Y, Width: ev.Width, Height: ev.Height},
		}, true
	case x11.EventWindowDesktop:
		return Event{Kind: EventDesktopChanged, Window: id, Desktop: ev.Desktop}, true
	case x11.EventWindowState:
		return Event{Kind: EventStateChanged, Window: id, States: stateFlagsFromAtoms(ev.States)}, true
	case x11.EventMoveResizeGrab:
		op := GrabOp(ev.Direction)
		if op == GrabOpCancel {
			return Event{Kind: EventGrabEnd, Window: id, Op: op}, true
		}
		return Event{Kind: EventGrabBegin, Window: id, Op: op}, true
	}
	return Event{}, false
}

func stateFlagsFromAtoms(atoms []string) StateFlags {
	var flags StateFlags
	maxH, maxV := false, false
	for _, atom := range atoms {
		switch atom {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			maxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			maxV = true
		case "_NET_WM_STATE_FULLSCREEN":
			flags.Fullscreen = true
		case "_NET_WM_STATE_ABOVE":
			flags.Above = true
		case "_NET_WM_STATE_STICKY":
			flags.Sticky = true
		}
	}
	flags.Maximized = maxH && maxV
	return flags
}

// Displays returns all active displays with their work areas.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})
	return displays, nil
}

// ActiveDisplay returns the display of the focused window, falling back to
// the display under the pointer.
func (b *LinuxBackend) ActiveDisplay() (Display, error) {
	conn, err := b.connection()
	if err != nil {
		return Display{}, err
	}

	active, err := conn.GetActiveMonitor()
	if err != nil {
		return Display{}, err
	}
	return displayFromMonitor(*active), nil
}

// CurrentDesktop returns the current virtual desktop number.
func (b *LinuxBackend) CurrentDesktop() (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetCurrentDesktop()
}

// DesktopCount returns the number of virtual desktops.
func (b *LinuxBackend) DesktopCount() (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetDesktopCount()
}

// ListWindows lists normal windows on the given desktop whose centers fall
// inside the display bounds. A negative displayID matches all displays.
func (b *LinuxBackend) ListWindows(desktop, displayID int) ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	var target *Display
	if displayID >= 0 {
		displays, err := b.Displays()
		if err != nil {
			return nil, err
		}
		for i := range displays {
			if displays[i].ID == displayID {
				target = &displays[i]
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("display with id %d not found", displayID)
		}
	}

	clients, err := conn.ListClients()
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(clients))
	for _, id := range clients {
		if !conn.IsNormalWindow(id) {
			continue
		}

		winDesktop, err := conn.GetWindowDesktop(id)
		if err != nil {
			continue
		}
		// Sticky windows (-1) show on every desktop.
		if winDesktop != -1 && winDesktop != desktop {
			continue
		}

		x, y, width, height, err := conn.GetWindowGeometry(id)
		if err != nil {
			continue
		}
		bounds := Rect{X: x, Y: y, Width: width, Height: height}

		if target != nil && !target.Bounds.Contains(bounds.CenterX(), bounds.CenterY()) {
			continue
		}

		var states StateFlags
		if atoms, err := conn.GetWindowStates(id); err == nil {
			states = stateFlagsFromAtoms(atoms)
		}

		windows = append(windows, Window{
			ID:      WindowID(id),
			PID:     conn.GetWindowPID(id),
			AppID:   conn.GetWindowClass(id),
			Title:   conn.GetWindowTitle(id),
			Bounds:  bounds,
			Desktop: winDesktop,
			States:  states,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].ID < windows[j].ID
	})
	return windows, nil
}

// ActiveWindow returns the currently focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	id, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(id), nil
}

// WindowGeometry returns a window's geometry in root coordinates.
func (b *LinuxBackend) WindowGeometry(id WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	x, y, width, height, err := conn.GetWindowGeometry(uint32(id))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: width, Height: height}, nil
}

// WindowStates returns the tiling-relevant state flags of a window.
func (b *LinuxBackend) WindowStates(id WindowID) (StateFlags, error) {
	conn, err := b.connection()
	if err != nil {
		return StateFlags{}, err
	}
	atoms, err := conn.GetWindowStates(uint32(id))
	if err != nil {
		return StateFlags{}, err
	}
	return stateFlagsFromAtoms(atoms), nil
}

// WindowDesktop returns the desktop a window is on, -1 for sticky windows.
func (b *LinuxBackend) WindowDesktop(id WindowID) (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetWindowDesktop(uint32(id))
}

// Pointer returns the pointer position and button state.
func (b *LinuxBackend) Pointer() (x, y int, pressed bool, err error) {
	conn, err := b.connection()
	if err != nil {
		return 0, 0, false, err
	}
	return conn.QueryPointer()
}

// MoveResize moves and resizes a window to the given bounds.
func (b *LinuxBackend) MoveResize(id WindowID, bounds Rect, userInitiated bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeWindow(uint32(id), bounds.X, bounds.Y, bounds.Width, bounds.Height, userInitiated)
}

// SetWindowDesktop moves a window to the given virtual desktop.
func (b *LinuxBackend) SetWindowDesktop(id WindowID, desktop int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetWindowDesktop(uint32(id), desktop)
}

// SwitchDesktop changes the current virtual desktop.
func (b *LinuxBackend) SwitchDesktop(desktop int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SwitchDesktop(desktop)
}

// Unmaximize removes the maximized states from a window.
func (b *LinuxBackend) Unmaximize(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Unmaximize(uint32(id))
}

// Unfullscreen removes the fullscreen state from a window.
func (b *LinuxBackend) Unfullscreen(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Unfullscreen(uint32(id))
}

// Activate focuses and raises a window.
func (b *LinuxBackend) Activate(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.FocusWindow(uint32(id))
}

// Events returns the translated notification channel.
func (b *LinuxBackend) Events() <-chan Event {
	return b.events
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		Usable: Rect{X: m.WorkX, Y: m.WorkY, Width: m.WorkWidth, Height: m.WorkHeight},
	}
}
