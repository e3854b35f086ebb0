package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EventType discriminates watcher notifications.
type EventType int

const (
	EventWindowCreated EventType = iota
	EventWindowDestroyed
	EventWindowConfigured
	EventWindowDesktop
	EventWindowState
	EventMoveResizeGrab
)

// Event is a notification produced by the Watcher. Only the fields relevant
// to Type are populated. Direction carries the raw _NET_WM_MOVERESIZE code
// for EventMoveResizeGrab.
type Event struct {
	Type      EventType
	Window    uint32
	X         int
	Y         int
	Width     int
	Height    int
	Desktop   int
	States    []string
	Direction int
}

// Watcher converts raw X11 notifications into window lifecycle events.
//
// It tracks the EWMH client list and attaches per-window listeners, so a
// window's geometry, desktop and state changes arrive as discrete events.
// Move/resize grabs are observed from _NET_WM_MOVERESIZE client messages.
// All callbacks run on the X event loop goroutine.
type Watcher struct {
	conn   *Connection
	known  map[xproto.Window]bool
	events chan Event

	atomClientList xproto.Atom
	atomWmState    xproto.Atom
	atomWmDesktop  xproto.Atom
	atomMoveResize xproto.Atom
}

// NewWatcher creates a watcher on the given connection. Call Start before
// running the connection's event loop.
func NewWatcher(conn *Connection) *Watcher {
	return &Watcher{
		conn:   conn,
		known:  make(map[xproto.Window]bool),
		events: make(chan Event, 256),
	}
}

// Events returns the notification channel.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start selects the root event masks, interns the atoms the watcher matches
// against and registers callbacks for the current client list.
func (w *Watcher) Start() error {
	var err error
	if w.atomClientList, err = xprop.Atm(w.conn.XUtil, "_NET_CLIENT_LIST"); err != nil {
		return fmt.Errorf("failed to intern _NET_CLIENT_LIST: %w", err)
	}
	if w.atomWmState, err = xprop.Atm(w.conn.XUtil, "_NET_WM_STATE"); err != nil {
		return fmt.Errorf("failed to intern _NET_WM_STATE: %w", err)
	}
	if w.atomWmDesktop, err = xprop.Atm(w.conn.XUtil, "_NET_WM_DESKTOP"); err != nil {
		return fmt.Errorf("failed to intern _NET_WM_DESKTOP: %w", err)
	}
	if w.atomMoveResize, err = xprop.Atm(w.conn.XUtil, "_NET_WM_MOVERESIZE"); err != nil {
		return fmt.Errorf("failed to intern _NET_WM_MOVERESIZE: %w", err)
	}

	root := xwindow.New(w.conn.XUtil, w.conn.Root)
	if err := root.Listen(xproto.EventMaskSubstructureNotify, xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on root: %w", err)
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom == w.atomClientList {
			w.syncClients()
		}
	}).Connect(w.conn.XUtil, w.conn.Root)

	w.syncClients()
	return nil
}

// syncClients diffs the EWMH client list against the known set, emitting
// created and destroyed events and wiring per-window listeners.
func (w *Watcher) syncClients() {
	clients, err := w.conn.ListClients()
	if err != nil {
		return
	}

	current := make(map[xproto.Window]bool, len(clients))
	for _, id := range clients {
		win := xproto.Window(id)
		if !w.conn.IsNormalWindow(id) {
			continue
		}
		current[win] = true
		if w.known[win] {
			continue
		}
		w.known[win] = true
		w.watchWindow(win)

		ev := Event{Type: EventWindowCreated, Window: id}
		ev.X, ev.Y, ev.Width, ev.Height, _ = w.conn.GetWindowGeometry(id)
		ev.Desktop, _ = w.conn.GetWindowDesktop(id)
		ev.States, _ = w.conn.GetWindowStates(id)
		w.emit(ev)
	}

	for win := range w.known {
		if current[win] {
			continue
		}
		delete(w.known, win)
		xevent.Detach(w.conn.XUtil, win)
		w.emit(Event{Type: EventWindowDestroyed, Window: uint32(win)})
	}
}

// watchWindow attaches geometry, property and grab listeners to one client.
func (w *Watcher) watchWindow(win xproto.Window) {
	xwindow.New(w.conn.XUtil, win).Listen(
		xproto.EventMaskStructureNotify,
		xproto.EventMaskPropertyChange,
	)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		id := uint32(ev.Window)
		if !w.known[ev.Window] {
			return
		}
		// The event coordinates are relative to the parent under a
		// reparenting WM, so re-query root coordinates.
		x, y, width, height, err := w.conn.GetWindowGeometry(id)
		if err != nil {
			return
		}
		w.emit(Event{Type: EventWindowConfigured, Window: id, X: x, Y: y, Width: width, Height: height})
	}).Connect(w.conn.XUtil, win)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if !w.known[ev.Window] {
			return
		}
		delete(w.known, ev.Window)
		xevent.Detach(w.conn.XUtil, ev.Window)
		w.emit(Event{Type: EventWindowDestroyed, Window: uint32(ev.Window)})
	}).Connect(w.conn.XUtil, win)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		id := uint32(ev.Window)
		if !w.known[ev.Window] {
			return
		}
		switch ev.Atom {
		case w.atomWmState:
			states, err := w.conn.GetWindowStates(id)
			if err != nil {
				return
			}
			w.emit(Event{Type: EventWindowState, Window: id, States: states})
		case w.atomWmDesktop:
			desktop, err := w.conn.GetWindowDesktop(id)
			if err != nil {
				return
			}
			w.emit(Event{Type: EventWindowDesktop, Window: id, Desktop: desktop})
		}
	}).Connect(w.conn.XUtil, win)

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if ev.Type != w.atomMoveResize || ev.Format != 32 {
			return
		}
		data := ev.Data.Data32
		if len(data) < 3 {
			return
		}
		w.emit(Event{
			Type:      EventMoveResizeGrab,
			Window:    uint32(ev.Window),
			Direction: int(data[2]),
		})
	}).Connect(w.conn.XUtil, win)
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		// Drop the oldest pending event instead of stalling the X
		// event loop behind a slow consumer.
		select {
		case <-w.events:
		default:
		}
		w.events <- ev
	}
}
