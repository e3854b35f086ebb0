package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ListClients returns the managed top-level windows in stacking order.
func (c *Connection) ListClients() ([]uint32, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	out := make([]uint32, 0, len(clients))
	for _, win := range clients {
		out = append(out, uint32(win))
	}
	return out, nil
}

// GetWindowGeometry returns a window's geometry in root coordinates.
func (c *Connection) GetWindowGeometry(windowID uint32) (x, y, width, height int, err error) {
	win := xproto.Window(windowID)

	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get geometry: %w", err)
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry.
// userInitiated selects the EWMH source indication: pagers (2) for geometry
// the user asked for, normal application (1) for engine-driven packing.
func (c *Connection) MoveResizeWindow(windowID uint32, x, y, width, height int, userInitiated bool) error {
	win := xproto.Window(windowID)

	source := 1
	if userInitiated {
		source = 2
	}

	err := ewmh.MoveresizeWindowExtra(
		c.XUtil, win,
		x, y, width, height,
		xproto.GravityBitForget, source,
		true, true,
	)
	if err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, win).MoveResize(x, y, width, height)
	}
	return nil
}

// GetWindowStates returns the _NET_WM_STATE atoms set on a window.
func (c *Connection) GetWindowStates(windowID uint32) ([]string, error) {
	states, err := ewmh.WmStateGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return nil, fmt.Errorf("failed to get window states: %w", err)
	}
	return states, nil
}

// RemoveWindowState asks the window manager to clear a _NET_WM_STATE atom.
func (c *Connection) RemoveWindowState(windowID uint32, state string) error {
	return ewmh.WmStateReq(c.XUtil, xproto.Window(windowID), ewmh.StateRemove, state)
}

// Unmaximize removes both maximized states from a window.
func (c *Connection) Unmaximize(windowID uint32) error {
	win := xproto.Window(windowID)
	if err := ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, "_NET_WM_STATE_MAXIMIZED_HORZ"); err != nil {
		return err
	}
	return ewmh.WmStateReq(c.XUtil, win, ewmh.StateRemove, "_NET_WM_STATE_MAXIMIZED_VERT")
}

// Unfullscreen removes the fullscreen state from a window.
func (c *Connection) Unfullscreen(windowID uint32) error {
	return ewmh.WmStateReq(c.XUtil, xproto.Window(windowID), ewmh.StateRemove, "_NET_WM_STATE_FULLSCREEN")
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID uint32) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" ||
			t == "_NET_WM_WINDOW_TYPE_TOOLTIP" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// GetWindowTitle returns the window's _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) GetWindowTitle(windowID uint32) string {
	win := xproto.Window(windowID)
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return name
	}
	return ""
}

// GetWindowClass returns the WM_CLASS class name, used as the application id.
func (c *Connection) GetWindowClass(windowID uint32) string {
	class, err := icccm.WmClassGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return ""
	}
	return class.Class
}

// GetWindowPID returns the _NET_WM_PID of a window, or 0 when unset.
func (c *Connection) GetWindowPID(windowID uint32) int {
	pid, err := ewmh.WmPidGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return 0
	}
	return int(pid)
}

// GetActiveWindow returns the currently focused window.
func (c *Connection) GetActiveWindow() (uint32, error) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get active window: %w", err)
	}
	return uint32(win), nil
}

// QueryPointer returns the pointer position in root coordinates and whether
// any button is currently held.
func (c *Connection) QueryPointer() (x, y int, pressed bool, err error) {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to query pointer: %w", err)
	}

	const buttonMask = xproto.ButtonMask1 | xproto.ButtonMask2 | xproto.ButtonMask3
	return int(pointer.RootX), int(pointer.RootY), pointer.Mask&buttonMask != 0, nil
}
