package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() int { return r.X + r.Width/2 }

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() int { return r.Y + r.Height/2 }

// Overlaps reports whether two rectangles share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Empty reports whether the rectangle has no usable area.
func (r Rect) Empty() bool { return r.Width < 1 || r.Height < 1 }

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	// Usable is the work area: Bounds minus panels, docks and other
	// reserved chrome.
	Usable Rect
}

// StateFlags carries the window-manager states relevant to tiling.
type StateFlags struct {
	Maximized  bool
	Fullscreen bool
	Above      bool
	Sticky     bool
}

// Sacred reports whether the window is exempt from mosaic packing.
func (s StateFlags) Sacred() bool { return s.Maximized || s.Fullscreen }

// Excluded reports whether the window opted out of tiling entirely.
func (s StateFlags) Excluded() bool { return s.Above || s.Sticky }

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID      WindowID
	PID     int
	AppID   string
	Title   string
	Bounds  Rect
	Desktop int
	States  StateFlags
}

// GrabOp is the raw window-system operation code carried by grab events.
// On X11 these are the _NET_WM_MOVERESIZE direction codes.
type GrabOp int

const (
	GrabOpSizeTopLeft     GrabOp = 0
	GrabOpSizeTop         GrabOp = 1
	GrabOpSizeTopRight    GrabOp = 2
	GrabOpSizeRight       GrabOp = 3
	GrabOpSizeBottomRight GrabOp = 4
	GrabOpSizeBottom      GrabOp = 5
	GrabOpSizeBottomLeft  GrabOp = 6
	GrabOpSizeLeft        GrabOp = 7
	GrabOpMove            GrabOp = 8
	GrabOpSizeKeyboard    GrabOp = 9
	GrabOpMoveKeyboard    GrabOp = 10
	GrabOpCancel          GrabOp = 11
)

// EventKind discriminates backend event payloads.
type EventKind int

const (
	EventWindowCreated EventKind = iota
	EventWindowDestroyed
	EventGeometryChanged
	EventDesktopChanged
	EventStateChanged
	EventGrabBegin
	EventGrabEnd
)

// Event is a push notification from the window system. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind    EventKind
	Window  WindowID
	Bounds  Rect
	Desktop int
	States  StateFlags
	Op      GrabOp
}

// Backend abstracts window-system operations across platforms.
//
// Implementations deliver push notifications on Events; all other
// methods are synchronous queries or commands. Commands are requests:
// the window system may clamp, delay or refuse them, so callers confirm
// outcomes from subsequent events rather than from a nil return.
type Backend interface {
	Displays() ([]Display, error)
	ActiveDisplay() (Display, error)
	CurrentDesktop() (int, error)
	DesktopCount() (int, error)
	ListWindows(desktop, displayID int) ([]Window, error)
	ActiveWindow() (WindowID, error)
	WindowGeometry(id WindowID) (Rect, error)
	WindowStates(id WindowID) (StateFlags, error)
	WindowDesktop(id WindowID) (int, error)

	// Pointer returns the pointer position in root coordinates and
	// whether any button is currently pressed.
	Pointer() (x, y int, pressed bool, err error)

	MoveResize(id WindowID, bounds Rect, userInitiated bool) error
	SetWindowDesktop(id WindowID, desktop int) error
	SwitchDesktop(desktop int) error
	Unmaximize(id WindowID) error
	Unfullscreen(id WindowID) error
	Activate(id WindowID) error

	Events() <-chan Event
}
