// Package resize brackets manual resize gestures: it classifies grab
// operations, keeps the mosaic converging live while the user drags a
// border, previews overflow when the new size cannot coexist with the
// peers, repairs tiled pairs afterward, and records the result as the
// window's home size. All methods run on the engine loop.
package resize

import (
	"log/slog"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
	"github.com/rivenirvana/MosaicWM-sub002/internal/tiling"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// Kind classifies a grab operation for the resize tracker.
type Kind int

const (
	// KindNone: not a resize (moves, cancels).
	KindNone Kind = iota
	// KindEdge: pointer resize from a border or corner; the GrabOp keeps
	// the edge identity for pair repair.
	KindEdge
	// KindKeyboard: keyboard-driven resize.
	KindKeyboard
	// KindCompositor: an operation code outside the standard table,
	// originated by the window manager itself. Tracked but never treated
	// as the user's stated preference.
	KindCompositor
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEdge:
		return "edge"
	case KindKeyboard:
		return "keyboard"
	case KindCompositor:
		return "compositor"
	}
	return "unknown"
}

// Classify maps a raw grab operation to its resize kind.
func Classify(op platform.GrabOp) Kind {
	switch op {
	case platform.GrabOpSizeTopLeft, platform.GrabOpSizeTop, platform.GrabOpSizeTopRight,
		platform.GrabOpSizeRight, platform.GrabOpSizeBottomRight, platform.GrabOpSizeBottom,
		platform.GrabOpSizeBottomLeft, platform.GrabOpSizeLeft:
		return KindEdge
	case platform.GrabOpSizeKeyboard:
		return KindKeyboard
	case platform.GrabOpMove, platform.GrabOpMoveKeyboard, platform.GrabOpCancel:
		return KindNone
	}
	return KindCompositor
}

// Tracker follows the single active resize gesture.
type Tracker struct {
	engine *lifecycle.Coordinator
	logger *slog.Logger

	active platform.WindowID
	op     platform.GrabOp
	kind   Kind

	deb *sched.Debouncer

	// overflowPreview marks a size that cannot coexist with the peers.
	// Purely speculative until the grab ends: shrinking back clears it,
	// releasing in it confirms the overflow.
	overflowPreview bool

	// last/settleUntil absorb the settling frame the window system emits
	// right after a gesture ends, so it does not re-trigger retiling.
	last        platform.WindowID
	settleUntil time.Time
}

// New creates a resize tracker bound to the engine.
func New(engine *lifecycle.Coordinator, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{engine: engine, logger: logger}
}

// Active reports whether a resize is in flight.
func (t *Tracker) Active() bool { return t.active != 0 }

func (t *Tracker) debouncer() *sched.Debouncer {
	if t.deb == nil {
		t.deb = &sched.Debouncer{Loop: t.engine.Loop(), Delay: t.engine.Config().RetileDebounce()}
	}
	return t.deb
}

// HandleGrabBegin claims resize grabs. Returns false for moves and for
// windows the tracker does not manage.
func (t *Tracker) HandleGrabBegin(id platform.WindowID, op platform.GrabOp) bool {
	kind := Classify(op)
	if kind == KindNone {
		return false
	}
	if t.active != 0 {
		return t.active == id
	}
	st, ok := t.engine.Store().Get(id)
	if !ok || st.Excluded {
		return false
	}
	t.active, t.op, t.kind = id, op, kind
	t.overflowPreview = false
	t.logger.Debug("resize started", "window", id, "kind", kind.String())
	return true
}

// HandleGeometry consumes frames of the window being resized and, briefly,
// the settling frame after the gesture ended. Each tick schedules one
// debounced layout evaluation.
func (t *Tracker) HandleGeometry(id platform.WindowID, bounds platform.Rect) bool {
	if t.active == id {
		if st, ok := t.engine.Store().Get(id); ok {
			st.Frame = bounds
		}
		t.debouncer().Trigger(t.evaluateTick)
		return true
	}
	if id == t.last && time.Now().Before(t.settleUntil) {
		if st, ok := t.engine.Store().Get(id); ok {
			st.Frame = bounds
		}
		return true
	}
	return false
}

// evaluateTick re-packs the peers around the resized window's current size,
// or flips into overflow preview when no arrangement exists. The grabbed
// window itself is never commanded; fighting the user's pointer loses.
func (t *Tracker) evaluateTick() {
	if t.active == 0 {
		return
	}
	st, ok := t.engine.Store().Get(t.active)
	if !ok {
		t.reset()
		return
	}
	if st.Zone != edgezone.ZoneNone {
		// Tiled pairs are repaired once, when the gesture ends.
		return
	}
	workArea, has := t.engine.PackingArea(st.Desktop, st.Monitor)
	if !has || workArea.Empty() {
		return
	}
	var peers []*winstate.State
	for _, p := range t.engine.MosaicWindows(st.Desktop, st.Monitor) {
		if p.ID != st.ID && p.Phase == winstate.PhaseSettled && !p.InNegotiation() {
			peers = append(peers, p)
		}
	}

	opts := t.engine.Options()
	all := append(append([]*winstate.State(nil), peers...), st)
	layout := tiling.ComputeLayout(workArea, all, opts, nil)
	if !layout.FitsWithin(workArea) || layout.Overlapping() {
		if !t.overflowPreview {
			t.overflowPreview = true
			t.logger.Debug("resize exceeds the desktop, previewing overflow", "window", st.ID)
		}
		return
	}
	if t.overflowPreview {
		t.overflowPreview = false
		t.logger.Debug("resize fits again, preview dropped", "window", st.ID)
	}
	for _, p := range peers {
		rect, ok := layout.Rect(p.ID)
		if !ok || rect == p.Frame {
			continue
		}
		if err := t.engine.Backend().MoveResize(p.ID, rect, false); err != nil {
			t.logger.Warn("live retile move failed", "window", p.ID, "error", err)
		}
	}
}

// HandleGrabEnd finishes the gesture: confirm a previewed overflow, repair a
// tiled pair, or record the size and converge.
func (t *Tracker) HandleGrabEnd(id platform.WindowID, op platform.GrabOp) bool {
	if t.active != id {
		return false
	}
	userSized := t.kind == KindEdge || t.kind == KindKeyboard
	overflowed := t.overflowPreview
	t.debouncer().Cancel()
	t.reset()
	t.last = id
	t.settleUntil = time.Now().Add(t.engine.Config().SettleGrace())

	st, ok := t.engine.Store().Get(id)
	if !ok {
		return true
	}
	if overflowed {
		t.logger.Info("resize confirmed overflow", "window", id)
		t.engine.OverflowWindow(id)
		return true
	}
	if st.Zone != edgezone.ZoneNone {
		t.repairPair(st)
		return true
	}
	if userSized && op != platform.GrabOpCancel {
		tiling.SavePreferredSize(st)
	}
	t.engine.Retile(st.Desktop, st.Monitor)
	return true
}

// repairPair resizes the sibling zone so the pair invariant holds again
// after one member was manually resized.
func (t *Tracker) repairPair(st *winstate.State) {
	workArea, ok := t.engine.WorkArea(st.Monitor)
	if !ok {
		return
	}
	spacing := t.engine.Options().Spacing
	sibling, rect, ok := edgezone.FixAfterEdgeResize(st.Frame, st.Zone, workArea, spacing)
	if !ok {
		return
	}
	occupant, held := t.engine.Zones().Occupant(st.Desktop, st.Monitor, sibling)
	if !held {
		return
	}
	other, live := t.engine.Store().Get(occupant)
	if !live {
		return
	}
	other.Frame = rect
	if err := t.engine.Backend().MoveResize(occupant, rect, false); err != nil {
		t.logger.Warn("pair repair failed", "window", occupant, "error", err)
	}
}

func (t *Tracker) reset() {
	t.active = 0
	t.op = 0
	t.kind = KindNone
	t.overflowPreview = false
}
