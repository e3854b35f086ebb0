// Package dragmode tracks the single active pointer drag: it restores an
// edge-tiled window to its natural size when the drag starts, evaluates snap
// zones under the pointer while it moves, previews which neighbors a drop
// would displace, and commits or discards the whole thing on release. All
// methods run on the engine loop.
package dragmode

import (
	"log/slog"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/tiling"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

const (
	// pointerPollInterval drives the release-detection fallback for window
	// systems that drop the grab-end notification.
	pointerPollInterval = 60 * time.Millisecond
	pointerPollTimeout  = 30 * time.Second
)

// Phase is the drag tracker's lifecycle phase.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseTracking
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseTracking:
		return "tracking"
	}
	return "unknown"
}

// State is the current drag. Everything here is speculative until the
// release commits it: the zone is a preview and Ghosts lists the windows
// that preview would displace, none of which have been touched yet.
type State struct {
	Phase  Phase
	Window platform.WindowID
	Op     platform.GrabOp
	Zone   edgezone.Zone
	Ghosts []platform.WindowID
}

// Reset returns the state to inactive.
func (s *State) Reset() {
	*s = State{}
}

// Mode is the drag coordinator. The daemon routes grab events here first;
// geometry events for the dragged window are consumed so the lifecycle
// machine never retiles against a frame that is mid-flight under the
// pointer.
type Mode struct {
	engine *lifecycle.Coordinator
	logger *slog.Logger
	state  State

	// evalPending throttles zone evaluation to one per idle cycle no
	// matter how fast geometry ticks arrive.
	evalPending bool
}

// New creates a drag coordinator bound to the engine.
func New(engine *lifecycle.Coordinator, logger *slog.Logger) *Mode {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mode{engine: engine, logger: logger}
}

// Active reports whether a drag is in flight.
func (m *Mode) Active() bool { return m.state.Phase == PhaseTracking }

// Tracking reports whether the given window is the one being dragged.
func (m *Mode) Tracking(id platform.WindowID) bool {
	return m.state.Phase == PhaseTracking && m.state.Window == id
}

// HandleGrabBegin claims move grabs. Returns false for resize grabs and for
// windows the drag coordinator does not manage.
func (m *Mode) HandleGrabBegin(id platform.WindowID, op platform.GrabOp) bool {
	if op != platform.GrabOpMove && op != platform.GrabOpMoveKeyboard {
		return false
	}
	if m.state.Phase == PhaseTracking {
		// One drag at a time; a second grab before the first resolved is
		// noise from the window system.
		return m.state.Window == id
	}
	st, ok := m.engine.Store().Get(id)
	if !ok || st.Excluded {
		return false
	}

	m.state = State{Phase: PhaseTracking, Window: id, Op: op}
	m.logger.Debug("drag started", "window", id, "op", int(op))

	if st.Zone != edgezone.ZoneNone {
		m.restoreNaturalSize(st)
	}

	if op == platform.GrabOpMove {
		m.watchPointerRelease(id)
	}
	return true
}

// restoreNaturalSize un-tiles the dragged window so the user drags its real
// shape, not the zone rectangle. The growth this causes must not be read as
// the desktop overflowing, so the window is fenced off from overflow for the
// suppression interval and the next geometry tick is swallowed.
func (m *Mode) restoreNaturalSize(st *winstate.State) {
	st.SkipNextRetile = true
	st.OverflowedUntil = time.Now().Add(m.engine.Config().DragRestoreSuppress())
	m.engine.ReleaseTile(st)
	if st.PreferredSize.IsZero() {
		return
	}
	bounds := st.Frame
	bounds.Width = st.PreferredSize.Width
	bounds.Height = st.PreferredSize.Height
	if err := m.engine.Backend().MoveResize(st.ID, bounds, true); err != nil {
		m.logger.Warn("natural size restore failed", "window", st.ID, "error", err)
	}
}

// watchPointerRelease polls the pointer button as a fallback for a lost
// grab-end event. The timeout arm resolves the drag rather than leaving it
// stuck forever.
func (m *Mode) watchPointerRelease(id platform.WindowID) {
	m.engine.Loop().Poll(pointerPollInterval, pointerPollTimeout,
		func() bool {
			if !m.Tracking(id) {
				return true
			}
			_, _, pressed, err := m.engine.Backend().Pointer()
			if err != nil {
				return false
			}
			if !pressed {
				m.logger.Debug("pointer released without grab end", "window", id)
				m.resolve()
				return true
			}
			return false
		},
		func() {
			if m.Tracking(id) {
				m.logger.Warn("drag never released, resolving", "window", id)
				m.resolve()
			}
		})
}

// HandleGeometry consumes geometry ticks for the dragged window and schedules
// a zone evaluation. Returns false for windows not being dragged.
func (m *Mode) HandleGeometry(id platform.WindowID, bounds platform.Rect) bool {
	if !m.Tracking(id) {
		return false
	}
	if st, ok := m.engine.Store().Get(id); ok {
		st.Frame = bounds
	}
	if m.evalPending {
		return true
	}
	m.evalPending = true
	m.engine.Loop().Idle(func() {
		m.evalPending = false
		m.evaluate()
	})
	return true
}

// evaluate re-reads the pointer and recomputes the snap zone and its ghost
// preview. Cheap when the zone did not change.
func (m *Mode) evaluate() {
	if m.state.Phase != PhaseTracking {
		return
	}
	st, ok := m.engine.Store().Get(m.state.Window)
	if !ok {
		m.state.Reset()
		return
	}
	px, py, _, err := m.engine.Backend().Pointer()
	if err != nil {
		return
	}
	workArea, has := m.engine.WorkArea(st.Monitor)
	if !has {
		return
	}
	cfg := m.engine.Config()
	occ := m.engine.Zones().Occupied(st.Desktop, st.Monitor)
	zone := edgezone.Detect(px, py, workArea, occ, cfg.EdgeThreshold, cfg.CornerThreshold)
	if zone == m.state.Zone {
		return
	}
	m.state.Zone = zone
	m.previewGhosts(st, zone, workArea)
}

// previewGhosts computes which mosaic windows the pending drop would push
// off the desktop. Nothing moves here: the ghost set only becomes real if
// the drop lands in the zone.
func (m *Mode) previewGhosts(st *winstate.State, zone edgezone.Zone, workArea platform.Rect) {
	m.state.Ghosts = nil
	if zone == edgezone.ZoneNone {
		return
	}
	opts := m.engine.Options()

	occupied := []platform.Rect{edgezone.ZoneRect(zone, workArea, opts.Spacing)}
	for tiled := range m.engine.Zones().Tiled(st.Desktop, st.Monitor) {
		if tiled == zone {
			continue
		}
		occupied = append(occupied, edgezone.ZoneRect(tiled, workArea, opts.Spacing))
	}
	remaining := edgezone.RemainingSpace(workArea, occupied, opts.Spacing)

	var peers []*winstate.State
	for _, p := range m.engine.MosaicWindows(st.Desktop, st.Monitor) {
		if p.ID != st.ID {
			peers = append(peers, p)
		}
	}

	// Shed the newest arrivals until the rest fit in what the zone leaves.
	keep := peers
	for len(keep) > 0 {
		if remaining.Empty() {
			break
		}
		layout := tiling.ComputeLayout(remaining, keep, opts, nil)
		if layout.FitsWithin(remaining) && !layout.Overlapping() {
			break
		}
		newest := 0
		for i, p := range keep {
			if p.Arrival > keep[newest].Arrival {
				newest = i
			}
		}
		m.state.Ghosts = append(m.state.Ghosts, keep[newest].ID)
		keep = append(keep[:newest], keep[newest+1:]...)
	}
	if remaining.Empty() {
		for _, p := range keep {
			m.state.Ghosts = append(m.state.Ghosts, p.ID)
		}
	}
	m.logger.Debug("zone preview", "window", st.ID, "zone", zone.String(), "ghosts", len(m.state.Ghosts))
}

// HandleGrabEnd resolves the drag. A cancel drops the preview and re-enters
// the mosaic as if the window had been released in the open.
func (m *Mode) HandleGrabEnd(id platform.WindowID, op platform.GrabOp) bool {
	if !m.Tracking(id) {
		return false
	}
	if op == platform.GrabOpCancel {
		m.state.Zone = edgezone.ZoneNone
		m.state.Ghosts = nil
	}
	m.resolve()
	return true
}

// resolve commits the drag exactly once: apply or swap into the previewed
// zone, then and only then migrate the ghosts; with no zone the window
// rejoins the mosaic. The phase guard makes a second call a no-op.
func (m *Mode) resolve() {
	if m.state.Phase != PhaseTracking {
		return
	}
	id := m.state.Window
	zone := m.state.Zone
	ghosts := m.state.Ghosts
	m.state.Reset()

	st, ok := m.engine.Store().Get(id)
	if !ok {
		return
	}
	st.SkipNextRetile = false
	if zone == edgezone.ZoneNone {
		m.engine.JoinLayout(id)
		return
	}

	applied := false
	if occupant, taken := m.engine.Zones().Occupant(st.Desktop, st.Monitor, zone); taken && occupant != id {
		applied = m.swap(st, zone, occupant)
	} else {
		applied = m.engine.ApplyTile(st, zone)
	}
	if !applied {
		m.engine.JoinLayout(id)
		return
	}
	m.logger.Info("drag tiled", "window", id, "zone", zone.String(), "displaced", len(ghosts))
	for _, g := range ghosts {
		m.engine.OverflowWindow(g)
	}
}

// swap evicts the zone's occupant back into the mosaic and installs the
// dragged window in its place. The occupant gets its pre-tile size back
// before it rejoins, so the fit test sees its real shape and not the zone
// rectangle.
func (m *Mode) swap(st *winstate.State, zone edgezone.Zone, occupant platform.WindowID) bool {
	other, live := m.engine.Store().Get(occupant)
	m.engine.Zones().Release(st.Desktop, st.Monitor, occupant)
	if live {
		other.Zone = edgezone.ZoneNone
		if !other.PreferredSize.IsZero() {
			bounds := other.Frame
			bounds.Width = other.PreferredSize.Width
			bounds.Height = other.PreferredSize.Height
			other.Frame = bounds
			if err := m.engine.Backend().MoveResize(occupant, bounds, false); err != nil {
				m.logger.Warn("swap size restore failed", "window", occupant, "error", err)
			}
		}
	}
	applied := m.engine.ApplyTile(st, zone)
	if live {
		m.engine.JoinLayout(occupant)
	}
	return applied
}
