// Package winstate is the per-window state arena. Every flag and attribute
// the engine tracks for a live window lives in one State record keyed by the
// stable window identity. All access happens on the engine loop, so nothing
// here is locked.
package winstate

import (
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
)

// Size is a width/height pair.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether no size has been recorded.
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Phase is the window's lifecycle phase.
type Phase int

const (
	// PhaseArriving means the window was just created and has not been
	// classified yet.
	PhaseArriving Phase = iota
	// PhaseGeometryPending means the engine is waiting for the frame to
	// become valid (bounded by the geometry poll timeout).
	PhaseGeometryPending
	// PhaseSettled means the window has a stable place in the layout.
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseArriving:
		return "arriving"
	case PhaseGeometryPending:
		return "geometry-pending"
	case PhaseSettled:
		return "settled"
	}
	return "unknown"
}

// SacredKind discriminates the sacred (maximized/fullscreen) variants.
type SacredKind int

const (
	// SacredNone: ordinary tileable window.
	SacredNone SacredKind = iota
	// SacredActive: maximized or fullscreen, exempt from mosaic packing.
	SacredActive
	// SacredRestoring: sacred state just ended; the deferred return to
	// the origin desktop is pending until the in-place resize settles.
	SacredRestoring
)

// Sacred is a tagged variant. Origin is the desktop to return to, recorded
// when the sacred state begins and consumed by the restore protocol.
type Sacred struct {
	Kind   SacredKind
	Origin int
}

// NegotiationKind discriminates the smart-resize variants.
type NegotiationKind int

const (
	// NegotiationIdle: not part of any resize negotiation.
	NegotiationIdle NegotiationKind = iota
	// NegotiationShrinking: a forward smart-resize asked this window to
	// shrink toward Target; confirmation comes from observed geometry.
	NegotiationShrinking
	// NegotiationGrowing: a reverse smart-resize is growing this window
	// back toward its preferred size.
	NegotiationGrowing
)

// Negotiation is a tagged variant: Target is meaningful only while
// shrinking.
type Negotiation struct {
	Kind   NegotiationKind
	Target Size
}

// State is the per-window record. Fields default to their zero values on
// creation; tagged variants replace the original's independent booleans.
type State struct {
	ID    platform.WindowID
	Frame platform.Rect

	// PreferredSize is the sticky home size, captured on first stable
	// placement or a manual resize, never during a transition.
	PreferredSize Size
	// LearnedMin is the observed floor from a failed shrink. It is a
	// soft hint: re-validated on later attempts, cleared when the
	// window is seen below it.
	LearnedMin Size

	Desktop int
	Monitor int

	Zone        edgezone.Zone
	Phase       Phase
	Sacred      Sacred
	Negotiation Negotiation

	// Excluded: always-on-top or sticky, opted out of tiling entirely.
	Excluded bool

	// OverflowedUntil suppresses repeated overflow migration attempts
	// until the grace period elapses.
	OverflowedUntil time.Time

	// SkipNextRetile is the one-shot token set while a drag restores an
	// edge-tiled window to its natural size.
	SkipNextRetile bool

	// ConstrainedByMosaic marks a window currently holding a size the
	// packer imposed rather than its preferred one.
	ConstrainedByMosaic bool

	// Arrival orders windows for layout tie-breaking.
	Arrival uint64

	attached map[string]func()
}

// InNegotiation reports whether any smart-resize concerns this window.
func (s *State) InNegotiation() bool {
	return s.Negotiation.Kind != NegotiationIdle
}

// InTransition reports whether preferred-size bookkeeping must be
// suppressed: the frame is not representative while a sacred transition or
// negotiation is in flight.
func (s *State) InTransition() bool {
	return s.Sacred.Kind != SacredNone || s.InNegotiation() || s.Phase != PhaseSettled
}

// Overflowed reports whether the overflow grace period is still active.
func (s *State) Overflowed(now time.Time) bool {
	return now.Before(s.OverflowedUntil)
}

// Attach registers a per-signal concern at most once. connect must return
// the matching detach func, which runs when the window is removed.
func (s *State) Attach(concern string, connect func() func()) {
	if s.attached == nil {
		s.attached = make(map[string]func())
	}
	if _, ok := s.attached[concern]; ok {
		return
	}
	s.attached[concern] = connect()
}

// Detach disconnects one concern, if attached.
func (s *State) Detach(concern string) {
	detach, ok := s.attached[concern]
	if !ok {
		return
	}
	delete(s.attached, concern)
	if detach != nil {
		detach()
	}
}

// detachAll disconnects every concern exactly once.
func (s *State) detachAll() {
	for concern, detach := range s.attached {
		delete(s.attached, concern)
		if detach != nil {
			detach()
		}
	}
}
