package tiling

import (
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// ResizeRequest asks the window system to resize one window.
type ResizeRequest struct {
	ID     platform.WindowID
	Target winstate.Size
}

// Outcome is the result of feeding an observed geometry to a session.
type Outcome int

const (
	// OutcomeIgnored: the window is not a pending candidate.
	OutcomeIgnored Outcome = iota
	// OutcomeProgress: one candidate confirmed, others still pending.
	OutcomeProgress
	// OutcomeComplete: every candidate reached its target.
	OutcomeComplete
	// OutcomeRetry: the window system clamped above the target; the
	// caller should re-issue the request once.
	OutcomeRetry
	// OutcomeFailed: clamped again after the retry; the negotiation is
	// abandoned.
	OutcomeFailed
)

// confirmSlack tolerates WM-side rounding when comparing observed widths
// against targets.
const confirmSlack = 2

// Session is one smart-resize negotiation for a (desktop, monitor) pair.
// Success is confirmed from observed geometry, never from the request
// alone.
type Session struct {
	Desktop  int
	Monitor  int
	Incoming platform.WindowID

	targets    map[platform.WindowID]winstate.Size
	pending    map[platform.WindowID]bool
	retried    map[platform.WindowID]bool
	candidates map[platform.WindowID]*winstate.State
}

// Requests returns the resize commands for all still-pending candidates.
func (s *Session) Requests() []ResizeRequest {
	out := make([]ResizeRequest, 0, len(s.pending))
	for _, st := range s.ordered() {
		if !s.pending[st.ID] {
			continue
		}
		out = append(out, ResizeRequest{ID: st.ID, Target: s.targets[st.ID]})
	}
	return out
}

// Request returns the resize command for a single candidate.
func (s *Session) Request(id platform.WindowID) (ResizeRequest, bool) {
	if !s.pending[id] {
		return ResizeRequest{}, false
	}
	return ResizeRequest{ID: id, Target: s.targets[id]}, true
}

// Target returns the size a candidate was asked to reach.
func (s *Session) Target(id platform.WindowID) (winstate.Size, bool) {
	t, ok := s.targets[id]
	return t, ok
}

func (s *Session) ordered() []*winstate.State {
	out := make([]*winstate.State, 0, len(s.candidates))
	for _, st := range s.candidates {
		out = append(out, st)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Arrival > out[j].Arrival; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Observe feeds an observed size for one window. An overshoot records the
// observed size as the window's learned minimum and asks for one retry;
// a second overshoot fails the whole negotiation.
func (s *Session) Observe(id platform.WindowID, observed winstate.Size) Outcome {
	if !s.pending[id] {
		return OutcomeIgnored
	}
	target := s.targets[id]
	st := s.candidates[id]

	if observed.Width <= target.Width+confirmSlack {
		// Reaching a size below a recorded learned minimum proves the
		// hint stale.
		if !st.LearnedMin.IsZero() && observed.Width < st.LearnedMin.Width {
			st.LearnedMin = winstate.Size{}
		}
		delete(s.pending, id)
		st.Negotiation = winstate.Negotiation{}
		st.ConstrainedByMosaic = true
		if len(s.pending) == 0 {
			return OutcomeComplete
		}
		return OutcomeProgress
	}

	// Clamped above the target: the client enforces a hard minimum.
	st.LearnedMin = observed
	if !s.retried[id] {
		s.retried[id] = true
		return OutcomeRetry
	}
	return OutcomeFailed
}

// Abort clears negotiation flags on every candidate. Used when a window
// moves or dies mid-negotiation.
func (s *Session) Abort() {
	for _, st := range s.candidates {
		if st.Negotiation.Kind == winstate.NegotiationShrinking {
			st.Negotiation = winstate.Negotiation{}
		}
	}
	s.pending = map[platform.WindowID]bool{}
}

// Done reports whether no candidate is still pending.
func (s *Session) Done() bool { return len(s.pending) == 0 }

// Involves reports whether id is one of the session's candidates.
func (s *Session) Involves(id platform.WindowID) bool {
	_, ok := s.candidates[id]
	return ok
}

type sessionKey struct {
	desktop int
	monitor int
}

// Negotiator enforces at most one active Session per (desktop, monitor).
type Negotiator struct {
	sessions map[sessionKey]*Session
}

func NewNegotiator() *Negotiator {
	return &Negotiator{sessions: make(map[sessionKey]*Session)}
}

// Active returns the running session for the pair, if any.
func (n *Negotiator) Active(desktop, monitor int) (*Session, bool) {
	s, ok := n.sessions[sessionKey{desktop, monitor}]
	return s, ok
}

// End forgets the session for the pair.
func (n *Negotiator) End(desktop, monitor int) {
	delete(n.sessions, sessionKey{desktop, monitor})
}

// Begin plans a shrink negotiation that makes room for incoming among
// peers. It classifies windows small/medium/large by area fraction of the
// work area, shrinks medium and large candidates (the incoming window
// included) proportionally toward the floor ratio, and verifies the
// projected layout before committing. Returns false when another session
// holds the pair, when nothing needs shrinking, or when no legal shrink
// plan covers the deficit.
func (n *Negotiator) Begin(workArea platform.Rect, peers []*winstate.State, incoming *winstate.State, opts Options, overrideSize *winstate.Size) (*Session, bool) {
	key := sessionKey{incoming.Desktop, incoming.Monitor}
	if _, busy := n.sessions[key]; busy {
		return nil, false
	}

	all, overrides := withIncoming(peers, incoming, overrideSize)
	targets, candidates, ok := planFit(workArea, all, opts, overrides)
	if !ok {
		return nil, false
	}

	session := &Session{
		Desktop:    incoming.Desktop,
		Monitor:    incoming.Monitor,
		Incoming:   incoming.ID,
		targets:    targets,
		pending:    make(map[platform.WindowID]bool, len(targets)),
		retried:    make(map[platform.WindowID]bool),
		candidates: make(map[platform.WindowID]*winstate.State, len(targets)),
	}
	for _, st := range candidates {
		if _, ok := targets[st.ID]; !ok {
			continue
		}
		session.pending[st.ID] = true
		session.candidates[st.ID] = st
		st.Negotiation = winstate.Negotiation{Kind: winstate.NegotiationShrinking, Target: targets[st.ID]}
	}
	n.sessions[key] = session
	return session, true
}

// withIncoming appends incoming to peers, deduplicated, with its optional
// size override.
func withIncoming(peers []*winstate.State, incoming *winstate.State, overrideSize *winstate.Size) ([]*winstate.State, map[platform.WindowID]winstate.Size) {
	all := make([]*winstate.State, 0, len(peers)+1)
	for _, p := range peers {
		if p.ID == incoming.ID {
			continue
		}
		all = append(all, p)
	}
	all = append(all, incoming)

	var overrides map[platform.WindowID]winstate.Size
	if overrideSize != nil {
		overrides = map[platform.WindowID]winstate.Size{incoming.ID: *overrideSize}
	}
	return all, overrides
}

// planFit computes shrink targets covering the width deficit, verified end
// to end against the work area. Pure: no state is touched, so callers can
// probe feasibility without committing to a session.
func planFit(workArea platform.Rect, all []*winstate.State, opts Options, overrides map[platform.WindowID]winstate.Size) (map[platform.WindowID]winstate.Size, []*winstate.State, bool) {
	layout := ComputeLayout(workArea, all, opts, overrides)
	deficit := widthOverflow(layout, workArea, opts.Spacing)
	if deficit <= 0 {
		return nil, nil, false
	}

	candidates := classifyShrinkable(workArea, all, opts, overrides)
	if len(candidates) == 0 {
		return nil, nil, false
	}

	// First plan honors learned minimums; a second pass re-validates the
	// hints by planning without them.
	maxHeight := workArea.Height - 2*opts.Spacing
	targets, ok := planShrink(candidates, deficit, opts, overrides, true, maxHeight)
	if !ok {
		targets, ok = planShrink(candidates, deficit, opts, overrides, false, maxHeight)
	}
	if !ok {
		return nil, nil, false
	}

	// Verify the projected layout end to end.
	projected := make(map[platform.WindowID]winstate.Size, len(all))
	for id, sz := range overrides {
		projected[id] = sz
	}
	for id, sz := range targets {
		projected[id] = sz
	}
	check := ComputeLayout(workArea, all, opts, projected)
	if !check.FitsWithin(workArea) || !check.MeetsMinimum(opts.RelaxedMinWidth, opts.RelaxedMinHeight) || check.Overlapping() {
		return nil, nil, false
	}
	return targets, candidates, true
}

// CanFitWithResize reports whether a shrink negotiation could admit
// incoming among peers, without starting one.
func CanFitWithResize(workArea platform.Rect, peers []*winstate.State, incoming *winstate.State, opts Options, overrideSize *winstate.Size) bool {
	all, overrides := withIncoming(peers, incoming, overrideSize)
	_, _, ok := planFit(workArea, all, opts, overrides)
	return ok
}

// widthOverflow measures how far the layout's right edge, trailing spacing
// included, extends past the work area.
func widthOverflow(l Layout, workArea platform.Rect, spacing int) int {
	right := workArea.X
	for _, p := range l.Placements {
		if edge := p.Rect.X + p.Rect.Width; edge > right {
			right = edge
		}
	}
	return right + spacing - (workArea.X + workArea.Width)
}

// classifyShrinkable keeps medium and large windows: small windows (below
// the small area fraction) are never shrunk, and windows already busy in a
// negotiation or excluded from tiling are off limits.
func classifyShrinkable(workArea platform.Rect, all []*winstate.State, opts Options, overrides map[platform.WindowID]winstate.Size) []*winstate.State {
	workAreaArea := float64(workArea.Width) * float64(workArea.Height)
	if workAreaArea <= 0 {
		return nil
	}
	var out []*winstate.State
	for _, st := range all {
		if st.Excluded || st.InNegotiation() {
			continue
		}
		w, h := sizeOf(st, overrides)
		fraction := float64(w) * float64(h) / workAreaArea
		if fraction < opts.SmallFraction {
			continue
		}
		out = append(out, st)
	}
	return out
}

// planShrink distributes the width deficit across candidates proportionally
// to their shrink capacity. Each candidate's floor is the larger of the
// floor-ratio fraction of its current width and the configured minimum;
// honorLearned additionally raises the floor to a recorded learned minimum.
// Heights taller than maxHeight are clamped so a window that fills the
// screen (a fresh unmaximize, say) can be negotiated back into a row.
func planShrink(candidates []*winstate.State, deficit int, opts Options, overrides map[platform.WindowID]winstate.Size, honorLearned bool, maxHeight int) (map[platform.WindowID]winstate.Size, bool) {
	type slot struct {
		st       *winstate.State
		width    int
		height   int
		floor    int
		capacity int
	}

	caps := make([]slot, 0, len(candidates))
	total := 0
	for _, st := range candidates {
		w, h := sizeOf(st, overrides)
		if maxHeight > 0 && h > maxHeight {
			h = maxHeight
		}
		floor := opts.MinWidth
		if f := int(float64(w) * opts.FloorRatio); f > floor {
			floor = f
		}
		if honorLearned && !st.LearnedMin.IsZero() && st.LearnedMin.Width > floor {
			floor = st.LearnedMin.Width
		}
		capacity := w - floor
		if capacity <= 0 {
			continue
		}
		caps = append(caps, slot{st: st, width: w, height: h, floor: floor, capacity: capacity})
		total += capacity
	}
	if total < deficit {
		return nil, false
	}

	targets := make(map[platform.WindowID]winstate.Size, len(caps))
	remaining := deficit
	for i, c := range caps {
		share := deficit * c.capacity / total
		if i == len(caps)-1 {
			share = remaining
		}
		if share > c.capacity {
			share = c.capacity
		}
		remaining -= share
		targets[c.st.ID] = winstate.Size{Width: c.width - share, Height: c.height}
	}
	// Rounding left a remainder: take it greedily from whoever still has
	// headroom.
	for remaining > 0 {
		progress := false
		for _, c := range caps {
			if remaining == 0 {
				break
			}
			t := targets[c.st.ID]
			if t.Width > c.floor {
				t.Width--
				targets[c.st.ID] = t
				remaining--
				progress = true
			}
		}
		if !progress {
			return nil, false
		}
	}
	return targets, true
}
