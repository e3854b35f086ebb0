package winstate

import (
	"sort"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
)

// Removal records where a window was when it disappeared. The drag
// relocation heuristic compares this against a reappearance on another
// desktop.
type Removal struct {
	Desktop int
	Monitor int
	At      time.Time
}

// Store is the arena of live window states.
type Store struct {
	windows  map[platform.WindowID]*State
	removals map[platform.WindowID]Removal
	arrival  uint64
}

// NewStore creates an empty arena.
func NewStore() *Store {
	return &Store{
		windows:  make(map[platform.WindowID]*State),
		removals: make(map[platform.WindowID]Removal),
	}
}

// Ensure returns the state for id, creating it with defaults on first use.
func (st *Store) Ensure(id platform.WindowID) *State {
	if s, ok := st.windows[id]; ok {
		return s
	}
	st.arrival++
	s := &State{ID: id, Phase: PhaseArriving, Arrival: st.arrival}
	st.windows[id] = s
	return s
}

// Get returns the state for id if the window is live.
func (st *Store) Get(id platform.WindowID) (*State, bool) {
	s, ok := st.windows[id]
	return s, ok
}

// Remove drops the window, running its detach hooks and recording the
// removal for the relocation heuristic.
func (st *Store) Remove(id platform.WindowID) {
	s, ok := st.windows[id]
	if !ok {
		return
	}
	s.detachAll()
	st.removals[id] = Removal{Desktop: s.Desktop, Monitor: s.Monitor, At: time.Now()}
	delete(st.windows, id)
}

// RecentRemoval returns the removal record for id, if one exists.
func (st *Store) RecentRemoval(id platform.WindowID) (Removal, bool) {
	r, ok := st.removals[id]
	return r, ok
}

// ClearRemoval forgets a consumed removal record.
func (st *Store) ClearRemoval(id platform.WindowID) {
	delete(st.removals, id)
}

// PruneRemovals drops removal records older than maxAge.
func (st *Store) PruneRemovals(now time.Time, maxAge time.Duration) {
	for id, r := range st.removals {
		if now.Sub(r.At) > maxAge {
			delete(st.removals, id)
		}
	}
}

// ForDesktop returns the live windows on (desktop, monitor) in arrival
// order.
func (st *Store) ForDesktop(desktop, monitor int) []*State {
	var out []*State
	for _, s := range st.windows {
		if s.Desktop == desktop && s.Monitor == monitor {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Arrival < out[j].Arrival })
	return out
}

// All returns every live window in arrival order.
func (st *Store) All() []*State {
	out := make([]*State, 0, len(st.windows))
	for _, s := range st.windows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Arrival < out[j].Arrival })
	return out
}

// Len returns the number of live windows.
func (st *Store) Len() int { return len(st.windows) }
