package tiling

import "github.com/rivenirvana/MosaicWM-sub002/internal/winstate"

// SavePreferredSize captures the window's current size as its sticky home
// size. Suppressed while any transition is in flight so a transient giant
// frame (mid-unmaximize, mid-negotiation) is never captured.
func SavePreferredSize(st *winstate.State) {
	if st.InTransition() {
		return
	}
	st.PreferredSize = winstate.Size{Width: st.Frame.Width, Height: st.Frame.Height}
}

// RecordFirstPlacement captures the home size only if none is recorded yet.
func RecordFirstPlacement(st *winstate.State) {
	if !st.PreferredSize.IsZero() {
		return
	}
	SavePreferredSize(st)
}
