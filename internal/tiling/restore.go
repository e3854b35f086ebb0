package tiling

import (
	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// RestoreSizes is the reverse smart-resize: when space frees up, grow
// previously shrunk windows back toward their preferred sizes, bounded by
// the freed amount. A window that was never constrained by the packer, or
// has no recorded preferred size, is left alone; nothing ever grows past
// its preferred size. The plan is validated against the work area before
// any flag is touched.
func RestoreSizes(workArea platform.Rect, remaining []*winstate.State, opts Options, freedWidth, freedHeight int) []ResizeRequest {
	type grant struct {
		st     *winstate.State
		target winstate.Size
		full   bool
	}

	type want struct {
		st    *winstate.State
		growW int
		growH int
	}

	var wants []want
	totalW := 0
	for _, st := range remaining {
		if !st.ConstrainedByMosaic || st.PreferredSize.IsZero() {
			continue
		}
		if st.Excluded || st.InNegotiation() || st.Zone != edgezone.ZoneNone {
			continue
		}
		growW := st.PreferredSize.Width - st.Frame.Width
		growH := st.PreferredSize.Height - st.Frame.Height
		if growW < 0 {
			growW = 0
		}
		if growH < 0 {
			growH = 0
		}
		if growW == 0 && growH == 0 {
			continue
		}
		wants = append(wants, want{st: st, growW: growW, growH: growH})
		totalW += growW
	}
	if len(wants) == 0 {
		return nil
	}

	// Distribute the freed width proportionally to how much each window
	// wants back; height is granted per window up to the freed amount.
	var grants []grant
	budgetW := freedWidth
	for _, w := range wants {
		grantW := w.growW
		if totalW > freedWidth {
			grantW = freedWidth * w.growW / totalW
		}
		if grantW > budgetW {
			grantW = budgetW
		}
		budgetW -= grantW

		grantH := w.growH
		if grantH > freedHeight {
			grantH = freedHeight
		}
		if grantW == 0 && grantH == 0 {
			continue
		}

		target := winstate.Size{
			Width:  w.st.Frame.Width + grantW,
			Height: w.st.Frame.Height + grantH,
		}
		full := false
		if target.Width >= w.st.PreferredSize.Width && target.Height >= w.st.PreferredSize.Height {
			target = w.st.PreferredSize
			full = true
		}
		grants = append(grants, grant{st: w.st, target: target, full: full})
	}
	if len(grants) == 0 {
		return nil
	}

	// A grow plan must still produce a legal layout; otherwise keep the
	// current sizes and leave every flag alone.
	projected := make(map[platform.WindowID]winstate.Size, len(grants))
	for _, g := range grants {
		projected[g.st.ID] = g.target
	}
	check := ComputeLayout(workArea, remaining, opts, projected)
	if !check.FitsWithin(workArea) || check.Overlapping() {
		return nil
	}

	requests := make([]ResizeRequest, 0, len(grants))
	for _, g := range grants {
		g.st.Negotiation = winstate.Negotiation{Kind: winstate.NegotiationGrowing}
		if g.full {
			g.st.ConstrainedByMosaic = false
		}
		requests = append(requests, ResizeRequest{ID: g.st.ID, Target: g.target})
	}
	return requests
}
