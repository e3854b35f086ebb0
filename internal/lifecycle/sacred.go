package lifecycle

import (
	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/tiling"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// classify routes a window whose frame just became valid: excluded windows
// are left alone, sacred windows stay or migrate, an edge-tiled sibling is
// tried for direct pairing, everything else joins the mosaic.
func (c *Coordinator) classify(st *winstate.State) {
	states, err := c.backend.WindowStates(st.ID)
	if err != nil {
		c.logger.Warn("state query failed, treating as plain window", "window", st.ID, "error", err)
	}
	st.Excluded = states.Excluded()
	if st.Excluded {
		st.Phase = winstate.PhaseSettled
		return
	}

	if states.Sacred() {
		c.enterSacred(st)
		return
	}

	if c.pairWithTiledSibling(st) {
		return
	}
	c.enqueueJoin(st)
}

// enterSacred isolates a maximized/fullscreen window: alone it stays put;
// crowded it migrates to a fresh desktop, remembering where it came from so
// the exit protocol can undo the move.
func (c *Coordinator) enterSacred(st *winstate.State) {
	key := deskMon{st.Desktop, st.Monitor}
	origin := st.Desktop
	st.Phase = winstate.PhaseSettled

	crowded := false
	for _, other := range c.store.ForDesktop(key.desktop, key.monitor) {
		if other.ID != st.ID && !other.Excluded {
			crowded = true
			break
		}
	}
	if !crowded {
		st.Sacred = winstate.Sacred{Kind: winstate.SacredActive, Origin: origin}
		return
	}

	dest := c.freshDesktop(st)
	st.Sacred = winstate.Sacred{Kind: winstate.SacredActive, Origin: origin}
	if dest == origin {
		return
	}
	c.logger.Info("sacred window isolated", "window", st.ID, "from", origin, "to", dest)
	if err := c.backend.SetWindowDesktop(st.ID, dest); err != nil {
		c.logger.Warn("sacred migration failed", "window", st.ID, "error", err)
		return
	}
	st.Desktop = dest
	if err := c.backend.SwitchDesktop(dest); err == nil {
		c.backend.Activate(st.ID)
	}
	c.cache.Invalidate(key.desktop, key.monitor)
	c.reverseRestore(key, st.Frame.Width, st.Frame.Height)
	c.Retile(key.desktop, key.monitor)
}

// pairWithTiledSibling tries the fast path for an arrival on a desktop with
// exactly one edge-tiled side: claim the opposite half directly instead of
// running the fit pipeline.
func (c *Coordinator) pairWithTiledSibling(st *winstate.State) bool {
	key := deskMon{st.Desktop, st.Monitor}
	tiles := c.zones.Tiled(key.desktop, key.monitor)
	if len(tiles) != 1 {
		return false
	}
	for zone := range tiles {
		var candidate edgezone.Zone
		switch zone {
		case edgezone.ZoneLeftHalf, edgezone.ZoneLeftFull:
			candidate = edgezone.ZoneRightHalf
		case edgezone.ZoneRightHalf, edgezone.ZoneRightFull:
			candidate = edgezone.ZoneLeftHalf
		default:
			return false
		}
		return c.ApplyTile(st, candidate)
	}
	return false
}

// onStateChanged reacts to maximize/fullscreen/always-on-top/sticky
// toggles.
func (c *Coordinator) onStateChanged(id platform.WindowID, states platform.StateFlags) {
	st, ok := c.store.Get(id)
	if !ok {
		return
	}
	key := deskMon{st.Desktop, st.Monitor}

	wasExcluded := st.Excluded
	st.Excluded = states.Excluded()
	if !wasExcluded && st.Excluded {
		// Opted out: retile without it and hand its space to neighbors.
		c.ReleaseTile(st)
		c.cache.Invalidate(key.desktop, key.monitor)
		c.reverseRestore(key, st.Frame.Width, st.Frame.Height)
		c.Retile(key.desktop, key.monitor)
		return
	}
	if wasExcluded && !st.Excluded {
		// Opted back in: a new arrival as far as the layout is concerned.
		st.Phase = winstate.PhaseArriving
		c.classify(st)
		return
	}

	sacredNow := states.Sacred()
	switch {
	case sacredNow && st.Sacred.Kind == winstate.SacredNone:
		c.ReleaseTile(st)
		c.enterSacred(st)
	case !sacredNow && st.Sacred.Kind == winstate.SacredActive:
		c.sacredStage1(st)
	}
}

// sacredStage1 begins the two-stage exit from maximized/fullscreen: mark
// the deferred move and retile in place. The cross-desktop return waits for
// the window's own resize animation to settle; racing it loses.
func (c *Coordinator) sacredStage1(st *winstate.State) {
	origin := st.Sacred.Origin
	st.Sacred = winstate.Sacred{Kind: winstate.SacredRestoring, Origin: origin}
	key := deskMon{st.Desktop, st.Monitor}
	c.cache.Invalidate(key.desktop, key.monitor)
	c.Retile(key.desktop, key.monitor)
	// If no size signal ever arrives the frame is already stable.
	c.settleDebouncer(st.ID).Trigger(func() { c.sacredStage2(st.ID) })
}

// sacredStage2 completes the exit once the in-place resize settled: move
// back to the origin desktop, activate it, and tile after the switch
// animation.
func (c *Coordinator) sacredStage2(id platform.WindowID) {
	st, ok := c.store.Get(id)
	if !ok || st.Sacred.Kind != winstate.SacredRestoring {
		return
	}
	origin := st.Sacred.Origin
	st.Sacred = winstate.Sacred{}
	st.Phase = winstate.PhaseSettled
	delete(c.settleDeb, id)

	if origin == st.Desktop {
		c.enqueueJoin(st)
		return
	}

	// Return only if the origin desktop can take the window back, either
	// directly at its pre-sacred size or through a shrink negotiation.
	// Otherwise it stays where it is. The gate needs a recorded natural
	// size: the still-maximized frame of a window that arrived sacred says
	// nothing about fit, so such a window returns unconditionally and the
	// origin's arrival pipeline sizes it.
	if size := st.PreferredSize; !size.IsZero() {
		originKey := deskMon{origin, st.Monitor}
		if workArea, has := c.packingArea(originKey); has && !workArea.Empty() {
			peers := c.mosaicPeers(originKey)
			if !tiling.CanFit(workArea, peers, st, c.opts, false, &size) &&
				!tiling.CanFitWithResize(workArea, peers, st, c.opts, &size) {
				c.logger.Debug("origin desktop full, staying", "window", id, "origin", origin)
				c.enqueueJoin(st)
				return
			}
		}
	}

	from := deskMon{st.Desktop, st.Monitor}
	if err := c.backend.SetWindowDesktop(id, origin); err != nil {
		c.logger.Warn("sacred return failed, staying", "window", id, "error", err)
		c.enqueueJoin(st)
		return
	}
	st.Desktop = origin
	if err := c.backend.SwitchDesktop(origin); err == nil {
		c.backend.Activate(id)
	}
	c.Retile(from.desktop, from.monitor)
	c.loop.After(c.cfg.WorkspaceSwitchDelay(), func() {
		cur, live := c.store.Get(id)
		if !live {
			return
		}
		c.enqueueJoin(cur)
	})
}
