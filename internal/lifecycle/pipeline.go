package lifecycle

import (
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/tiling"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// mosaicPeers returns the windows participating in mosaic packing on the
// pair: settled, not sacred, not excluded, not edge-tiled.
func (c *Coordinator) mosaicPeers(key deskMon) []*winstate.State {
	var out []*winstate.State
	for _, st := range c.store.ForDesktop(key.desktop, key.monitor) {
		if st.Excluded || st.Sacred.Kind != winstate.SacredNone || st.Zone != edgezone.ZoneNone {
			continue
		}
		out = append(out, st)
	}
	return out
}

// packingArea is the work area minus the columns held by edge-tiled
// windows, so edge tiling and mosaic tiling coexist.
func (c *Coordinator) packingArea(key deskMon) (platform.Rect, bool) {
	workArea, ok := c.workAreaOf(key.monitor)
	if !ok {
		return platform.Rect{}, false
	}
	var occupied []platform.Rect
	for zone := range c.zones.Tiled(key.desktop, key.monitor) {
		occupied = append(occupied, edgezone.ZoneRect(zone, workArea, c.opts.Spacing))
	}
	return edgezone.RemainingSpace(workArea, occupied, c.opts.Spacing), true
}

// enqueueJoin funnels an arrival through the per-pair FIFO so overlapping
// arrivals apply in order instead of racing.
func (c *Coordinator) enqueueJoin(st *winstate.State) {
	key := deskMon{st.Desktop, st.Monitor}
	if c.disabled[key.desktop] {
		st.Phase = winstate.PhaseSettled
		return
	}
	id := st.ID
	c.opens.Enqueue(key.desktop, key.monitor, id, func() {
		cur, live := c.store.Get(id)
		if !live {
			c.opens.Done(key.desktop, key.monitor)
			return
		}
		c.fitPipeline(cur)
	})
}

// fitPipeline runs the cascade: direct fit, negotiated shrink, overflow.
// The engine never forces an invalid layout; overflow is an outcome, not an
// error.
func (c *Coordinator) fitPipeline(st *winstate.State) {
	key := deskMon{st.Desktop, st.Monitor}
	workArea, ok := c.packingArea(key)
	if !ok || workArea.Empty() {
		c.overflow(st)
		c.opens.Done(key.desktop, key.monitor)
		return
	}
	peers := c.mosaicPeers(key)

	if tiling.CanFit(workArea, peers, st, c.opts, false, nil) {
		st.Phase = winstate.PhaseSettled
		tiling.RecordFirstPlacement(st)
		c.Retile(key.desktop, key.monitor)
		c.opens.Done(key.desktop, key.monitor)
		return
	}

	if session, started := c.neg.Begin(workArea, peers, st, c.opts, nil); started {
		c.lastShrink[key] = time.Now()
		c.logger.Debug("smart resize started", "window", st.ID, "candidates", len(session.Requests()))
		c.issueRequests(session.Requests())
		// Completion is confirmed from observed geometry in OnGeometry.
		return
	}

	c.overflow(st)
	c.opens.Done(key.desktop, key.monitor)
}

// issueRequests sends the session's resize commands to the window system.
func (c *Coordinator) issueRequests(requests []tiling.ResizeRequest) {
	for _, r := range requests {
		cur, live := c.store.Get(r.ID)
		if !live {
			continue
		}
		bounds := cur.Frame
		bounds.Width = r.Target.Width
		bounds.Height = r.Target.Height
		if err := c.backend.MoveResize(r.ID, bounds, false); err != nil {
			c.logger.Warn("resize request failed", "window", r.ID, "error", err)
		}
	}
}

// OnGeometry folds an observed frame into the state machine. Exported so
// the resize coordinator can forward frames it intercepted.
func (c *Coordinator) OnGeometry(id platform.WindowID, bounds platform.Rect) {
	st, ok := c.store.Get(id)
	if !ok {
		return
	}
	st.Frame = bounds
	key := deskMon{st.Desktop, st.Monitor}
	c.cache.Invalidate(key.desktop, key.monitor)

	if session, active := c.neg.Active(key.desktop, key.monitor); active && session.Involves(id) {
		c.observeNegotiation(session, st, key)
		return
	}

	if st.Negotiation.Kind == winstate.NegotiationGrowing {
		st.Negotiation = winstate.Negotiation{}
		if !st.PreferredSize.IsZero() &&
			st.Frame.Width >= st.PreferredSize.Width && st.Frame.Height >= st.PreferredSize.Height {
			st.ConstrainedByMosaic = false
		}
		return
	}

	if st.Sacred.Kind == winstate.SacredRestoring {
		// Stage 2 fires on the next stable size, not on every tick.
		c.settleDebouncer(id).Trigger(func() { c.sacredStage2(id) })
		return
	}

	if st.SkipNextRetile {
		st.SkipNextRetile = false
		return
	}
	if st.Phase != winstate.PhaseSettled || st.Zone != edgezone.ZoneNone {
		return
	}
	c.retileDebouncer(key).Trigger(func() { c.Retile(key.desktop, key.monitor) })
}

// observeNegotiation feeds one observed size to the active session and acts
// on the outcome.
func (c *Coordinator) observeNegotiation(session *tiling.Session, st *winstate.State, key deskMon) {
	observed := winstate.Size{Width: st.Frame.Width, Height: st.Frame.Height}
	switch session.Observe(st.ID, observed) {
	case tiling.OutcomeComplete:
		c.neg.End(key.desktop, key.monitor)
		if incoming, live := c.store.Get(session.Incoming); live {
			incoming.Phase = winstate.PhaseSettled
			tiling.RecordFirstPlacement(incoming)
		}
		c.Retile(key.desktop, key.monitor)
		c.opens.Done(key.desktop, key.monitor)
	case tiling.OutcomeRetry:
		// The client clamped above the target once; ask again.
		if req, ok := session.Request(st.ID); ok {
			c.issueRequests([]tiling.ResizeRequest{req})
		}
	case tiling.OutcomeFailed:
		c.logger.Debug("smart resize failed, overflowing", "window", session.Incoming, "clamped", st.ID)
		session.Abort()
		c.neg.End(key.desktop, key.monitor)
		if incoming, live := c.store.Get(session.Incoming); live {
			c.overflow(incoming)
		}
		c.opens.Done(key.desktop, key.monitor)
	}
}

// overflow relocates a window that cannot fit to a fresh desktop, the
// guaranteed-safe fallback. A grace period suppresses repeated attempts on
// the same window.
func (c *Coordinator) overflow(st *winstate.State) {
	now := time.Now()
	if st.Overflowed(now) {
		return
	}
	// A window already alone on its desktop is in the safe fallback;
	// moving it to yet another desktop would walk the desktops forever.
	alone := true
	for _, other := range c.store.All() {
		if other.ID != st.ID && other.Desktop == st.Desktop && !other.Excluded {
			alone = false
			break
		}
	}
	if alone {
		st.Phase = winstate.PhaseSettled
		return
	}
	dest := c.freshDesktop(st)
	if dest == st.Desktop {
		st.Phase = winstate.PhaseSettled
		return
	}
	st.OverflowedUntil = now.Add(c.cfg.OverflowGrace())
	st.Phase = winstate.PhaseSettled
	c.logger.Info("window overflowed to fresh desktop", "window", st.ID, "desktop", dest)
	if err := c.backend.SetWindowDesktop(st.ID, dest); err != nil {
		c.logger.Warn("overflow move failed", "window", st.ID, "error", err)
		return
	}
	from := deskMon{st.Desktop, st.Monitor}
	st.Desktop = dest
	c.Retile(from.desktop, from.monitor)
	c.loop.After(c.cfg.WorkspaceSwitchDelay(), func() {
		c.Retile(dest, from.monitor)
	})
}

// freshDesktop picks the first enabled desktop with no managed windows, or
// one past the current count (the window system grows on demand).
func (c *Coordinator) freshDesktop(st *winstate.State) int {
	count, err := c.backend.DesktopCount()
	if err != nil {
		return st.Desktop
	}
	occupied := make(map[int]int)
	for _, other := range c.store.All() {
		if other.ID == st.ID {
			continue
		}
		occupied[other.Desktop]++
	}
	for d := 0; d < count; d++ {
		if d == st.Desktop || c.disabled[d] {
			continue
		}
		if occupied[d] == 0 {
			return d
		}
	}
	return count
}

// Retile converges one (desktop, monitor) pair onto its computed layout.
// The per-pair lock prevents re-entrant evaluation while commands from this
// convergence are still being issued.
func (c *Coordinator) Retile(desktop, monitor int) {
	key := deskMon{desktop, monitor}
	if c.disabled[desktop] || c.tilingLock[key] {
		return
	}
	workArea, ok := c.packingArea(key)
	if !ok || workArea.Empty() {
		return
	}
	windows := c.mosaicPeers(key)
	settled := windows[:0]
	for _, st := range windows {
		if st.Phase != winstate.PhaseSettled || st.InNegotiation() {
			continue
		}
		settled = append(settled, st)
	}
	windows = settled
	if len(windows) == 0 {
		return
	}

	c.tilingLock[key] = true
	defer delete(c.tilingLock, key)

	fp := tiling.Fingerprint(workArea, windows, c.opts)
	layout, hit := c.cache.Get(desktop, monitor, fp)
	if !hit {
		layout = tiling.ComputeLayout(workArea, windows, c.opts, nil)
		c.cache.Put(desktop, monitor, fp, layout)
	}
	if !layout.FitsWithin(workArea) || layout.Overlapping() {
		// The current sizes cannot converge; leave the desktop alone
		// rather than issue an invalid arrangement.
		c.logger.Debug("layout does not fit, skipping retile", "desktop", desktop, "monitor", monitor)
		return
	}

	for _, st := range windows {
		rect, has := layout.Rect(st.ID)
		if !has || rect == st.Frame {
			continue
		}
		if err := c.backend.MoveResize(st.ID, rect, false); err != nil {
			c.logger.Warn("retile move failed", "window", st.ID, "error", err)
		}
	}
}

// reverseRestore grows previously shrunk windows back into freed space,
// unless a forward smart resize just ran (oscillation guard).
func (c *Coordinator) reverseRestore(key deskMon, freedWidth, freedHeight int) {
	if c.disabled[key.desktop] {
		return
	}
	if last, ok := c.lastShrink[key]; ok && time.Since(last) < c.cfg.ResizeGrace() {
		return
	}
	workArea, ok := c.packingArea(key)
	if !ok || workArea.Empty() {
		return
	}
	remaining := c.mosaicPeers(key)
	requests := tiling.RestoreSizes(workArea, remaining, c.opts, freedWidth, freedHeight)
	if len(requests) == 0 {
		return
	}
	c.logger.Debug("reverse smart resize", "desktop", key.desktop, "windows", len(requests))
	c.issueRequests(requests)
}

// offerQuarterExpansion grows a lone quarter into its side's full rectangle
// after the sibling quarter vacated.
func (c *Coordinator) offerQuarterExpansion(key deskMon, vacated edgezone.Zone) {
	id, full, ok := edgezone.QuarterExpansion(c.zones, key.desktop, key.monitor, vacated)
	if !ok {
		return
	}
	st, live := c.store.Get(id)
	if !live {
		return
	}
	workArea, has := c.workAreaOf(key.monitor)
	if !has {
		return
	}
	if !c.zones.Claim(key.desktop, key.monitor, full, id) {
		return
	}
	st.Zone = full
	rect := edgezone.ZoneRect(full, workArea, c.opts.Spacing)
	if err := c.backend.MoveResize(id, rect, false); err != nil {
		c.logger.Warn("quarter expansion failed", "window", id, "error", err)
	}
}

// ApplyTile moves a window into a zone and registers the occupancy. Used by
// the drag coordinator on release and by direct pairing on arrival.
func (c *Coordinator) ApplyTile(st *winstate.State, zone edgezone.Zone) bool {
	if st.Excluded || zone == edgezone.ZoneNone {
		return false
	}
	key := deskMon{st.Desktop, st.Monitor}
	workArea, ok := c.workAreaOf(key.monitor)
	if !ok {
		return false
	}
	if !c.zones.Claim(key.desktop, key.monitor, zone, st.ID) {
		return false
	}
	st.Zone = zone
	st.Phase = winstate.PhaseSettled
	// Keep the pre-tile size on record; dragging the window back out of
	// the zone restores it.
	tiling.RecordFirstPlacement(st)
	rect := edgezone.ZoneRect(zone, workArea, c.opts.Spacing)
	if err := c.backend.MoveResize(st.ID, rect, true); err != nil {
		c.logger.Warn("tile apply failed", "window", st.ID, "error", err)
	}
	c.cache.Invalidate(key.desktop, key.monitor)
	c.Retile(key.desktop, key.monitor)
	return true
}

// OverflowWindow relocates one window through the standard overflow path.
// Used by the drag coordinator to migrate ghosted windows once a tile is
// confirmed.
func (c *Coordinator) OverflowWindow(id platform.WindowID) {
	if st, ok := c.store.Get(id); ok {
		c.overflow(st)
	}
}

// JoinLayout re-enters a window into the fit pipeline, e.g. after a drag
// ended outside any zone.
func (c *Coordinator) JoinLayout(id platform.WindowID) {
	if st, ok := c.store.Get(id); ok && !st.Excluded && st.Sacred.Kind == winstate.SacredNone {
		c.enqueueJoin(st)
	}
}

// PackingArea exposes the mosaic packing region for one (desktop, monitor),
// the work area minus edge-tiled columns.
func (c *Coordinator) PackingArea(desktop, monitor int) (platform.Rect, bool) {
	return c.packingArea(deskMon{desktop, monitor})
}

// MosaicWindows exposes the mosaic participants for one (desktop, monitor).
func (c *Coordinator) MosaicWindows(desktop, monitor int) []*winstate.State {
	return c.mosaicPeers(deskMon{desktop, monitor})
}

// ReleaseTile drops a window's zone occupancy, offering the freed half to a
// lone sibling quarter.
func (c *Coordinator) ReleaseTile(st *winstate.State) {
	key := deskMon{st.Desktop, st.Monitor}
	released := c.zones.Release(key.desktop, key.monitor, st.ID)
	st.Zone = edgezone.ZoneNone
	if released != edgezone.ZoneNone {
		c.offerQuarterExpansion(key, released)
		c.cache.Invalidate(key.desktop, key.monitor)
	}
}
