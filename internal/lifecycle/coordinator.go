// Package lifecycle is the master state machine: it consumes window-system
// events, sequences the tiling engine and the edge-zone manager, and issues
// geometry commands back. Every method runs on the engine loop goroutine;
// nothing here is locked.
package lifecycle

import (
	"log/slog"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
	"github.com/rivenirvana/MosaicWM-sub002/internal/tiling"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

type deskMon struct {
	desktop int
	monitor int
}

// Coordinator owns all engine state. Constructed once, driven by HandleEvent
// posts from the daemon and by command calls from the IPC surface.
type Coordinator struct {
	backend platform.Backend
	loop    *sched.Loop
	cfg     *config.Config
	logger  *slog.Logger

	store *winstate.Store
	zones *edgezone.Registry
	neg   *tiling.Negotiator
	cache *tiling.Cache
	opens *tiling.OpenQueue

	opts tiling.Options

	// tilingLock prevents re-entrant layout evaluation per desktop while
	// one convergence is in flight.
	tilingLock map[deskMon]bool

	retileDeb map[deskMon]*sched.Debouncer
	settleDeb map[platform.WindowID]*sched.Debouncer

	// lastShrink guards against shrink/grow oscillation: a reverse smart
	// resize is suppressed for the resize grace period after a forward one.
	lastShrink map[deskMon]time.Time

	disabled map[int]bool
}

// New creates a coordinator. The loop must already be running when events
// start flowing.
func New(backend platform.Backend, loop *sched.Loop, cfg *config.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		backend:    backend,
		loop:       loop,
		cfg:        cfg,
		logger:     logger,
		store:      winstate.NewStore(),
		zones:      edgezone.NewRegistry(),
		neg:        tiling.NewNegotiator(),
		cache:      tiling.NewCache(),
		opens:      tiling.NewOpenQueue(),
		opts:       tiling.OptionsFromConfig(cfg),
		tilingLock: make(map[deskMon]bool),
		retileDeb:  make(map[deskMon]*sched.Debouncer),
		settleDeb:  make(map[platform.WindowID]*sched.Debouncer),
		lastShrink: make(map[deskMon]time.Time),
		disabled:   make(map[int]bool),
	}
	for _, ws := range cfg.DisabledWorkspaces {
		c.disabled[ws] = true
	}
	return c
}

// SetConfig swaps the live configuration. Must run on the loop.
func (c *Coordinator) SetConfig(cfg *config.Config) {
	c.cfg = cfg
	c.opts = tiling.OptionsFromConfig(cfg)
	for _, ws := range cfg.DisabledWorkspaces {
		c.disabled[ws] = true
	}
	c.cache.InvalidateAll()
}

// Store exposes the window arena to the sibling coordinators.
func (c *Coordinator) Store() *winstate.Store { return c.store }

// Zones exposes the edge-zone occupancy registry.
func (c *Coordinator) Zones() *edgezone.Registry { return c.zones }

// Options returns the current layout options.
func (c *Coordinator) Options() tiling.Options { return c.opts }

// Config returns the live configuration.
func (c *Coordinator) Config() *config.Config { return c.cfg }

// Backend returns the window-system backend.
func (c *Coordinator) Backend() platform.Backend { return c.backend }

// Loop returns the engine loop.
func (c *Coordinator) Loop() *sched.Loop { return c.loop }

// WorkspaceEnabled reports whether the engine manages the desktop.
func (c *Coordinator) WorkspaceEnabled(desktop int) bool {
	return !c.disabled[desktop]
}

// SetWorkspaceEnabled flips management for one desktop. Re-enabling retiles
// it immediately.
func (c *Coordinator) SetWorkspaceEnabled(desktop int, enabled bool) {
	if enabled {
		delete(c.disabled, desktop)
		c.Retile(desktop, 0)
		return
	}
	c.disabled[desktop] = true
}

// HandleEvent dispatches one backend event. Grab events belong to the drag
// and resize coordinators; the daemon routes them there.
func (c *Coordinator) HandleEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventWindowCreated:
		c.onCreated(ev)
	case platform.EventWindowDestroyed:
		c.onDestroyed(ev.Window)
	case platform.EventGeometryChanged:
		c.OnGeometry(ev.Window, ev.Bounds)
	case platform.EventDesktopChanged:
		c.onDesktopChanged(ev.Window, ev.Desktop)
	case platform.EventStateChanged:
		c.onStateChanged(ev.Window, ev.States)
	}
}

// onCreated starts a new window's arrival: wait for the frame to become
// valid (bounded), then classify.
func (c *Coordinator) onCreated(ev platform.Event) {
	id := ev.Window
	st := c.store.Ensure(id)
	st.Desktop = ev.Desktop
	st.Frame = ev.Bounds
	st.Monitor = c.monitorFor(ev.Bounds)
	st.Phase = winstate.PhaseGeometryPending

	// A window that disappeared moments ago and reappears on another
	// desktop was dragged there, not closed and reopened.
	if rem, ok := c.store.RecentRemoval(id); ok {
		c.store.ClearRemoval(id)
		if time.Since(rem.At) <= c.cfg.RelocationWindow() && rem.Desktop != st.Desktop {
			c.logger.Debug("drag relocation detected", "window", id, "from", rem.Desktop, "to", st.Desktop)
			c.reverseRestore(deskMon{rem.Desktop, rem.Monitor}, st.Frame.Width, st.Frame.Height)
		}
	}

	c.loop.Poll(c.cfg.GeometryPollInterval(), c.cfg.GeometryPollTimeout(),
		func() bool {
			cur, live := c.store.Get(id)
			if !live {
				return true
			}
			g, err := c.backend.WindowGeometry(id)
			if err != nil || g.Width < 2 || g.Height < 2 {
				return false
			}
			cur.Frame = g
			cur.Monitor = c.monitorFor(g)
			c.classify(cur)
			return true
		},
		func() {
			// The frame never became valid; classify with what we have
			// rather than leaking an unmanaged window.
			if cur, live := c.store.Get(id); live && cur.Phase == winstate.PhaseGeometryPending {
				c.logger.Warn("geometry never settled, classifying anyway", "window", id)
				c.classify(cur)
			}
		})
}

// onDestroyed tears a window down: abort any negotiation it was part of,
// release its zone, then give the freed space back.
func (c *Coordinator) onDestroyed(id platform.WindowID) {
	st, ok := c.store.Get(id)
	if !ok {
		c.store.ClearRemoval(id)
		return
	}
	key := deskMon{st.Desktop, st.Monitor}

	var retry platform.WindowID
	if session, active := c.neg.Active(key.desktop, key.monitor); active && session.Involves(id) {
		session.Abort()
		c.neg.End(key.desktop, key.monitor)
		if session.Incoming == id {
			c.opens.Done(key.desktop, key.monitor)
		} else {
			// A candidate died, not the incoming window; its pending
			// join is still the queue head and must be re-run, or the
			// queue stalls behind it forever.
			retry = session.Incoming
		}
	}
	c.opens.Drop(key.desktop, key.monitor, id)

	released := c.zones.Release(key.desktop, key.monitor, id)
	freedW, freedH := st.Frame.Width, st.Frame.Height
	c.store.Remove(id)
	if deb, ok := c.settleDeb[id]; ok {
		deb.Cancel()
		delete(c.settleDeb, id)
	}
	c.cache.Invalidate(key.desktop, key.monitor)

	if released != edgezone.ZoneNone {
		c.offerQuarterExpansion(key, released)
	} else {
		c.reverseRestore(key, freedW, freedH)
	}
	c.Retile(key.desktop, key.monitor)

	if retry != 0 {
		if incoming, live := c.store.Get(retry); live {
			c.fitPipeline(incoming)
		}
	}
}

// onDesktopChanged handles a window moving between desktops: the vacated
// desktop gets its space back, the destination runs the arrival pipeline.
func (c *Coordinator) onDesktopChanged(id platform.WindowID, desktop int) {
	st, ok := c.store.Get(id)
	if !ok || st.Desktop == desktop {
		return
	}
	from := deskMon{st.Desktop, st.Monitor}

	var retry platform.WindowID
	if session, active := c.neg.Active(from.desktop, from.monitor); active && session.Involves(id) {
		session.Abort()
		c.neg.End(from.desktop, from.monitor)
		if session.Incoming == id {
			c.opens.Done(from.desktop, from.monitor)
		} else {
			// A candidate left mid-negotiation; re-run the incoming
			// window's pending join against the space it vacated.
			retry = session.Incoming
		}
	}
	if z := c.zones.Release(from.desktop, from.monitor, id); z != edgezone.ZoneNone {
		st.Zone = edgezone.ZoneNone
		c.offerQuarterExpansion(from, z)
	}
	c.cache.Invalidate(from.desktop, from.monitor)
	c.reverseRestore(from, st.Frame.Width, st.Frame.Height)
	c.Retile(from.desktop, from.monitor)

	st.Desktop = desktop

	// Only after the mover left the old desktop's peer set.
	if retry != 0 && retry != id {
		if incoming, live := c.store.Get(retry); live {
			c.fitPipeline(incoming)
		}
	}

	if st.Sacred.Kind == winstate.SacredNone && !st.Excluded {
		c.enqueueJoin(st)
	}
}

// monitorFor maps a frame to the display containing its center.
func (c *Coordinator) monitorFor(bounds platform.Rect) int {
	displays, err := c.backend.Displays()
	if err != nil || len(displays) == 0 {
		return 0
	}
	cx, cy := bounds.CenterX(), bounds.CenterY()
	for _, d := range displays {
		if d.Bounds.Contains(cx, cy) {
			return d.ID
		}
	}
	return displays[0].ID
}

// WorkArea returns the usable rectangle of one display.
func (c *Coordinator) WorkArea(monitor int) (platform.Rect, bool) {
	return c.workAreaOf(monitor)
}

// workAreaOf returns the usable rectangle of one display.
func (c *Coordinator) workAreaOf(monitor int) (platform.Rect, bool) {
	displays, err := c.backend.Displays()
	if err != nil {
		return platform.Rect{}, false
	}
	for _, d := range displays {
		if d.ID == monitor {
			return d.Usable, true
		}
	}
	return platform.Rect{}, false
}

// retileDebouncer returns the per-pair debouncer, creating it on first use.
func (c *Coordinator) retileDebouncer(key deskMon) *sched.Debouncer {
	deb, ok := c.retileDeb[key]
	if !ok {
		deb = &sched.Debouncer{Loop: c.loop, Delay: c.cfg.RetileDebounce()}
		c.retileDeb[key] = deb
	}
	return deb
}

// settleDebouncer returns the per-window stable-size debouncer.
func (c *Coordinator) settleDebouncer(id platform.WindowID) *sched.Debouncer {
	deb, ok := c.settleDeb[id]
	if !ok {
		deb = &sched.Debouncer{Loop: c.loop, Delay: c.cfg.SettleGrace()}
		c.settleDeb[id] = deb
	}
	return deb
}
