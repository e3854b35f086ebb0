package lifecycle

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GeometryPollIntervalMS = 2
	cfg.GeometryPollTimeoutMS = 50
	cfg.RetileDebounceMS = 5
	cfg.SettleGraceMS = 15
	cfg.WorkspaceSwitchDelayMS = 5
	cfg.RelocationWindowMS = 300
	cfg.OverflowGraceMS = 100
	cfg.ResizeGraceMS = 30
	return cfg
}

// startEngine wires a headless backend to a coordinator on a live loop and
// pumps backend events into it, the way the daemon does.
func startEngine(t *testing.T, cfg *config.Config, h *platform.Headless) (*Coordinator, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(h, loop, cfg, logger)

	go loop.Run()
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-h.Events():
				loop.Post(func() { c.HandleEvent(ev) })
			case <-quit:
				return
			}
		}
	}()
	t.Cleanup(func() {
		close(quit)
		loop.Stop()
	})
	return c, loop
}

func waitUntil(t *testing.T, loop *sched.Loop, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		loop.Call(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never reached: %s", desc)
}

func TestArrivalDirectFit(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 900, Y: 60, Width: 600, Height: 400}})

	waitUntil(t, loop, "both windows settled", func() bool {
		a, aok := c.store.Get(1)
		b, bok := c.store.Get(2)
		return aok && bok &&
			a.Phase == winstate.PhaseSettled && b.Phase == winstate.PhaseSettled
	})
	waitUntil(t, loop, "windows tiled without overlap", func() bool {
		ga, _ := h.WindowGeometry(1)
		gb, _ := h.WindowGeometry(2)
		inside := func(r platform.Rect) bool {
			return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= 1920 && r.Y+r.Height <= 1080
		}
		return inside(ga) && inside(gb) && !ga.Overlaps(gb)
	})
}

// Work area 1920x1080, spacing 8: two 1000x800 windows cannot coexist until
// negotiation shrinks both to 948.
func TestSmartResizeAdmitsSecondWindow(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800}})
	waitUntil(t, loop, "first window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})

	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 1016, Y: 8, Width: 1000, Height: 800}})

	waitUntil(t, loop, "both shrunk to 948", func() bool {
		ga, _ := h.WindowGeometry(1)
		gb, _ := h.WindowGeometry(2)
		return ga.Width == 948 && gb.Width == 948
	})
	waitUntil(t, loop, "both on desktop 0 and constrained", func() bool {
		a, aok := c.store.Get(1)
		b, bok := c.store.Get(2)
		return aok && bok && a.Desktop == 0 && b.Desktop == 0 &&
			a.ConstrainedByMosaic && b.ConstrainedByMosaic &&
			!a.InNegotiation() && !b.InNegotiation()
	})
}

// A and B hold 95% floors near the full width: C cannot be admitted and
// must overflow to the empty desktop, leaving A and B untouched.
func TestOverflowWhenPeersAtFloor(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	cfg := testConfig()
	cfg.ShrinkFloorRatio = 0.95
	c, loop := startEngine(t, cfg, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 940, Height: 800}})
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 956, Y: 8, Width: 940, Height: 800}})
	waitUntil(t, loop, "pair settled", func() bool {
		a, aok := c.store.Get(1)
		b, bok := c.store.Get(2)
		return aok && bok && a.Phase == winstate.PhaseSettled && b.Phase == winstate.PhaseSettled
	})

	h.AddWindow(platform.Window{ID: 3, Bounds: platform.Rect{X: 400, Y: 300, Width: 800, Height: 600}})

	waitUntil(t, loop, "third window overflowed", func() bool {
		cw, ok := c.store.Get(3)
		return ok && cw.Desktop == 1 && cw.Phase == winstate.PhaseSettled
	})
	ga, _ := h.WindowGeometry(1)
	gb, _ := h.WindowGeometry(2)
	if ga.Width != 940 || gb.Width != 940 {
		t.Fatalf("failed negotiation must leave peers unchanged: %d, %d", ga.Width, gb.Width)
	}
}

func TestSacredCrowdedMigratesAndReturns(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 600, Height: 400}})
	waitUntil(t, loop, "plain window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})

	h.AddWindow(platform.Window{
		ID:     2,
		Bounds: platform.Rect{Width: 1920, Height: 1080},
		States: platform.StateFlags{Maximized: true},
	})

	waitUntil(t, loop, "sacred window isolated on a fresh desktop", func() bool {
		b, ok := c.store.Get(2)
		return ok && b.Desktop == 1 &&
			b.Sacred.Kind == winstate.SacredActive && b.Sacred.Origin == 0
	})

	// Unmaximize: stage 1 defers the move, stage 2 fires once the size is
	// stable and returns the window to its origin desktop.
	h.SetStates(2, platform.StateFlags{})

	waitUntil(t, loop, "window returned to origin desktop", func() bool {
		b, ok := c.store.Get(2)
		return ok && b.Desktop == 0 && b.Sacred.Kind == winstate.SacredNone
	})
	waitUntil(t, loop, "returned window rejoined the layout", func() bool {
		b, ok := c.store.Get(2)
		return ok && b.Phase == winstate.PhaseSettled
	})
}

func TestSacredAloneStaysPut(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{
		ID:     1,
		Bounds: platform.Rect{Width: 1920, Height: 1080},
		States: platform.StateFlags{Fullscreen: true},
	})

	waitUntil(t, loop, "lone sacred window stays", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Desktop == 0 && a.Sacred.Kind == winstate.SacredActive
	})
}

// Closing a shrunk window's neighbor frees space; the survivor grows back
// toward its preferred size, but only after the oscillation grace passed.
func TestDestroyTriggersReverseRestore(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800}})
	waitUntil(t, loop, "first window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled && !a.PreferredSize.IsZero()
	})
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 1016, Y: 8, Width: 1000, Height: 800}})
	waitUntil(t, loop, "both shrunk", func() bool {
		ga, _ := h.WindowGeometry(1)
		gb, _ := h.WindowGeometry(2)
		return ga.Width == 948 && gb.Width == 948
	})

	// Let the resize grace period lapse so the reverse resize is not
	// suppressed as oscillation.
	time.Sleep(50 * time.Millisecond)
	h.DestroyWindow(2)

	waitUntil(t, loop, "survivor grew back to its preferred width", func() bool {
		ga, _ := h.WindowGeometry(1)
		a, ok := c.store.Get(1)
		return ok && ga.Width == 1000 && !a.ConstrainedByMosaic
	})
}

func TestDisabledWorkspaceLeftAlone(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	cfg := testConfig()
	cfg.DisabledWorkspaces = []int{0}
	c, loop := startEngine(t, cfg, h)

	orig := platform.Rect{X: 333, Y: 222, Width: 600, Height: 400}
	h.AddWindow(platform.Window{ID: 1, Bounds: orig})

	waitUntil(t, loop, "window settled without management", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})
	g, _ := h.WindowGeometry(1)
	if g != orig {
		t.Fatalf("disabled workspace window must not be moved, got %+v", g)
	}

	enabled := false
	loop.Call(func() { enabled = c.WorkspaceEnabled(0) })
	if enabled {
		t.Fatalf("workspace 0 should report disabled")
	}
}

// The window system clamps window 1 at 980 via size hints: the engine
// records the learned minimum, retries once, fails, and overflows the
// incoming window instead of looping.
func TestClampedShrinkOverflowsIncoming(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800}})
	waitUntil(t, loop, "first window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})
	h.SetMinSize(1, 980, 100)

	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 1016, Y: 8, Width: 1000, Height: 800}})

	waitUntil(t, loop, "incoming window overflowed after the clamp", func() bool {
		b, ok := c.store.Get(2)
		return ok && b.Desktop == 1
	})
	waitUntil(t, loop, "clamp recorded as learned minimum", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.LearnedMin.Width == 980 && !a.InNegotiation()
	})
}

// startEngineManual runs the coordinator on a live loop but leaves backend
// notifications to the test, which forwards them selectively.
func startEngineManual(t *testing.T, cfg *config.Config, h *platform.Headless) (*Coordinator, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(h, loop, cfg, logger)
	go loop.Run()
	t.Cleanup(func() { loop.Stop() })
	return c, loop
}

// forwardKind drains backend notifications until one matching kind and
// window arrives, then delivers only that one.
func forwardKind(t *testing.T, loop *sched.Loop, c *Coordinator, h *platform.Headless, kind platform.EventKind, id platform.WindowID) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-h.Events():
			if ev.Kind == kind && ev.Window == id {
				loop.Call(func() { c.HandleEvent(ev) })
				return
			}
		case <-deadline:
			t.Fatalf("notification kind=%d for window %d never arrived", kind, id)
		}
	}
}

// A shrink candidate dying mid-negotiation must not strand the incoming
// window: the freed space admits it directly, and later arrivals on the
// same pair still get their turn.
func TestCandidateDeathMidNegotiationResolvesIncoming(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngineManual(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800}})
	forwardKind(t, loop, c, h, platform.EventWindowCreated, 1)
	waitUntil(t, loop, "first window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})

	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 900, Y: 8, Width: 1000, Height: 800}})
	forwardKind(t, loop, c, h, platform.EventWindowCreated, 2)
	waitUntil(t, loop, "shrink session started", func() bool {
		_, active := c.neg.Active(0, 0)
		return active
	})

	// The resize confirmations are never delivered: the session is still
	// pending when the candidate dies.
	h.DestroyWindow(1)
	forwardKind(t, loop, c, h, platform.EventWindowDestroyed, 1)

	waitUntil(t, loop, "incoming window settled after candidate death", func() bool {
		b, ok := c.store.Get(2)
		if !ok || b.Phase != winstate.PhaseSettled || b.Desktop != 0 {
			return false
		}
		_, active := c.neg.Active(0, 0)
		return !active
	})

	h.AddWindow(platform.Window{ID: 3, Bounds: platform.Rect{X: 100, Y: 400, Width: 400, Height: 300}})
	forwardKind(t, loop, c, h, platform.EventWindowCreated, 3)
	waitUntil(t, loop, "later arrival ran behind the resolved join", func() bool {
		d, ok := c.store.Get(3)
		return ok && d.Phase == winstate.PhaseSettled
	})
}

// A shrink candidate moved to another desktop mid-negotiation frees its
// space; the incoming window's pending join re-runs instead of stalling.
func TestCandidateMoveMidNegotiationResolvesIncoming(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngineManual(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800}})
	forwardKind(t, loop, c, h, platform.EventWindowCreated, 1)
	waitUntil(t, loop, "first window settled", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Phase == winstate.PhaseSettled
	})

	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 900, Y: 8, Width: 1000, Height: 800}})
	forwardKind(t, loop, c, h, platform.EventWindowCreated, 2)
	waitUntil(t, loop, "shrink session started", func() bool {
		_, active := c.neg.Active(0, 0)
		return active
	})

	// The window system moved the candidate before any confirmation.
	loop.Call(func() {
		c.HandleEvent(platform.Event{Kind: platform.EventDesktopChanged, Window: 1, Desktop: 1})
	})

	waitUntil(t, loop, "incoming window settled after candidate left", func() bool {
		b, ok := c.store.Get(2)
		if !ok || b.Phase != winstate.PhaseSettled || b.Desktop != 0 {
			return false
		}
		_, active := c.neg.Active(0, 0)
		return !active
	})
	waitUntil(t, loop, "moved candidate rejoined its new desktop", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Desktop == 1 && a.Phase == winstate.PhaseSettled
	})
}

// A window too wide to admit even after shrinking, alone on its desktop, is
// already in the safe fallback and must not bounce to a fresh desktop.
func TestLoneOversizedWindowStaysPut(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startEngine(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{Width: 4000, Height: 900}})

	waitUntil(t, loop, "oversized window settled in place", func() bool {
		a, ok := c.store.Get(1)
		return ok && a.Desktop == 0 && a.Phase == winstate.PhaseSettled
	})
}
