package dragmode

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
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
	cfg.OverflowGraceMS = 100
	cfg.ResizeGraceMS = 30
	cfg.DragRestoreSuppressMS = 200
	return cfg
}

// startDrag wires backend, engine and drag coordinator together with the
// daemon's routing: grab events and dragged-window geometry go to the drag
// coordinator, everything else to the engine.
func startDrag(t *testing.T, cfg *config.Config, h *platform.Headless) (*lifecycle.Coordinator, *Mode, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := lifecycle.New(h, loop, cfg, logger)
	m := New(c, logger)

	route := func(ev platform.Event) {
		switch ev.Kind {
		case platform.EventGrabBegin:
			m.HandleGrabBegin(ev.Window, ev.Op)
		case platform.EventGrabEnd:
			m.HandleGrabEnd(ev.Window, ev.Op)
		case platform.EventGeometryChanged:
			if !m.HandleGeometry(ev.Window, ev.Bounds) {
				c.HandleEvent(ev)
			}
		default:
			c.HandleEvent(ev)
		}
	}

	go loop.Run()
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-h.Events():
				loop.Post(func() { route(ev) })
			case <-quit:
				return
			}
		}
	}()
	t.Cleanup(func() {
		close(quit)
		loop.Stop()
	})
	return c, m, loop
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

func settle(t *testing.T, c *lifecycle.Coordinator, loop *sched.Loop, id platform.WindowID) {
	t.Helper()
	waitUntil(t, loop, "window settled", func() bool {
		st, ok := c.Store().Get(id)
		return ok && st.Phase == winstate.PhaseSettled
	})
}

func TestDragToLeftEdgeTilesHalf(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, m, loop := startDrag(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)

	h.SetPointer(10, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)
	h.MoveResize(1, platform.Rect{X: 0, Y: 300, Width: 600, Height: 400}, true)

	waitUntil(t, loop, "left-half zone previewed", func() bool {
		return m.state.Zone == edgezone.ZoneLeftHalf
	})
	h.EndGrab(1, platform.GrabOpMove)

	want := platform.Rect{X: 8, Y: 8, Width: 948, Height: 1064}
	waitUntil(t, loop, "window snapped into the left half", func() bool {
		g, _ := h.WindowGeometry(1)
		occupant, ok := c.Zones().Occupant(0, 0, edgezone.ZoneLeftHalf)
		return g == want && ok && occupant == 1
	})
}

func TestDragReleaseInOpenRejoinsMosaic(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, m, loop := startDrag(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)

	h.SetPointer(960, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)
	h.MoveResize(1, platform.Rect{X: 660, Y: 340, Width: 600, Height: 400}, true)
	h.EndGrab(1, platform.GrabOpMove)

	waitUntil(t, loop, "window back in the mosaic, no zone", func() bool {
		st, ok := c.Store().Get(1)
		return ok && st.Phase == winstate.PhaseSettled &&
			st.Zone == edgezone.ZoneNone && !m.Active()
	})
}

// Dragging a tiled window out of its zone gives it back the size it had
// before tiling, and the growth must not be mistaken for overflow pressure.
func TestDragOutOfZoneRestoresNaturalSize(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, _, loop := startDrag(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)

	loop.Call(func() {
		st, _ := c.Store().Get(1)
		if !c.ApplyTile(st, edgezone.ZoneLeftHalf) {
			t.Errorf("tile apply refused")
		}
	})
	waitUntil(t, loop, "window holds the left half", func() bool {
		g, _ := h.WindowGeometry(1)
		return g.Width == 948
	})

	h.SetPointer(960, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)

	waitUntil(t, loop, "natural size restored", func() bool {
		g, _ := h.WindowGeometry(1)
		return g.Width == 600 && g.Height == 400
	})

	h.EndGrab(1, platform.GrabOpMove)
	waitUntil(t, loop, "released window rejoined the mosaic", func() bool {
		st, ok := c.Store().Get(1)
		return ok && st.Zone == edgezone.ZoneNone &&
			st.Desktop == 0 && st.Phase == winstate.PhaseSettled
	})
}

func TestDragOntoOccupiedZoneSwaps(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, m, loop := startDrag(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 1000, Y: 100, Width: 600, Height: 400}})
	settle(t, c, loop, 2)

	loop.Call(func() {
		st, _ := c.Store().Get(1)
		c.ApplyTile(st, edgezone.ZoneLeftHalf)
	})

	h.SetPointer(10, 540, true)
	h.BeginGrab(2, platform.GrabOpMove)
	h.MoveResize(2, platform.Rect{X: 0, Y: 300, Width: 600, Height: 400}, true)
	waitUntil(t, loop, "left-half zone previewed", func() bool {
		return m.state.Zone == edgezone.ZoneLeftHalf
	})
	h.EndGrab(2, platform.GrabOpMove)

	waitUntil(t, loop, "occupant swapped out, dragged window tiled", func() bool {
		a, aok := c.Store().Get(1)
		b, bok := c.Store().Get(2)
		occupant, held := c.Zones().Occupant(0, 0, edgezone.ZoneLeftHalf)
		return aok && bok && held && occupant == 2 &&
			b.Zone == edgezone.ZoneLeftHalf &&
			a.Zone == edgezone.ZoneNone && a.Phase == winstate.PhaseSettled
	})
}

// A lost grab-end notification must not leave the drag stuck: the pointer
// poll notices the released button and resolves.
func TestPointerReleaseFallbackResolves(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, m, loop := startDrag(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)

	h.SetPointer(1900, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)
	h.MoveResize(1, platform.Rect{X: 1300, Y: 300, Width: 600, Height: 400}, true)
	waitUntil(t, loop, "right-half zone previewed", func() bool {
		return m.state.Zone == edgezone.ZoneRightHalf
	})

	// No EndGrab: only the button state flips.
	h.SetPointer(1900, 540, false)

	waitUntil(t, loop, "poll resolved the drag into the right half", func() bool {
		occupant, ok := c.Zones().Occupant(0, 0, edgezone.ZoneRightHalf)
		return ok && occupant == 1 && !m.Active()
	})
}

// Peers that cannot fit beside the previewed zone are ghosted during the
// drag and migrated only once the drop confirms the tile.
func TestGhostedPeersMigrateAfterDrop(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	cfg := testConfig()
	cfg.ShrinkFloorRatio = 0.95
	c, m, loop := startDrag(t, cfg, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 600, Height: 400}})
	settle(t, c, loop, 1)
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 616, Y: 8, Width: 500, Height: 700}})
	settle(t, c, loop, 2)
	h.AddWindow(platform.Window{ID: 3, Bounds: platform.Rect{X: 1124, Y: 8, Width: 500, Height: 700}})
	settle(t, c, loop, 3)

	h.SetPointer(10, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)
	h.MoveResize(1, platform.Rect{X: 0, Y: 300, Width: 600, Height: 400}, true)

	// Two 500-wide, 700-tall peers cannot share the 948-wide remainder:
	// the newest arrival is ghosted.
	waitUntil(t, loop, "newest peer ghosted in the preview", func() bool {
		return m.state.Zone == edgezone.ZoneLeftHalf &&
			len(m.state.Ghosts) == 1 && m.state.Ghosts[0] == 3
	})
	g3, _ := h.WindowGeometry(3)
	d3, _ := h.WindowDesktop(3)
	if d3 != 0 {
		t.Fatalf("ghosting is a preview, window moved early to desktop %d (frame %+v)", d3, g3)
	}

	h.EndGrab(1, platform.GrabOpMove)

	waitUntil(t, loop, "ghosted peer migrated after the drop", func() bool {
		st, ok := c.Store().Get(3)
		return ok && st.Desktop == 1
	})
	waitUntil(t, loop, "kept peer stayed on the original desktop", func() bool {
		st, ok := c.Store().Get(2)
		return ok && st.Desktop == 0 && st.Zone == edgezone.ZoneNone
	})
}
