package resize

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

func TestClassify(t *testing.T) {
	cases := []struct {
		op   platform.GrabOp
		want Kind
	}{
		{platform.GrabOpSizeTopLeft, KindEdge},
		{platform.GrabOpSizeRight, KindEdge},
		{platform.GrabOpSizeBottomLeft, KindEdge},
		{platform.GrabOpSizeKeyboard, KindKeyboard},
		{platform.GrabOpMove, KindNone},
		{platform.GrabOpMoveKeyboard, KindNone},
		{platform.GrabOpCancel, KindNone},
		{platform.GrabOp(42), KindCompositor},
	}
	for _, c := range cases {
		if got := Classify(c.op); got != c.want {
			t.Fatalf("Classify(%d) = %s, want %s", int(c.op), got, c.want)
		}
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GeometryPollIntervalMS = 2
	cfg.GeometryPollTimeoutMS = 50
	cfg.RetileDebounceMS = 5
	cfg.SettleGraceMS = 15
	cfg.WorkspaceSwitchDelayMS = 5
	cfg.OverflowGraceMS = 100
	cfg.ResizeGraceMS = 30
	return cfg
}

// startResize wires backend, engine and tracker with the daemon's routing:
// resize grabs and the resized window's geometry go to the tracker first.
func startResize(t *testing.T, cfg *config.Config, h *platform.Headless) (*lifecycle.Coordinator, *Tracker, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := lifecycle.New(h, loop, cfg, logger)
	tr := New(c, logger)

	route := func(ev platform.Event) {
		switch ev.Kind {
		case platform.EventGrabBegin:
			tr.HandleGrabBegin(ev.Window, ev.Op)
		case platform.EventGrabEnd:
			tr.HandleGrabEnd(ev.Window, ev.Op)
		case platform.EventGeometryChanged:
			if !tr.HandleGeometry(ev.Window, ev.Bounds) {
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
	return c, tr, loop
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

func TestManualResizeUpdatesHomeSize(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, _, loop := startResize(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)

	h.BeginGrab(1, platform.GrabOpSizeRight)
	h.MoveResize(1, platform.Rect{X: 100, Y: 50, Width: 720, Height: 400}, true)
	h.EndGrab(1, platform.GrabOpSizeRight)

	waitUntil(t, loop, "home size follows the manual resize", func() bool {
		st, ok := c.Store().Get(1)
		return ok && st.PreferredSize == winstate.Size{Width: 720, Height: 400}
	})
}

// Manually widening the left half must shrink the right half so the pair
// still spans the work area exactly.
func TestPairRepairAfterEdgeResize(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, _, loop := startResize(t, testConfig(), h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	settle(t, c, loop, 1)
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 1000, Y: 100, Width: 600, Height: 400}})
	settle(t, c, loop, 2)
	loop.Call(func() {
		a, _ := c.Store().Get(1)
		b, _ := c.Store().Get(2)
		if !c.ApplyTile(a, edgezone.ZoneLeftHalf) || !c.ApplyTile(b, edgezone.ZoneRightHalf) {
			t.Errorf("tile apply refused")
		}
	})
	waitUntil(t, loop, "pair tiled", func() bool {
		ga, _ := h.WindowGeometry(1)
		gb, _ := h.WindowGeometry(2)
		return ga.Width == 948 && gb.Width == 948
	})

	h.BeginGrab(1, platform.GrabOpSizeRight)
	h.MoveResize(1, platform.Rect{X: 8, Y: 8, Width: 1100, Height: 1064}, true)
	h.EndGrab(1, platform.GrabOpSizeRight)

	want := platform.Rect{X: 1116, Y: 8, Width: 796, Height: 1064}
	waitUntil(t, loop, "sibling resized to the complement", func() bool {
		gb, _ := h.WindowGeometry(2)
		return gb == want
	})
	ga, _ := h.WindowGeometry(1)
	gb, _ := h.WindowGeometry(2)
	if ga.Width+gb.Width != 1920-3*8 {
		t.Fatalf("pair widths must span the work area: %d + %d", ga.Width, gb.Width)
	}
}

// Growing a window past what the desktop can hold previews overflow; the
// release confirms it and the peers keep their sizes.
func TestOverflowPreviewConfirmsOnRelease(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	cfg := testConfig()
	cfg.ShrinkFloorRatio = 0.95
	c, tr, loop := startResize(t, cfg, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 940, Height: 800}})
	settle(t, c, loop, 1)
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 956, Y: 8, Width: 940, Height: 800}})
	settle(t, c, loop, 2)

	h.BeginGrab(2, platform.GrabOpSizeRight)
	h.MoveResize(2, platform.Rect{X: 956, Y: 8, Width: 1300, Height: 800}, true)

	waitUntil(t, loop, "overflow previewed while still growing", func() bool {
		return tr.overflowPreview
	})
	d2, _ := h.WindowDesktop(2)
	if d2 != 0 {
		t.Fatalf("preview must not move the window, on desktop %d", d2)
	}

	h.EndGrab(2, platform.GrabOpSizeRight)

	waitUntil(t, loop, "release confirmed the overflow", func() bool {
		st, ok := c.Store().Get(2)
		return ok && st.Desktop == 1
	})
	g1, _ := h.WindowGeometry(1)
	if g1.Width != 940 {
		t.Fatalf("peer must keep its size through the overflow, got %d", g1.Width)
	}
}

// Shrinking back below the limit recovers from the preview; the release is
// then an ordinary resize.
func TestOverflowPreviewRecovers(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	cfg := testConfig()
	cfg.ShrinkFloorRatio = 0.95
	c, tr, loop := startResize(t, cfg, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 8, Y: 8, Width: 940, Height: 800}})
	settle(t, c, loop, 1)
	h.AddWindow(platform.Window{ID: 2, Bounds: platform.Rect{X: 956, Y: 8, Width: 940, Height: 800}})
	settle(t, c, loop, 2)

	h.BeginGrab(2, platform.GrabOpSizeRight)
	h.MoveResize(2, platform.Rect{X: 956, Y: 8, Width: 1300, Height: 800}, true)
	waitUntil(t, loop, "overflow previewed", func() bool {
		return tr.overflowPreview
	})

	h.MoveResize(2, platform.Rect{X: 956, Y: 8, Width: 900, Height: 800}, true)
	waitUntil(t, loop, "preview dropped after shrinking back", func() bool {
		return !tr.overflowPreview
	})

	h.EndGrab(2, platform.GrabOpSizeRight)
	waitUntil(t, loop, "window stayed and recorded the new size", func() bool {
		st, ok := c.Store().Get(2)
		return ok && st.Desktop == 0 &&
			st.PreferredSize == winstate.Size{Width: 900, Height: 800}
	})
}
