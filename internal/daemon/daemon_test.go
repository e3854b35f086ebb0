package daemon

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GeometryPollIntervalMS = 2
	cfg.GeometryPollTimeoutMS = 50
	cfg.RetileDebounceMS = 5
	cfg.SettleGraceMS = 15
	cfg.WorkspaceSwitchDelayMS = 5
	return cfg
}

func startDaemon(t *testing.T, h *platform.Headless) *Daemon {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(testConfig(), h, logger)
	d.reconcileInterval = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d
}

func (d *Daemon) waitUntil(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		d.loop.Call(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never reached: %s", desc)
}

func TestDaemonManagesNewWindow(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	d := startDaemon(t, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})

	d.waitUntil(t, "window settled", func() bool {
		st, ok := d.engine.Store().Get(1)
		return ok && st.Phase == winstate.PhaseSettled
	})
}

func TestDaemonAdoptsPreexistingWindows(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)

	h.AddWindow(platform.Window{ID: 7, Bounds: platform.Rect{X: 200, Y: 100, Width: 640, Height: 480}})
	// The daemon was not running: the create notification is gone.
	<-h.Events()

	d := startDaemon(t, h)

	d.waitUntil(t, "preexisting window adopted and settled", func() bool {
		st, ok := d.engine.Store().Get(7)
		return ok && st.Phase == winstate.PhaseSettled
	})
}

func TestRouteSplitsGrabsBetweenCoordinators(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	d := startDaemon(t, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	d.waitUntil(t, "window settled", func() bool {
		st, ok := d.engine.Store().Get(1)
		return ok && st.Phase == winstate.PhaseSettled
	})

	h.SetPointer(960, 540, true)
	h.BeginGrab(1, platform.GrabOpMove)
	d.waitUntil(t, "drag coordinator claimed the move grab", func() bool {
		return d.drag.Active() && !d.resize.Active()
	})
	h.EndGrab(1, platform.GrabOpMove)
	d.waitUntil(t, "drag resolved", func() bool { return !d.drag.Active() })

	h.BeginGrab(1, platform.GrabOpSizeRight)
	d.waitUntil(t, "resize tracker claimed the size grab", func() bool {
		return d.resize.Active() && !d.drag.Active()
	})
	h.EndGrab(1, platform.GrabOpSizeRight)
	d.waitUntil(t, "resize resolved", func() bool { return !d.resize.Active() })
}

func TestReconcilerRemovesOrphanedState(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	d := startDaemon(t, h)

	// A state with no backing window: the destroy notification was lost.
	d.loop.Call(func() {
		st := d.engine.Store().Ensure(99)
		st.Phase = winstate.PhaseSettled
	})

	d.waitUntil(t, "orphaned state removed", func() bool {
		_, ok := d.engine.Store().Get(99)
		return !ok
	})
}

func TestApplyConfigReachesEngine(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	d := startDaemon(t, h)

	cfg := testConfig()
	cfg.Spacing = 20
	d.ApplyConfig(cfg)

	d.waitUntil(t, "new spacing applied", func() bool {
		return d.engine.Options().Spacing == 20
	})
}
