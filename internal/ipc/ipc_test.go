package ipc

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

func startServer(t *testing.T, h *platform.Headless) (*lifecycle.Coordinator, *sched.Loop, chan *config.Config) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.GeometryPollIntervalMS = 2
	cfg.GeometryPollTimeoutMS = 50
	cfg.RetileDebounceMS = 5

	loop := sched.NewLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := lifecycle.New(h, loop, cfg, logger)

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

	reload := make(chan *config.Config, 1)
	srv, err := NewServer(c, logger, reload)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		close(quit)
		loop.Stop()
	})
	return c, loop, reload
}

func waitSettled(t *testing.T, c *lifecycle.Coordinator, loop *sched.Loop, id platform.WindowID) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		loop.Call(func() {
			st, live := c.Store().Get(id)
			ok = live && st.Phase == winstate.PhaseSettled
		})
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("window %d never settled", id)
}

func TestStatusAndWindowsRoundTrip(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop, _ := startServer(t, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	waitSettled(t, c, loop, 1)

	client := NewClient()
	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || status.WindowCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows.Windows) != 1 || windows.Windows[0].ID != 1 {
		t.Fatalf("unexpected window list: %+v", windows.Windows)
	}
	if windows.Windows[0].Phase != "settled" {
		t.Fatalf("window should report settled, got %q", windows.Windows[0].Phase)
	}
}

func TestGetMonitorsReportsUsableArea(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	startServer(t, h)

	client := NewClient()
	monitors, err := client.GetMonitors()
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(monitors.Monitors) != 1 {
		t.Fatalf("expected one monitor, got %d", len(monitors.Monitors))
	}
	m := monitors.Monitors[0]
	if m.UsableWidth != 1920 || m.UsableHeight != 1080 {
		t.Fatalf("unexpected usable area: %+v", m)
	}
}

func TestSetWorkspaceEnabledTogglesEngine(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop, _ := startServer(t, h)

	client := NewClient()
	if err := client.SetWorkspaceEnabled(0, false); err != nil {
		t.Fatalf("SetWorkspaceEnabled: %v", err)
	}

	enabled := true
	loop.Call(func() { enabled = c.WorkspaceEnabled(0) })
	if enabled {
		t.Fatalf("workspace 0 should be disabled after the command")
	}

	if err := client.SetWorkspaceEnabled(0, true); err != nil {
		t.Fatalf("SetWorkspaceEnabled: %v", err)
	}
	loop.Call(func() { enabled = c.WorkspaceEnabled(0) })
	if !enabled {
		t.Fatalf("workspace 0 should be enabled again")
	}

	if err := client.SetWorkspaceEnabled(-1, true); err == nil {
		t.Fatalf("negative workspace must be rejected")
	}
}

func TestRetileCommandConverges(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop, _ := startServer(t, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 500, Y: 300, Width: 600, Height: 400}})
	waitSettled(t, c, loop, 1)

	client := NewClient()
	if err := client.Retile(0, 0); err != nil {
		t.Fatalf("Retile: %v", err)
	}
	if err := client.Retile(-1, 0); err == nil {
		t.Fatalf("negative desktop must be rejected")
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	startServer(t, h)

	client := NewClient()
	if _, err := client.sendRequest(&Request{Command: CommandType("BOGUS")}); err == nil {
		t.Fatalf("unknown command must return an error")
	}
}
