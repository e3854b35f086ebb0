package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/ipc"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/sched"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// startDaemon brings up a headless engine with its IPC server so the MCP
// bridge has something real to talk to.
func startDaemon(t *testing.T, h *platform.Headless) (*lifecycle.Coordinator, *sched.Loop) {
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

	srv, err := ipc.NewServer(c, logger, make(chan *config.Config, 1))
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("ipc server start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		close(quit)
		loop.Stop()
	})
	return c, loop
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

func TestToolsRoundTripThroughDaemon(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	h := platform.NewHeadless(workArea, 2)
	c, loop := startDaemon(t, h)

	h.AddWindow(platform.Window{ID: 1, Bounds: platform.Rect{X: 100, Y: 50, Width: 600, Height: 400}})
	waitSettled(t, c, loop, 1)

	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	_, status, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("get_status: %v", err)
	}
	if !status.DaemonRunning || status.WindowCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	_, windows, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(windows.Windows) != 1 || windows.Windows[0].ID != 1 {
		t.Fatalf("unexpected windows: %+v", windows.Windows)
	}

	other := 1
	_, filtered, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{Desktop: &other})
	if err != nil {
		t.Fatalf("list_windows filtered: %v", err)
	}
	if len(filtered.Windows) != 0 {
		t.Fatalf("desktop filter leaked windows: %+v", filtered.Windows)
	}

	_, retiled, err := s.handleRetileWorkspace(context.Background(), nil, RetileWorkspaceInput{Desktop: 0})
	if err != nil {
		t.Fatalf("retile_workspace: %v", err)
	}
	if retiled.Desktop != 0 {
		t.Fatalf("unexpected retile echo: %+v", retiled)
	}

	_, toggled, err := s.handleSetWorkspaceEnabled(context.Background(), nil, SetWorkspaceEnabledInput{Workspace: 0, Enabled: false})
	if err != nil {
		t.Fatalf("set_workspace_enabled: %v", err)
	}
	if toggled.Enabled {
		t.Fatalf("unexpected toggle echo: %+v", toggled)
	}
	enabled := true
	loop.Call(func() { enabled = c.WorkspaceEnabled(0) })
	if enabled {
		t.Fatalf("workspace 0 should be disabled after the tool call")
	}

	if _, _, err := s.handleRetileWorkspace(context.Background(), nil, RetileWorkspaceInput{Desktop: -1}); err == nil {
		t.Fatalf("negative desktop must be rejected")
	}
}

func TestNewServerFailsWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if _, err := NewServer(); err == nil {
		t.Fatalf("NewServer must fail when no daemon is listening")
	}
}
