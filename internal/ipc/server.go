package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/edgezone"
	"github.com/rivenirvana/MosaicWM-sub002/internal/lifecycle"
	"github.com/rivenirvana/MosaicWM-sub002/internal/runtimepath"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// Server handles IPC requests from clients. Engine state is only touched
// from inside loop.Call, so connection goroutines never race the engine.
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       *lifecycle.Coordinator
	logger       *slog.Logger
	startTime    time.Time
	reloadChan   chan *config.Config
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. The reload channel carries freshly
// loaded configurations to the daemon.
func NewServer(engine *lifecycle.Coordinator, logger *slog.Logger, reloadChan chan *config.Config) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		logger:     logger,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection: one JSON request per
// line, one JSON response per line.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandSetWorkspaceEnabled:
		return s.handleSetWorkspaceEnabled(req.Payload)
	case CommandRetile:
		return s.handleRetile(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload loads the configuration fresh and hands it to the daemon.
func (s *Server) handleReload() *Response {
	newCfg, err := config.Load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	select {
	case s.reloadChan <- newCfg:
	default:
	}
	s.logger.Info("config reloaded over IPC")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	var status StatusData
	s.engine.Loop().Call(func() {
		for _, st := range s.engine.Store().All() {
			status.WindowCount++
			if st.Zone != edgezone.ZoneNone {
				status.TiledCount++
			}
		}
		status.DisabledWorkspaces = append([]int(nil), s.engine.Config().DisabledWorkspaces...)
	})
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	status.DaemonRunning = true

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetMonitors() *Response {
	displays, err := s.engine.Backend().Displays()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}

	monitorInfos := make([]MonitorInfo, len(displays))
	for i, d := range displays {
		monitorInfos[i] = MonitorInfo{
			ID:           d.ID,
			Name:         d.Name,
			X:            d.Bounds.X,
			Y:            d.Bounds.Y,
			Width:        d.Bounds.Width,
			Height:       d.Bounds.Height,
			UsableX:      d.Usable.X,
			UsableY:      d.Usable.Y,
			UsableWidth:  d.Usable.Width,
			UsableHeight: d.Usable.Height,
		}
	}

	resp, _ := NewOKResponse(MonitorsData{Monitors: monitorInfos})
	return resp
}

func (s *Server) handleListWindows() *Response {
	var infos []WindowInfo
	s.engine.Loop().Call(func() {
		for _, st := range s.engine.Store().All() {
			info := WindowInfo{
				ID:          uint32(st.ID),
				Desktop:     st.Desktop,
				Monitor:     st.Monitor,
				X:           st.Frame.X,
				Y:           st.Frame.Y,
				Width:       st.Frame.Width,
				Height:      st.Frame.Height,
				Phase:       st.Phase.String(),
				Sacred:      st.Sacred.Kind != winstate.SacredNone,
				Excluded:    st.Excluded,
				Constrained: st.ConstrainedByMosaic,
			}
			if st.Zone != edgezone.ZoneNone {
				info.Zone = st.Zone.String()
			}
			infos = append(infos, info)
		}
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	resp, _ := NewOKResponse(WindowsData{Windows: infos})
	return resp
}

func (s *Server) handleSetWorkspaceEnabled(payload json.RawMessage) *Response {
	var req SetWorkspaceEnabledPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid workspace payload: %v", err))
	}
	if req.Workspace < 0 {
		return NewErrorResponse("workspace must be >= 0")
	}

	s.engine.Loop().Call(func() {
		s.engine.SetWorkspaceEnabled(req.Workspace, req.Enabled)
	})
	s.logger.Info("workspace management toggled", "workspace", req.Workspace, "enabled", req.Enabled)

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleRetile(payload json.RawMessage) *Response {
	var req RetilePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid retile payload: %v", err))
		}
	}
	if req.Desktop < 0 || req.Monitor < 0 {
		return NewErrorResponse("desktop and monitor must be >= 0")
	}

	s.engine.Loop().Call(func() {
		s.engine.Retile(req.Desktop, req.Monitor)
	})

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
