package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	out := GetStatusOutput{
		WindowCount:        status.WindowCount,
		TiledCount:         status.TiledCount,
		DisabledWorkspaces: status.DisabledWorkspaces,
		UptimeSeconds:      status.UptimeSeconds,
		DaemonRunning:      status.DaemonRunning,
	}
	return nil, out, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	var out ListWindowsOutput
	for _, w := range data.Windows {
		if args.Desktop != nil && w.Desktop != *args.Desktop {
			continue
		}
		out.Windows = append(out.Windows, WindowEntry{
			ID:          w.ID,
			Desktop:     w.Desktop,
			Monitor:     w.Monitor,
			X:           w.X,
			Y:           w.Y,
			Width:       w.Width,
			Height:      w.Height,
			Phase:       w.Phase,
			Zone:        w.Zone,
			Sacred:      w.Sacred,
			Excluded:    w.Excluded,
			Constrained: w.Constrained,
		})
	}
	return nil, out, nil
}

func (s *Server) handleRetileWorkspace(_ context.Context, _ *mcpsdk.CallToolRequest, args RetileWorkspaceInput) (*mcpsdk.CallToolResult, RetileWorkspaceOutput, error) {
	if args.Desktop < 0 || args.Monitor < 0 {
		return nil, RetileWorkspaceOutput{}, fmt.Errorf("desktop and monitor must be >= 0")
	}
	if err := s.client.Retile(args.Desktop, args.Monitor); err != nil {
		return nil, RetileWorkspaceOutput{}, err
	}
	return nil, RetileWorkspaceOutput{Desktop: args.Desktop, Monitor: args.Monitor}, nil
}

func (s *Server) handleSetWorkspaceEnabled(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWorkspaceEnabledInput) (*mcpsdk.CallToolResult, SetWorkspaceEnabledOutput, error) {
	if args.Workspace < 0 {
		return nil, SetWorkspaceEnabledOutput{}, fmt.Errorf("workspace must be >= 0")
	}
	if err := s.client.SetWorkspaceEnabled(args.Workspace, args.Enabled); err != nil {
		return nil, SetWorkspaceEnabledOutput{}, err
	}
	return nil, SetWorkspaceEnabledOutput{Workspace: args.Workspace, Enabled: args.Enabled}, nil
}
