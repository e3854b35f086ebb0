package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	WindowCount        int   `json:"window_count"`
	TiledCount         int   `json:"tiled_count"`
	DisabledWorkspaces []int `json:"disabled_workspaces,omitempty"`
	UptimeSeconds      int64 `json:"uptime_seconds"`
	DaemonRunning      bool  `json:"daemon_running"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Desktop *int `json:"desktop,omitempty" jsonschema:"Only list windows on this desktop. Omit for all desktops."`
}

// WindowEntry describes one managed window.
type WindowEntry struct {
	ID          uint32 `json:"id"`
	Desktop     int    `json:"desktop"`
	Monitor     int    `json:"monitor"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Phase       string `json:"phase"`
	Zone        string `json:"zone,omitempty"`
	Sacred      bool   `json:"sacred,omitempty"`
	Excluded    bool   `json:"excluded,omitempty"`
	Constrained bool   `json:"constrained,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowEntry `json:"windows"`
}

// RetileWorkspaceInput is the input for the retile_workspace tool.
type RetileWorkspaceInput struct {
	Desktop int `json:"desktop" jsonschema:"required,Desktop index to re-converge"`
	Monitor int `json:"monitor,omitempty" jsonschema:"Monitor index (default: 0)"`
}

// RetileWorkspaceOutput is the output for the retile_workspace tool.
type RetileWorkspaceOutput struct {
	Desktop int `json:"desktop"`
	Monitor int `json:"monitor"`
}

// SetWorkspaceEnabledInput is the input for the set_workspace_enabled tool.
type SetWorkspaceEnabledInput struct {
	Workspace int  `json:"workspace" jsonschema:"required,Workspace index to toggle"`
	Enabled   bool `json:"enabled" jsonschema:"required,Whether the engine manages the workspace"`
}

// SetWorkspaceEnabledOutput is the output for the set_workspace_enabled tool.
type SetWorkspaceEnabledOutput struct {
	Workspace int  `json:"workspace"`
	Enabled   bool `json:"enabled"`
}
