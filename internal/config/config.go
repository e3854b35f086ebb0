package config

import (
	"fmt"
	"time"
)

// Config holds the layout engine tunables. All durations are expressed in
// milliseconds in the YAML file; accessor methods convert to time.Duration.
type Config struct {
	// Spacing is the gap in pixels between tiled windows and between
	// windows and the work-area edge.
	Spacing int `yaml:"spacing"`

	// ColumnAlignmentTolerance groups windows into one virtual column
	// when their horizontal centers differ by at most this many pixels.
	ColumnAlignmentTolerance int `yaml:"column_alignment_tolerance"`

	// EdgeThreshold is the pointer distance from a screen border that
	// activates a half-side snap zone.
	EdgeThreshold int `yaml:"edge_threshold"`
	// CornerThreshold is the pointer distance from a screen corner that
	// activates a quarter snap zone. Corners win over edges.
	CornerThreshold int `yaml:"corner_threshold"`

	// MinWindowWidth/MinWindowHeight is the floor every non-excluded
	// window in a produced layout must satisfy.
	MinWindowWidth  int `yaml:"min_window_width"`
	MinWindowHeight int `yaml:"min_window_height"`

	// RelaxedMinWidth/RelaxedMinHeight substitute a lower floor for fit
	// tests while a transition (unmaximize, sacred exit) is in flight.
	RelaxedMinWidth  int `yaml:"relaxed_min_width"`
	RelaxedMinHeight int `yaml:"relaxed_min_height"`

	// SmallAreaFraction and LargeAreaFraction classify windows by their
	// area share of the work area during smart-resize negotiation.
	// Windows below Small are never shrunk.
	SmallAreaFraction float64 `yaml:"small_area_fraction"`
	LargeAreaFraction float64 `yaml:"large_area_fraction"`

	// ShrinkFloorRatio bounds negotiation: no window is asked to shrink
	// below this fraction of its original size.
	ShrinkFloorRatio float64 `yaml:"shrink_floor_ratio"`

	// OverflowGraceMS suppresses repeated overflow migration attempts
	// for the same window.
	OverflowGraceMS int `yaml:"overflow_grace_ms"`
	// ResizeGraceMS suppresses reverse smart-resize right after a
	// forward one, preventing shrink/grow oscillation.
	ResizeGraceMS int `yaml:"resize_grace_ms"`
	// SettleGraceMS ignores ambient geometry noise right after a manual
	// resize ends.
	SettleGraceMS int `yaml:"settle_grace_ms"`

	// GeometryPollIntervalMS and GeometryPollTimeoutMS bound the wait
	// for a new window's frame to become valid.
	GeometryPollIntervalMS int `yaml:"geometry_poll_interval_ms"`
	GeometryPollTimeoutMS  int `yaml:"geometry_poll_timeout_ms"`

	// RelocationWindowMS is the maximum elapsed time between a removal
	// and a reappearance on another desktop for the pair to count as a
	// drag relocation rather than a close.
	RelocationWindowMS int `yaml:"relocation_window_ms"`

	// WorkspaceSwitchDelayMS delays post-move tiling until the
	// workspace-switch animation has finished.
	WorkspaceSwitchDelayMS int `yaml:"workspace_switch_delay_ms"`

	// RetileDebounceMS coalesces geometry ticks during live resize.
	RetileDebounceMS int `yaml:"retile_debounce_ms"`

	// DragRestoreSuppressMS time-boxes false-overflow suppression while
	// an edge-tiled window is restored to its natural size at drag
	// start.
	DragRestoreSuppressMS int `yaml:"drag_restore_suppress_ms"`

	// DisabledWorkspaces lists desktops the engine must leave alone.
	DisabledWorkspaces []int `yaml:"disabled_workspaces"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ValidationError reports an invalid configuration value with the YAML path
// that caused it.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Spacing:                  8,
		ColumnAlignmentTolerance: 100,
		EdgeThreshold:            32,
		CornerThreshold:          64,
		MinWindowWidth:           200,
		MinWindowHeight:          150,
		RelaxedMinWidth:          100,
		RelaxedMinHeight:         80,
		SmallAreaFraction:        0.15,
		LargeAreaFraction:        0.40,
		ShrinkFloorRatio:         0.5,
		OverflowGraceMS:          2000,
		ResizeGraceMS:            1000,
		SettleGraceMS:            300,
		GeometryPollIntervalMS:   50,
		GeometryPollTimeoutMS:    1000,
		RelocationWindowMS:       1500,
		WorkspaceSwitchDelayMS:   350,
		RetileDebounceMS:         50,
		DragRestoreSuppressMS:    500,
		DisabledWorkspaces:       nil,
		LogLevel:                 "info",
		LogFormat:                "auto",
	}
}

// Validate checks all tunables, returning a ValidationError naming the
// offending YAML path.
func (c *Config) Validate() error {
	if c.Spacing < 0 {
		return &ValidationError{Path: "spacing", Err: fmt.Errorf("spacing must be >= 0")}
	}
	if c.ColumnAlignmentTolerance < 0 {
		return &ValidationError{Path: "column_alignment_tolerance", Err: fmt.Errorf("column_alignment_tolerance must be >= 0")}
	}
	if c.EdgeThreshold < 1 {
		return &ValidationError{Path: "edge_threshold", Err: fmt.Errorf("edge_threshold must be >= 1")}
	}
	if c.CornerThreshold < c.EdgeThreshold {
		return &ValidationError{Path: "corner_threshold", Err: fmt.Errorf("corner_threshold must be >= edge_threshold")}
	}
	if c.MinWindowWidth < 1 || c.MinWindowHeight < 1 {
		return &ValidationError{Path: "min_window_width", Err: fmt.Errorf("minimum window size must be >= 1")}
	}
	if c.RelaxedMinWidth < 1 || c.RelaxedMinWidth > c.MinWindowWidth {
		return &ValidationError{Path: "relaxed_min_width", Err: fmt.Errorf("relaxed_min_width must be in [1, min_window_width]")}
	}
	if c.RelaxedMinHeight < 1 || c.RelaxedMinHeight > c.MinWindowHeight {
		return &ValidationError{Path: "relaxed_min_height", Err: fmt.Errorf("relaxed_min_height must be in [1, min_window_height]")}
	}
	if c.SmallAreaFraction <= 0 || c.SmallAreaFraction >= 1 {
		return &ValidationError{Path: "small_area_fraction", Err: fmt.Errorf("small_area_fraction must be in (0, 1)")}
	}
	if c.LargeAreaFraction <= c.SmallAreaFraction || c.LargeAreaFraction >= 1 {
		return &ValidationError{Path: "large_area_fraction", Err: fmt.Errorf("large_area_fraction must be in (small_area_fraction, 1)")}
	}
	if c.ShrinkFloorRatio <= 0 || c.ShrinkFloorRatio >= 1 {
		return &ValidationError{Path: "shrink_floor_ratio", Err: fmt.Errorf("shrink_floor_ratio must be in (0, 1)")}
	}
	if c.OverflowGraceMS < 0 {
		return &ValidationError{Path: "overflow_grace_ms", Err: fmt.Errorf("overflow_grace_ms must be >= 0")}
	}
	if c.ResizeGraceMS < 0 {
		return &ValidationError{Path: "resize_grace_ms", Err: fmt.Errorf("resize_grace_ms must be >= 0")}
	}
	if c.SettleGraceMS < 0 {
		return &ValidationError{Path: "settle_grace_ms", Err: fmt.Errorf("settle_grace_ms must be >= 0")}
	}
	if c.GeometryPollIntervalMS < 1 {
		return &ValidationError{Path: "geometry_poll_interval_ms", Err: fmt.Errorf("geometry_poll_interval_ms must be >= 1")}
	}
	if c.GeometryPollTimeoutMS < c.GeometryPollIntervalMS {
		return &ValidationError{Path: "geometry_poll_timeout_ms", Err: fmt.Errorf("geometry_poll_timeout_ms must be >= geometry_poll_interval_ms")}
	}
	if c.RelocationWindowMS < 0 {
		return &ValidationError{Path: "relocation_window_ms", Err: fmt.Errorf("relocation_window_ms must be >= 0")}
	}
	if c.WorkspaceSwitchDelayMS < 0 {
		return &ValidationError{Path: "workspace_switch_delay_ms", Err: fmt.Errorf("workspace_switch_delay_ms must be >= 0")}
	}
	if c.RetileDebounceMS < 1 {
		return &ValidationError{Path: "retile_debounce_ms", Err: fmt.Errorf("retile_debounce_ms must be >= 1")}
	}
	if c.DragRestoreSuppressMS < 0 {
		return &ValidationError{Path: "drag_restore_suppress_ms", Err: fmt.Errorf("drag_restore_suppress_ms must be >= 0")}
	}
	for _, ws := range c.DisabledWorkspaces {
		if ws < 0 {
			return &ValidationError{Path: "disabled_workspaces", Err: fmt.Errorf("workspace indices must be >= 0")}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: auto, text, json")}
	}
	return nil
}

// WorkspaceDisabled reports whether the engine is configured off for the
// given desktop.
func (c *Config) WorkspaceDisabled(desktop int) bool {
	for _, ws := range c.DisabledWorkspaces {
		if ws == desktop {
			return true
		}
	}
	return false
}

func (c *Config) OverflowGrace() time.Duration {
	return time.Duration(c.OverflowGraceMS) * time.Millisecond
}

func (c *Config) ResizeGrace() time.Duration {
	return time.Duration(c.ResizeGraceMS) * time.Millisecond
}

func (c *Config) SettleGrace() time.Duration {
	return time.Duration(c.SettleGraceMS) * time.Millisecond
}

func (c *Config) GeometryPollInterval() time.Duration {
	return time.Duration(c.GeometryPollIntervalMS) * time.Millisecond
}

func (c *Config) GeometryPollTimeout() time.Duration {
	return time.Duration(c.GeometryPollTimeoutMS) * time.Millisecond
}

func (c *Config) RelocationWindow() time.Duration {
	return time.Duration(c.RelocationWindowMS) * time.Millisecond
}

func (c *Config) WorkspaceSwitchDelay() time.Duration {
	return time.Duration(c.WorkspaceSwitchDelayMS) * time.Millisecond
}

func (c *Config) RetileDebounce() time.Duration {
	return time.Duration(c.RetileDebounceMS) * time.Millisecond
}

func (c *Config) DragRestoreSuppress() time.Duration {
	return time.Duration(c.DragRestoreSuppressMS) * time.Millisecond
}
