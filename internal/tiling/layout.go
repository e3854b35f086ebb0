// Package tiling is the layout engine: virtual-column packing, fit tests,
// smart-resize negotiation and preferred-size bookkeeping. Everything here
// is pure computation over window states; geometry commands are issued by
// the callers.
package tiling

import (
	"sort"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

// Options collects the layout tunables.
type Options struct {
	Spacing   int
	Tolerance int

	MinWidth  int
	MinHeight int
	// Relaxed floors substitute during in-progress transitions.
	RelaxedMinWidth  int
	RelaxedMinHeight int

	SmallFraction float64
	LargeFraction float64
	FloorRatio    float64
}

// OptionsFromConfig maps config knobs onto layout options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Spacing:          cfg.Spacing,
		Tolerance:        cfg.ColumnAlignmentTolerance,
		MinWidth:         cfg.MinWindowWidth,
		MinHeight:        cfg.MinWindowHeight,
		RelaxedMinWidth:  cfg.RelaxedMinWidth,
		RelaxedMinHeight: cfg.RelaxedMinHeight,
		SmallFraction:    cfg.SmallAreaFraction,
		LargeFraction:    cfg.LargeAreaFraction,
		FloorRatio:       cfg.ShrinkFloorRatio,
	}
}

// Placement assigns one window its rectangle.
type Placement struct {
	ID   platform.WindowID
	Rect platform.Rect
}

// Layout is the computed arrangement for one (desktop, monitor) pair.
type Layout struct {
	Placements []Placement
	byID       map[platform.WindowID]platform.Rect
}

// Rect returns the rectangle assigned to id.
func (l Layout) Rect(id platform.WindowID) (platform.Rect, bool) {
	r, ok := l.byID[id]
	return r, ok
}

// FitsWithin reports whether every placement lies inside the work area.
func (l Layout) FitsWithin(workArea platform.Rect) bool {
	for _, p := range l.Placements {
		r := p.Rect
		if r.X < workArea.X || r.Y < workArea.Y ||
			r.X+r.Width > workArea.X+workArea.Width ||
			r.Y+r.Height > workArea.Y+workArea.Height {
			return false
		}
	}
	return true
}

// MeetsMinimum reports whether every placement satisfies the size floor.
func (l Layout) MeetsMinimum(minWidth, minHeight int) bool {
	for _, p := range l.Placements {
		if p.Rect.Width < minWidth || p.Rect.Height < minHeight {
			return false
		}
	}
	return true
}

// Overlapping reports whether any two placements share area.
func (l Layout) Overlapping() bool {
	for i := 0; i < len(l.Placements); i++ {
		for j := i + 1; j < len(l.Placements); j++ {
			if l.Placements[i].Rect.Overlaps(l.Placements[j].Rect) {
				return true
			}
		}
	}
	return false
}

// column is one virtual column being assembled.
type column struct {
	centerX int
	first   uint64
	members []*winstate.State
}

// sizeOf returns the effective size of a window under the override map.
func sizeOf(s *winstate.State, override map[platform.WindowID]winstate.Size) (int, int) {
	if override != nil {
		if sz, ok := override[s.ID]; ok {
			return sz.Width, sz.Height
		}
	}
	return s.Frame.Width, s.Frame.Height
}

// ComputeLayout packs windows into virtual columns: windows whose horizontal
// centers lie within the alignment tolerance share a column and stack
// top-to-bottom; columns are ordered left-to-right. Arrival order is the
// tie-break, so the result is deterministic for a fixed input set. override
// substitutes window sizes without touching the states.
func ComputeLayout(workArea platform.Rect, windows []*winstate.State, opts Options, override map[platform.WindowID]winstate.Size) Layout {
	ordered := make([]*winstate.State, len(windows))
	copy(ordered, windows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Arrival < ordered[j].Arrival })

	// Group by horizontal center within tolerance. The first member's
	// center anchors the column.
	var columns []*column
	for _, s := range ordered {
		cx := s.Frame.CenterX()
		var target *column
		for _, col := range columns {
			if abs(cx-col.centerX) <= opts.Tolerance {
				target = col
				break
			}
		}
		if target == nil {
			target = &column{centerX: cx, first: s.Arrival}
			columns = append(columns, target)
		}
		target.members = append(target.members, s)
	}

	// Columns left to right by anchor center, arrival as tie-break.
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].centerX != columns[j].centerX {
			return columns[i].centerX < columns[j].centerX
		}
		return columns[i].first < columns[j].first
	})

	// Members top to bottom by current Y, arrival as tie-break.
	for _, col := range columns {
		sort.SliceStable(col.members, func(i, j int) bool {
			yi, yj := col.members[i].Frame.Y, col.members[j].Frame.Y
			if yi != yj {
				return yi < yj
			}
			return col.members[i].Arrival < col.members[j].Arrival
		})
	}

	layout := Layout{byID: make(map[platform.WindowID]platform.Rect, len(windows))}
	x := workArea.X + opts.Spacing
	for _, col := range columns {
		colWidth := 0
		for _, s := range col.members {
			w, _ := sizeOf(s, override)
			if w > colWidth {
				colWidth = w
			}
		}

		y := workArea.Y + opts.Spacing
		for _, s := range col.members {
			w, h := sizeOf(s, override)
			rect := platform.Rect{X: x, Y: y, Width: w, Height: h}
			layout.Placements = append(layout.Placements, Placement{ID: s.ID, Rect: rect})
			layout.byID[s.ID] = rect
			y += h + opts.Spacing
		}

		x += colWidth + opts.Spacing
	}

	return layout
}

// CanFit simulates adding (or resizing) candidate among peers and reports
// whether the resulting layout keeps every window inside the work area and
// above the minimum size. relaxed substitutes the lower transition floor.
// override, when non-nil, proposes a size for the candidate.
func CanFit(workArea platform.Rect, peers []*winstate.State, candidate *winstate.State, opts Options, relaxed bool, override *winstate.Size) bool {
	all := make([]*winstate.State, 0, len(peers)+1)
	for _, p := range peers {
		if p.ID == candidate.ID {
			continue
		}
		all = append(all, p)
	}
	all = append(all, candidate)

	var overrides map[platform.WindowID]winstate.Size
	if override != nil {
		overrides = map[platform.WindowID]winstate.Size{candidate.ID: *override}
	}

	layout := ComputeLayout(workArea, all, opts, overrides)

	minW, minH := opts.MinWidth, opts.MinHeight
	if relaxed {
		minW, minH = opts.RelaxedMinWidth, opts.RelaxedMinHeight
	}
	return layout.FitsWithin(workArea) && layout.MeetsMinimum(minW, minH) && !layout.Overlapping()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
