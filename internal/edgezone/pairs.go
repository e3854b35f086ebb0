package edgezone

import "github.com/rivenirvana/MosaicWM-sub002/internal/platform"

// FixPair recomputes the sibling rectangle of a horizontally paired tile
// after one member was resized by hand. The invariant: both widths plus
// three spacing units span the work-area width, both members keep the
// side's full height.
func FixPair(resized platform.Rect, resizedZone Zone, workArea platform.Rect, spacing int) (platform.Rect, bool) {
	if !resizedZone.IsHalf() && !resizedZone.IsFull() {
		return platform.Rect{}, false
	}
	fullH := workArea.Height - 2*spacing
	sibW := workArea.Width - 3*spacing - resized.Width
	if sibW < 1 {
		return platform.Rect{}, false
	}
	sib := platform.Rect{Y: workArea.Y + spacing, Width: sibW, Height: fullH}
	if resizedZone.OnLeftSide() {
		sib.X = resized.X + resized.Width + spacing
	} else {
		sib.X = workArea.X + spacing
	}
	return sib, true
}

// FixQuarterPair recomputes the vertical sibling of a resized quarter:
// both heights plus three spacing units span the work-area height, the
// sibling keeps the resized member's column and width.
func FixQuarterPair(resized platform.Rect, resizedZone Zone, workArea platform.Rect, spacing int) (platform.Rect, bool) {
	if !resizedZone.IsQuarter() {
		return platform.Rect{}, false
	}
	sibH := workArea.Height - 3*spacing - resized.Height
	if sibH < 1 {
		return platform.Rect{}, false
	}
	sib := platform.Rect{X: resized.X, Width: resized.Width, Height: sibH}
	if resizedZone == ZoneNW || resizedZone == ZoneNE {
		sib.Y = resized.Y + resized.Height + spacing
	} else {
		sib.Y = workArea.Y + spacing
	}
	return sib, true
}

// FixAfterEdgeResize picks the pair repair for the resized zone and
// returns the sibling zone whose occupant should receive the rectangle.
func FixAfterEdgeResize(resized platform.Rect, resizedZone Zone, workArea platform.Rect, spacing int) (Zone, platform.Rect, bool) {
	switch {
	case resizedZone.IsHalf(), resizedZone.IsFull():
		rect, ok := FixPair(resized, resizedZone, workArea, spacing)
		return resizedZone.HorizontalSibling(), rect, ok
	case resizedZone.IsQuarter():
		rect, ok := FixQuarterPair(resized, resizedZone, workArea, spacing)
		return resizedZone.VerticalSibling(), rect, ok
	}
	return ZoneNone, platform.Rect{}, false
}

// RemainingSpace carves the columns held by edge-tiled windows off the
// work area, leaving the packing region for mosaic-tiled windows. A tile
// on the left side advances the left boundary, one on the right side
// pulls the right boundary in; the result can be empty.
func RemainingSpace(workArea platform.Rect, occupied []platform.Rect, spacing int) platform.Rect {
	left := workArea.X
	right := workArea.X + workArea.Width
	mid := workArea.CenterX()
	for _, r := range occupied {
		if r.Empty() {
			continue
		}
		if r.CenterX() < mid {
			if edge := r.X + r.Width + spacing; edge > left {
				left = edge
			}
		} else {
			if edge := r.X - spacing; edge < right {
				right = edge
			}
		}
	}
	out := platform.Rect{X: left, Y: workArea.Y, Width: right - left, Height: workArea.Height}
	if out.Empty() {
		return platform.Rect{X: workArea.X, Y: workArea.Y}
	}
	return out
}

// QuarterExpansion checks whether vacating a zone leaves a lone quarter on
// that side and, if so, returns the occupant together with the full-side
// zone it may expand into.
func QuarterExpansion(reg *Registry, desktop, monitor int, vacated Zone) (platform.WindowID, Zone, bool) {
	if !vacated.IsQuarter() {
		return 0, ZoneNone, false
	}
	id, ok := reg.Occupant(desktop, monitor, vacated.VerticalSibling())
	if !ok {
		return 0, ZoneNone, false
	}
	return id, vacated.FullSide(), true
}
