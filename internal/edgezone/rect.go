package edgezone

import "github.com/rivenirvana/MosaicWM-sub002/internal/platform"

// ZoneRect returns the target rectangle for a zone inside the work area.
// Halves and full sides share the side's full-height rectangle; quarters
// are the side's rectangle split at the horizontal midline. Pair widths
// satisfy the invariant: both members together span the work-area width
// minus three spacing units, and a quarter pair spans the work-area
// height minus three spacing units.
func ZoneRect(zone Zone, workArea platform.Rect, spacing int) platform.Rect {
	leftW := (workArea.Width - 3*spacing) / 2
	rightW := workArea.Width - 3*spacing - leftW
	topH := (workArea.Height - 3*spacing) / 2
	bottomH := workArea.Height - 3*spacing - topH

	fullH := workArea.Height - 2*spacing
	leftX := workArea.X + spacing
	rightX := workArea.X + 2*spacing + leftW
	topY := workArea.Y + spacing
	bottomY := workArea.Y + 2*spacing + topH

	switch zone {
	case ZoneLeftHalf, ZoneLeftFull:
		return platform.Rect{X: leftX, Y: topY, Width: leftW, Height: fullH}
	case ZoneRightHalf, ZoneRightFull:
		return platform.Rect{X: rightX, Y: topY, Width: rightW, Height: fullH}
	case ZoneNW:
		return platform.Rect{X: leftX, Y: topY, Width: leftW, Height: topH}
	case ZoneNE:
		return platform.Rect{X: rightX, Y: topY, Width: rightW, Height: topH}
	case ZoneSW:
		return platform.Rect{X: leftX, Y: bottomY, Width: leftW, Height: bottomH}
	case ZoneSE:
		return platform.Rect{X: rightX, Y: bottomY, Width: rightW, Height: bottomH}
	}
	return platform.Rect{}
}

// OnLeftSide reports whether the zone occupies the left column.
func (z Zone) OnLeftSide() bool {
	return z == ZoneLeftHalf || z == ZoneLeftFull || z == ZoneNW || z == ZoneSW
}

// OnRightSide reports whether the zone occupies the right column.
func (z Zone) OnRightSide() bool {
	return z == ZoneRightHalf || z == ZoneRightFull || z == ZoneNE || z == ZoneSE
}

// FullSide returns the full-side zone for the side z occupies.
func (z Zone) FullSide() Zone {
	switch {
	case z.OnLeftSide():
		return ZoneLeftFull
	case z.OnRightSide():
		return ZoneRightFull
	}
	return ZoneNone
}
