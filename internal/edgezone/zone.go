// Package edgezone manages snap zones: pointer-driven zone detection, zone
// geometry, per-desktop occupancy and the paired-tile invariants.
package edgezone

// Zone identifies an edge snap position.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneLeftHalf
	ZoneRightHalf
	ZoneLeftFull
	ZoneRightFull
	ZoneNW
	ZoneNE
	ZoneSW
	ZoneSE
)

func (z Zone) String() string {
	switch z {
	case ZoneNone:
		return "none"
	case ZoneLeftHalf:
		return "left-half"
	case ZoneRightHalf:
		return "right-half"
	case ZoneLeftFull:
		return "left-full"
	case ZoneRightFull:
		return "right-full"
	case ZoneNW:
		return "nw"
	case ZoneNE:
		return "ne"
	case ZoneSW:
		return "sw"
	case ZoneSE:
		return "se"
	}
	return "unknown"
}

// IsQuarter reports whether the zone is a corner quarter.
func (z Zone) IsQuarter() bool {
	switch z {
	case ZoneNW, ZoneNE, ZoneSW, ZoneSE:
		return true
	}
	return false
}

// IsHalf reports whether the zone is a half side.
func (z Zone) IsHalf() bool {
	return z == ZoneLeftHalf || z == ZoneRightHalf
}

// IsFull reports whether the zone spans a full side.
func (z Zone) IsFull() bool {
	return z == ZoneLeftFull || z == ZoneRightFull
}

// HorizontalSibling returns the zone paired across the vertical midline:
// halves pair with each other, quarters with their horizontal neighbor.
func (z Zone) HorizontalSibling() Zone {
	switch z {
	case ZoneLeftHalf:
		return ZoneRightHalf
	case ZoneRightHalf:
		return ZoneLeftHalf
	case ZoneNW:
		return ZoneNE
	case ZoneNE:
		return ZoneNW
	case ZoneSW:
		return ZoneSE
	case ZoneSE:
		return ZoneSW
	}
	return ZoneNone
}

// VerticalSibling returns the quarter paired across the horizontal midline.
func (z Zone) VerticalSibling() Zone {
	switch z {
	case ZoneNW:
		return ZoneSW
	case ZoneSW:
		return ZoneNW
	case ZoneNE:
		return ZoneSE
	case ZoneSE:
		return ZoneNE
	}
	return ZoneNone
}
