package edgezone

import "github.com/rivenirvana/MosaicWM-sub002/internal/platform"

// Occupancy answers whether a zone currently has an occupant. Detect only
// reads it; the Registry provides a bound implementation.
type Occupancy func(Zone) bool

// Detect maps a pointer position to a snap zone. Corners win over edges:
// a pointer within the corner threshold of two adjacent borders yields a
// quarter; a pointer within the edge threshold of the left or right border
// yields the half zone. A quarter is promoted to its side's full zone when
// the opposite half of that side is unoccupied, so the first window dropped
// on a corner takes the whole side and the second splits it.
func Detect(px, py int, workArea platform.Rect, occ Occupancy, edgeThreshold, cornerThreshold int) Zone {
	if !workArea.Contains(px, py) {
		return ZoneNone
	}

	nearLeft := px-workArea.X < edgeThreshold
	nearRight := workArea.X+workArea.Width-px <= edgeThreshold
	nearTop := py-workArea.Y < cornerThreshold
	nearBottom := workArea.Y+workArea.Height-py <= cornerThreshold

	var quarter Zone
	switch {
	case nearLeft && nearTop:
		quarter = ZoneNW
	case nearLeft && nearBottom:
		quarter = ZoneSW
	case nearRight && nearTop:
		quarter = ZoneNE
	case nearRight && nearBottom:
		quarter = ZoneSE
	}
	if quarter != ZoneNone {
		if occ == nil || !occ(quarter.VerticalSibling()) {
			return quarter.FullSide()
		}
		return quarter
	}

	switch {
	case nearLeft:
		return ZoneLeftHalf
	case nearRight:
		return ZoneRightHalf
	}
	return ZoneNone
}
