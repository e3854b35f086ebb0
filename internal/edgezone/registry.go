package edgezone

import "github.com/rivenirvana/MosaicWM-sub002/internal/platform"

type regKey struct {
	desktop int
	monitor int
}

// Registry tracks zone occupancy per (desktop, monitor). A zone holds at
// most one window and a window holds at most one zone; a full side
// additionally blocks the half and quarter slots of that side. Mutated
// only on the scheduler goroutine.
type Registry struct {
	zones map[regKey]map[Zone]platform.WindowID
}

func NewRegistry() *Registry {
	return &Registry{zones: make(map[regKey]map[Zone]platform.WindowID)}
}

// conflicts lists the zones that cannot coexist with z on one side.
func conflicts(z Zone) []Zone {
	switch z {
	case ZoneLeftHalf:
		return []Zone{ZoneLeftFull, ZoneNW, ZoneSW}
	case ZoneRightHalf:
		return []Zone{ZoneRightFull, ZoneNE, ZoneSE}
	case ZoneLeftFull:
		return []Zone{ZoneLeftHalf, ZoneNW, ZoneSW}
	case ZoneRightFull:
		return []Zone{ZoneRightHalf, ZoneNE, ZoneSE}
	case ZoneNW:
		return []Zone{ZoneLeftHalf, ZoneLeftFull}
	case ZoneSW:
		return []Zone{ZoneLeftHalf, ZoneLeftFull}
	case ZoneNE:
		return []Zone{ZoneRightHalf, ZoneRightFull}
	case ZoneSE:
		return []Zone{ZoneRightHalf, ZoneRightFull}
	}
	return nil
}

// Claim registers id as the occupant of zone. It fails when the zone, or a
// zone it geometrically excludes, is held by another window. A successful
// claim releases any zone the window held before.
func (r *Registry) Claim(desktop, monitor int, zone Zone, id platform.WindowID) bool {
	if zone == ZoneNone {
		return false
	}
	key := regKey{desktop, monitor}
	slots := r.zones[key]
	if occupant, ok := slots[zone]; ok && occupant != id {
		return false
	}
	for _, c := range conflicts(zone) {
		if occupant, ok := slots[c]; ok && occupant != id {
			return false
		}
	}
	r.Release(desktop, monitor, id)
	if r.zones[key] == nil {
		r.zones[key] = make(map[Zone]platform.WindowID)
	}
	r.zones[key][zone] = id
	return true
}

// Release drops whatever zone the window holds on (desktop, monitor) and
// returns it, or ZoneNone when the window held nothing.
func (r *Registry) Release(desktop, monitor int, id platform.WindowID) Zone {
	key := regKey{desktop, monitor}
	for z, occupant := range r.zones[key] {
		if occupant == id {
			delete(r.zones[key], z)
			if len(r.zones[key]) == 0 {
				delete(r.zones, key)
			}
			return z
		}
	}
	return ZoneNone
}

// Occupant returns the window holding zone, if any.
func (r *Registry) Occupant(desktop, monitor int, zone Zone) (platform.WindowID, bool) {
	id, ok := r.zones[regKey{desktop, monitor}][zone]
	return id, ok
}

// ZoneOf returns the zone held by id on (desktop, monitor).
func (r *Registry) ZoneOf(desktop, monitor int, id platform.WindowID) Zone {
	for z, occupant := range r.zones[regKey{desktop, monitor}] {
		if occupant == id {
			return z
		}
	}
	return ZoneNone
}

// Occupied returns an Occupancy view bound to one (desktop, monitor).
func (r *Registry) Occupied(desktop, monitor int) Occupancy {
	return func(z Zone) bool {
		_, ok := r.Occupant(desktop, monitor, z)
		return ok
	}
}

// Tiled returns every (zone, window) pair on (desktop, monitor).
func (r *Registry) Tiled(desktop, monitor int) map[Zone]platform.WindowID {
	slots := r.zones[regKey{desktop, monitor}]
	if len(slots) == 0 {
		return nil
	}
	out := make(map[Zone]platform.WindowID, len(slots))
	for z, id := range slots {
		out[z] = id
	}
	return out
}
