package tiling

import (
	"github.com/mitchellh/hashstructure/v2"

	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

type cacheKey struct {
	desktop int
	monitor int
}

type cacheEntry struct {
	fingerprint uint64
	layout      Layout
}

// Cache memoizes computed layouts per (desktop, monitor), keyed by a
// fingerprint of the exact inputs. The engine invalidates on every geometry
// signal, so a hit is only possible when nothing about the window set
// changed since the last computation.
type Cache struct {
	entries map[cacheKey]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry)}
}

// fingerprintInput mirrors everything ComputeLayout reads.
type fingerprintInput struct {
	WorkArea platform.Rect
	Spacing  int
	Windows  []fingerprintWindow
}

type fingerprintWindow struct {
	ID      platform.WindowID
	Frame   platform.Rect
	Arrival uint64
}

// Fingerprint hashes the layout inputs.
func Fingerprint(workArea platform.Rect, windows []*winstate.State, opts Options) uint64 {
	in := fingerprintInput{WorkArea: workArea, Spacing: opts.Spacing}
	for _, st := range windows {
		in.Windows = append(in.Windows, fingerprintWindow{ID: st.ID, Frame: st.Frame, Arrival: st.Arrival})
	}
	hash, err := hashstructure.Hash(in, hashstructure.FormatV2, nil)
	if err != nil {
		// Hashing plain structs cannot fail; returning zero just forces
		// a cache miss.
		return 0
	}
	return hash
}

// Get returns the cached layout when the fingerprint still matches.
func (c *Cache) Get(desktop, monitor int, fingerprint uint64) (Layout, bool) {
	e, ok := c.entries[cacheKey{desktop, monitor}]
	if !ok || fingerprint == 0 || e.fingerprint != fingerprint {
		return Layout{}, false
	}
	return e.layout, true
}

// Put stores a computed layout under its fingerprint.
func (c *Cache) Put(desktop, monitor int, fingerprint uint64, layout Layout) {
	if fingerprint == 0 {
		return
	}
	c.entries[cacheKey{desktop, monitor}] = cacheEntry{fingerprint: fingerprint, layout: layout}
}

// Invalidate drops the entry for one (desktop, monitor) pair.
func (c *Cache) Invalidate(desktop, monitor int) {
	delete(c.entries, cacheKey{desktop, monitor})
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.entries = make(map[cacheKey]cacheEntry)
}
