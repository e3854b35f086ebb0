package tiling

import (
	"testing"

	"github.com/rivenirvana/MosaicWM-sub002/internal/config"
	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

func testOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

func makeWindows(store *winstate.Store, frames ...platform.Rect) []*winstate.State {
	var out []*winstate.State
	for i, f := range frames {
		s := store.Ensure(platform.WindowID(i + 1))
		s.Frame = f
		s.Phase = winstate.PhaseSettled
		out = append(out, s)
	}
	return out
}

func TestComputeLayoutIsDeterministic(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	store := winstate.NewStore()
	wins := makeWindows(store,
		platform.Rect{X: 100, Y: 50, Width: 600, Height: 400},
		platform.Rect{X: 120, Y: 500, Width: 580, Height: 300},
		platform.Rect{X: 900, Y: 60, Width: 500, Height: 700},
	)

	first := ComputeLayout(workArea, wins, testOptions(), nil)
	second := ComputeLayout(workArea, wins, testOptions(), nil)

	if len(first.Placements) != len(second.Placements) {
		t.Fatalf("placement counts differ: %d vs %d", len(first.Placements), len(second.Placements))
	}
	for i := range first.Placements {
		if first.Placements[i] != second.Placements[i] {
			t.Fatalf("placement %d differs: %+v vs %+v", i, first.Placements[i], second.Placements[i])
		}
	}
}

func TestComputeLayoutGroupsAlignedCenters(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	opts := testOptions()
	store := winstate.NewStore()
	// Windows 1 and 2 have centers within tolerance, window 3 far right.
	wins := makeWindows(store,
		platform.Rect{X: 100, Y: 50, Width: 600, Height: 400},
		platform.Rect{X: 130, Y: 500, Width: 560, Height: 300},
		platform.Rect{X: 1200, Y: 60, Width: 500, Height: 700},
	)

	layout := ComputeLayout(workArea, wins, opts, nil)

	r1, _ := layout.Rect(1)
	r2, _ := layout.Rect(2)
	r3, _ := layout.Rect(3)

	if r1.X != r2.X {
		t.Fatalf("aligned windows should share a column x: %d vs %d", r1.X, r2.X)
	}
	if r2.Y != r1.Y+r1.Height+opts.Spacing {
		t.Fatalf("stacked window y: expected %d, got %d", r1.Y+r1.Height+opts.Spacing, r2.Y)
	}
	if r3.X <= r1.X {
		t.Fatalf("right column should be placed after the left one")
	}
	if layout.Overlapping() {
		t.Fatalf("layout has overlapping rectangles")
	}
}

func TestComputeLayoutValidity(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	opts := testOptions()
	store := winstate.NewStore()
	wins := makeWindows(store,
		platform.Rect{X: 10, Y: 10, Width: 500, Height: 400},
		platform.Rect{X: 700, Y: 10, Width: 500, Height: 400},
		platform.Rect{X: 1300, Y: 10, Width: 300, Height: 900},
	)

	layout := ComputeLayout(workArea, wins, opts, nil)
	if layout.Overlapping() {
		t.Fatalf("produced overlapping rectangles")
	}
	if !layout.FitsWithin(workArea) {
		t.Fatalf("layout escapes the work area")
	}
	if !layout.MeetsMinimum(opts.MinWidth, opts.MinHeight) {
		t.Fatalf("layout violates the minimum size")
	}
}

func TestCanFitRejectsOverflow(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	opts := testOptions()
	store := winstate.NewStore()
	wins := makeWindows(store,
		platform.Rect{X: 8, Y: 8, Width: 1000, Height: 800},
		platform.Rect{X: 1016, Y: 8, Width: 1000, Height: 800},
	)

	if CanFit(workArea, wins[:1], wins[1], opts, false, nil) {
		t.Fatalf("two 1000px windows cannot fit side by side in 1920px")
	}

	smaller := winstate.Size{Width: 900, Height: 800}
	if !CanFit(workArea, wins[:1], wins[1], opts, false, &smaller) {
		t.Fatalf("900px override should fit next to a 1000px window")
	}
}
