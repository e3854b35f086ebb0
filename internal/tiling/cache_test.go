package tiling

import (
	"testing"

	"github.com/rivenirvana/MosaicWM-sub002/internal/platform"
	"github.com/rivenirvana/MosaicWM-sub002/internal/winstate"
)

func TestCacheHitAndInvalidation(t *testing.T) {
	workArea := platform.Rect{Width: 1920, Height: 1080}
	opts := testOptions()
	store := winstate.NewStore()
	wins := makeWindows(store,
		platform.Rect{X: 8, Y: 8, Width: 600, Height: 400},
		platform.Rect{X: 700, Y: 8, Width: 600, Height: 400},
	)

	cache := NewCache()
	fp := Fingerprint(workArea, wins, opts)
	if fp == 0 {
		t.Fatalf("fingerprint should not be zero for valid input")
	}
	if _, ok := cache.Get(0, 0, fp); ok {
		t.Fatalf("unexpected hit on empty cache")
	}

	layout := ComputeLayout(workArea, wins, opts, nil)
	cache.Put(0, 0, fp, layout)

	got, ok := cache.Get(0, 0, fp)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got.Placements) != len(layout.Placements) {
		t.Fatalf("cached layout differs")
	}

	// A geometry change produces a different fingerprint, so the stale
	// entry cannot be read.
	wins[0].Frame.Width = 620
	if fp2 := Fingerprint(workArea, wins, opts); fp2 == fp {
		t.Fatalf("fingerprint unchanged after geometry change")
	} else if _, ok := cache.Get(0, 0, fp2); ok {
		t.Fatalf("stale entry served for new fingerprint")
	}

	cache.Invalidate(0, 0)
	if _, ok := cache.Get(0, 0, fp); ok {
		t.Fatalf("entry survived invalidation")
	}
}

func TestOpenQueueAppliesInArrivalOrder(t *testing.T) {
	q := NewOpenQueue()

	var got []int
	q.Enqueue(0, 0, 1, func() { got = append(got, 1) })
	q.Enqueue(0, 0, 2, func() { got = append(got, 2) })
	q.Enqueue(0, 0, 3, func() { got = append(got, 3) })

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("only the head action should have run, got %v", got)
	}
	if q.Pending(0, 0) != 3 {
		t.Fatalf("expected 3 pending, got %d", q.Pending(0, 0))
	}

	q.Done(0, 0)
	q.Done(0, 0)
	q.Done(0, 0)

	for i, v := range got {
		if v != i+1 {
			t.Fatalf("expected FIFO application, got %v", got)
		}
	}
	if q.Pending(0, 0) != 0 {
		t.Fatalf("queue should be drained")
	}
}

func TestOpenQueueDropRemovesDeadEntry(t *testing.T) {
	q := NewOpenQueue()

	var got []int
	q.Enqueue(0, 0, 1, func() { got = append(got, 1) })
	q.Enqueue(0, 0, 2, func() { got = append(got, 2) })
	q.Enqueue(0, 0, 3, func() { got = append(got, 3) })

	q.Drop(0, 0, 2)
	q.Done(0, 0)
	q.Done(0, 0)

	if len(got) != 2 || got[1] != 3 {
		t.Fatalf("expected window 2 to be skipped, got %v", got)
	}
}

func TestPreferredSizeSuppressionDuringTransition(t *testing.T) {
	store := winstate.NewStore()
	s := store.Ensure(1)
	s.Frame = platform.Rect{Width: 800, Height: 600}
	s.Phase = winstate.PhaseSettled

	SavePreferredSize(s)
	if s.PreferredSize.Width != 800 {
		t.Fatalf("expected preferred width 800, got %d", s.PreferredSize.Width)
	}

	s.Sacred = winstate.Sacred{Kind: winstate.SacredActive}
	s.Frame = platform.Rect{Width: 1920, Height: 1080}
	SavePreferredSize(s)
	if s.PreferredSize.Width != 800 {
		t.Fatalf("transition frame must not be captured, got %d", s.PreferredSize.Width)
	}

	s.Sacred = winstate.Sacred{}
	RecordFirstPlacement(s)
	if s.PreferredSize.Width != 800 {
		t.Fatalf("first-placement capture must not overwrite an existing preferred size")
	}
}
