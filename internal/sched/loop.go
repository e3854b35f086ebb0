// Package sched provides the engine's scheduling primitive: one run loop
// goroutine that executes all posted, delayed and idle callbacks, so every
// engine mutation is serialized without locks.
package sched

import (
	"sort"
	"sync"
	"time"
)

// entry is a scheduled callback. canceled is guarded by the loop mutex.
type entry struct {
	seq      uint64
	deadline time.Time
	fn       func()
	canceled bool
}

// Handle cancels a scheduled callback. The zero Handle is a no-op. Cancel is
// idempotent and safe after the callback has fired.
type Handle struct {
	loop *Loop
	e    *entry
}

// Cancel prevents the callback from running if it has not run yet.
func (h Handle) Cancel() {
	if h.loop == nil || h.e == nil {
		return
	}
	h.loop.mu.Lock()
	h.e.canceled = true
	h.loop.mu.Unlock()
}

// Loop owns a single goroutine on which all callbacks execute. Callbacks
// registered with equal deadlines fire in registration order.
type Loop struct {
	mu    sync.Mutex
	queue []*entry
	seq   uint64

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewLoop creates a loop. Call Run (or go Run) to start executing callbacks.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Run executes callbacks until Stop is called. Blocking.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		e, wait := l.next()
		if e != nil {
			if !l.isCanceled(e) {
				e.fn()
			}
			continue
		}

		if wait < 0 {
			select {
			case <-l.wake:
			case <-l.quit:
				return
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-l.wake:
			timer.Stop()
		case <-timer.C:
		case <-l.quit:
			timer.Stop()
			return
		}
	}
}

// Stop asks the loop to exit and waits for the goroutine to return. Pending
// callbacks are discarded.
func (l *Loop) Stop() {
	close(l.quit)
	<-l.done
}

// next pops the first due entry, or reports how long to wait for the next
// deadline. wait < 0 means the queue is empty.
func (l *Loop) next() (*entry, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, -1
	}
	head := l.queue[0]
	wait := time.Until(head.deadline)
	if wait > 0 {
		return nil, wait
	}
	l.queue = l.queue[1:]
	return head, 0
}

func (l *Loop) isCanceled(e *entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return e.canceled
}

// schedule inserts an entry in (deadline, registration) order and wakes the
// loop.
func (l *Loop) schedule(deadline time.Time, fn func()) Handle {
	l.mu.Lock()
	l.seq++
	e := &entry{seq: l.seq, deadline: deadline, fn: fn}
	i := sort.Search(len(l.queue), func(i int) bool {
		q := l.queue[i]
		if q.deadline.Equal(e.deadline) {
			return q.seq > e.seq
		}
		return q.deadline.After(e.deadline)
	})
	l.queue = append(l.queue, nil)
	copy(l.queue[i+1:], l.queue[i:])
	l.queue[i] = e
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return Handle{loop: l, e: e}
}

// Post runs fn on the loop as soon as possible, after already-due entries,
// in FIFO order.
func (l *Loop) Post(fn func()) {
	l.schedule(time.Now(), fn)
}

// After runs fn on the loop after d elapses.
func (l *Loop) After(d time.Duration, fn func()) Handle {
	return l.schedule(time.Now().Add(d), fn)
}

// Idle runs fn on the next idle cycle. Equivalent to After(0, fn) but reads
// better at call sites that defer work past the current event.
func (l *Loop) Idle(fn func()) Handle {
	return l.schedule(time.Now(), fn)
}

// Call runs fn on the loop and waits for it to finish. Must not be called
// from the loop goroutine itself.
func (l *Loop) Call(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-l.quit:
	}
}

// Poll runs step on the loop every interval until it returns true or timeout
// elapses, in which case expired runs instead. The timeout arm always fires,
// so no wait is unbounded. expired may be nil.
func (l *Loop) Poll(interval, timeout time.Duration, step func() bool, expired func()) {
	deadline := time.Now().Add(timeout)
	var tick func()
	tick = func() {
		if step() {
			return
		}
		if !time.Now().Add(interval).Before(deadline) {
			if expired != nil {
				l.After(time.Until(deadline), expired)
			}
			return
		}
		l.After(interval, tick)
	}
	l.Post(tick)
}

// Debouncer coalesces triggers: each Trigger cancels the previous pending
// callback, so only the latest survives. All fields are touched only on the
// loop goroutine, which is what makes them plain fields.
type Debouncer struct {
	Loop  *Loop
	Delay time.Duration

	pending Handle
}

// Trigger schedules fn after Delay, replacing any pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.pending.Cancel()
	d.pending = d.Loop.After(d.Delay, fn)
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.pending.Cancel()
	d.pending = Handle{}
}
