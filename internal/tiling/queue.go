package tiling

import "github.com/rivenirvana/MosaicWM-sub002/internal/platform"

type queueKey struct {
	desktop int
	monitor int
}

type queued struct {
	id     platform.WindowID
	action func()
}

// OpenQueue serializes "new window wants to join the layout" work per
// (desktop, monitor): overlapping arrivals apply in arrival order instead
// of racing. Enqueue runs the action immediately when the queue is empty;
// Done pops the head and runs the next.
type OpenQueue struct {
	queues map[queueKey][]queued
}

func NewOpenQueue() *OpenQueue {
	return &OpenQueue{queues: make(map[queueKey][]queued)}
}

// Enqueue adds a join action. If nothing is ahead of it, the action runs
// before Enqueue returns.
func (q *OpenQueue) Enqueue(desktop, monitor int, id platform.WindowID, action func()) {
	key := queueKey{desktop, monitor}
	q.queues[key] = append(q.queues[key], queued{id: id, action: action})
	if len(q.queues[key]) == 1 {
		action()
	}
}

// Done marks the head action finished and starts the next, if any.
func (q *OpenQueue) Done(desktop, monitor int) {
	key := queueKey{desktop, monitor}
	entries := q.queues[key]
	if len(entries) == 0 {
		return
	}
	entries = entries[1:]
	if len(entries) == 0 {
		delete(q.queues, key)
		return
	}
	q.queues[key] = entries
	entries[0].action()
}

// Drop removes a queued window that died before its turn. The head entry is
// only removable via Done.
func (q *OpenQueue) Drop(desktop, monitor int, id platform.WindowID) {
	key := queueKey{desktop, monitor}
	entries := q.queues[key]
	for i := 1; i < len(entries); i++ {
		if entries[i].id == id {
			q.queues[key] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued entries for the pair.
func (q *OpenQueue) Pending(desktop, monitor int) int {
	return len(q.queues[queueKey{desktop, monitor}])
}
