package reload

import "sync"

// Queue is a thread-safe, ordered event queue. The asset source's workers
// push from any goroutine; the coordinator drains it entirely at the start
// of a tick, before the runner scan, so an artifact update and its effect
// on trackers land within the same tick.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event, preserving arrival order.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain removes and returns all queued events in order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	events := q.events
	q.events = nil
	q.mu.Unlock()
	return events
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
