package events

import "sync"

// Event is anything a transport hands to the main loop.
type Event interface{}

// Queue is an unbounded FIFO of events. Any goroutine may Push; only the main
// loop drains.
type Queue struct {
	mu    sync.Mutex
	items []Event
	ready chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends an event and wakes the main loop
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after a Push. A single signal may cover several events.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain hands every event queued so far to fn in arrival order and returns how
// many were handled. Events pushed while draining wait for the next call.
func (q *Queue) Drain(fn func(Event)) int {
	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()

	for _, ev := range batch {
		fn(ev)
	}
	return len(batch)
}

// Len returns the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
