package client

import "sync"

// eventQueue is an unbounded FIFO of closures. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	events []func()
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(fn func()) {
	q.mu.Lock()
	q.events = append(q.events, fn)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) ready() <-chan struct{} {
	return q.signal
}

func (q *eventQueue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}
