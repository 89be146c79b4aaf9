// Package queue holds accepted attendance events that could not be
// delivered to storage, until an operator asks for redelivery.
package queue

import (
	"sync"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Event is the payload type held by the queue.
type Event = model.AttendanceEvent

// InMemoryQueue is a bounded FIFO backed by a buffered channel.
// Enqueue never blocks; a full or closed queue rejects the event.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdatePendingCapacity(q.capacity)
	metrics.UpdatePendingDeliveries(0)
	return q
}

// Enqueue adds an event to the tail of the queue.
func (q *InMemoryQueue) Enqueue(e Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.events <- e:
		metrics.UpdatePendingDeliveries(len(q.events))
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// TryDequeue removes the head event without blocking. Events queued before
// Close can still be drained.
func (q *InMemoryQueue) TryDequeue() (Event, bool) {
	select {
	case e, ok := <-q.events:
		if !ok {
			return Event{}, false
		}
		metrics.UpdatePendingDeliveries(len(q.events))
		return e, true
	default:
		return Event{}, false
	}
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close rejects further events. Queued events remain available to TryDequeue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
