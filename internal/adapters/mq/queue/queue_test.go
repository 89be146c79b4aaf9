package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/model"
)

func event(id string) model.AttendanceEvent {
	return model.AttendanceEvent{ID: id, InternalID: 1, DisplayName: "Alice", Location: "Main", Timestamp: time.Unix(0, 0)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if _, ok := q.TryDequeue(); ok {
		t.Error("expected empty queue to yield nothing")
	}

	if err := q.Enqueue(event("event1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e, ok := q.TryDequeue()
	if !ok || e.ID != "event1" {
		t.Errorf("expected event1, got %v (ok=%v)", e.ID, ok)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))

	if err := q.Enqueue(event("event1")); err != nil {
		t.Error("expected enqueue to succeed")
	}
	if err := q.Enqueue(event("event2")); err != nil {
		t.Error("expected enqueue to succeed")
	}

	err := q.Enqueue(event("event3"))
	if !errors.Is(err, ErrFull) || !errors.Is(err, attendance.ErrPendingFull) {
		t.Errorf("expected full error, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(event(fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		e, ok := q.TryDequeue()
		if !ok || e.ID != fmt.Sprintf("e%d", i) {
			t.Fatalf("expected e%d, got %q", i, e.ID)
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	numGoroutines := 10
	numEvents := 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numEvents; j++ {
				if err := q.Enqueue(event(fmt.Sprintf("event-%d-%d", id, j))); err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(); l != numGoroutines*numEvents {
		t.Errorf("expected length %d, got %d", numGoroutines*numEvents, l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))

	if err := q.Enqueue(event("event1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	if err := q.Enqueue(event("event2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	e, ok := q.TryDequeue()
	if !ok || e.ID != "event1" {
		t.Errorf("expected queued event to survive close, got %q", e.ID)
	}
	if _, ok := q.TryDequeue(); ok {
		t.Error("expected drained closed queue to yield nothing")
	}
}

var _ attendance.PendingQueue = (*InMemoryQueue)(nil)
