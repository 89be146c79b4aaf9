package attendance

import (
	"sync"

	"github.com/okian/rollcall/internal/domain/model"
)

// PendingQueue holds accepted events whose delivery failed.
type PendingQueue interface {
	Enqueue(ev model.AttendanceEvent) error
	TryDequeue() (model.AttendanceEvent, bool)
	Len() int
}

// slicePending is the unbounded fallback used when no queue is injected.
type slicePending struct {
	mu     sync.Mutex
	events []model.AttendanceEvent
}

func (p *slicePending) Enqueue(ev model.AttendanceEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *slicePending) TryDequeue() (model.AttendanceEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return model.AttendanceEvent{}, false
	}
	ev := p.events[0]
	p.events[0] = model.AttendanceEvent{}
	p.events = p.events[1:]
	return ev, true
}

func (p *slicePending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
