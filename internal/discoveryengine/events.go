package discoveryengine

import (
	"sync"

	"github.com/google/uuid"

	"gitlab.com/fbworkers.net/internal/domain"
)

type EventType int

const (
	// EventCountChanged fires when a cycle publishes a different worker count.
	EventCountChanged EventType = iota + 1
	// EventListChanged fires after every completed cycle.
	EventListChanged
)

func (t EventType) String() string {
	switch t {
	case EventCountChanged:
		return "count-changed"
	case EventListChanged:
		return "list-changed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after a cycle.
type Event struct {
	Type    EventType
	CycleID uuid.UUID
	Count   int
	// Workers is set on list-changed events.
	Workers []*domain.WorkerRecord
}

// Subscription receives engine events until closed. List events that do not
// fit in the buffer are dropped; a count change evicts the oldest queued
// event instead, so the latest count always arrives.
type Subscription struct {
	out    chan Event
	engine *Engine
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.out
}

// Close stops delivery and closes the events channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.engine.unsubscribe(s)
	})
}

// Subscribe registers a new subscriber with the given buffer size.
func (e *Engine) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{
		out:    make(chan Event, buffer),
		engine: e,
	}

	e.subsMu.Lock()
	e.subs = append(e.subs, sub)
	e.subsMu.Unlock()

	return sub
}

func (e *Engine) unsubscribe(sub *Subscription) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	close(sub.out)
}

func (e *Engine) emit(ev Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for _, sub := range e.subs {
		if !deliver(sub, ev) {
			e.logger.Warn("Dropping discovery event for slow subscriber", "event", ev.Type.String(), "cycleId", ev.CycleID)
		}
	}
}

// deliver never blocks. Callers hold subsMu, so once a slot is freed the
// second send cannot fail.
func deliver(sub *Subscription, ev Event) bool {
	select {
	case sub.out <- ev:
		return true
	default:
	}
	if ev.Type != EventCountChanged {
		return false
	}

	select {
	case <-sub.out:
	default:
	}
	select {
	case sub.out <- ev:
		return true
	default:
		return false
	}
}
