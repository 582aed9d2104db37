package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/logging"
)

// EventKind identifies an attempt milestone.
type EventKind string

const (
	EventStarted         EventKind = "started"
	EventFilesFound      EventKind = "files_found"
	EventFilesNotFound   EventKind = "files_not_found"
	EventRetryScheduled  EventKind = "retry_scheduled"
	EventCompleted       EventKind = "completed"
	EventError           EventKind = "error"
	EventManualTriggered EventKind = "manual_triggered"
)

// Event is delivered to listeners. Files, Outcome, and Err are set only for
// the kinds that carry them.
type Event struct {
	Kind      EventKind
	AttemptID string
	Trigger   Trigger
	Message   string
	Files     []discovery.File
	Outcome   *Outcome
	Err       error
	Timestamp time.Time
}

// Listener observes events. Listeners run on the publishing goroutine, which
// during an attempt still holds the run guard.
type Listener func(Event)

type subscription struct {
	id       uint64
	listener Listener
}

// Bus fans events out to listeners in registration order.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus constructs an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logging.NewComponentLogger(logger, "events")}
}

// Subscribe registers l and returns a function that removes it.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, listener: l})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers evt to every listener. A panicking listener is logged and
// skipped; later listeners still run.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, s := range subs {
		b.deliver(s.listener, evt)
	}
}

func (b *Bus) deliver(l Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(b.logger, "event listener panicked", "event_listener_panic",
				logging.String("event", string(evt.Kind)),
				logging.Error(fmt.Errorf("panic: %v", r)),
				logging.String(logging.FieldImpact, "listener missed this event"),
			)
		}
	}()
	l(evt)
}
