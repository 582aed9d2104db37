package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reportwatch/internal/logging"
	"reportwatch/internal/orchestrator"
)

// sinkQueueSize bounds notifications waiting for delivery. Events arriving
// while the queue is full are dropped with a warning.
const sinkQueueSize = 64

type delivery struct {
	event     Event
	payload   Payload
	attemptID string
}

// Sink forwards orchestrator events to a Service. A single worker delivers
// them in publish order, so a slow ntfy server never holds the run guard.
type Sink struct {
	svc    Service
	logger *slog.Logger

	mu          sync.Mutex
	closed      bool
	queue       chan delivery
	done        chan struct{}
	unsubscribe func()
}

// Attach subscribes svc to bus.
func Attach(bus *orchestrator.Bus, svc Service, logger *slog.Logger) *Sink {
	s := &Sink{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "notifications"),
		queue:  make(chan delivery, sinkQueueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	s.unsubscribe = bus.Subscribe(s.handle)
	return s
}

// Close unsubscribes and waits for queued deliveries to finish.
func (s *Sink) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Sink) handle(ev orchestrator.Event) {
	event, payload, ok := translate(ev)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- delivery{event: event, payload: payload, attemptID: ev.AttemptID}:
	default:
		logging.WarnWithContext(s.logger, "notification queue full", "notification_dropped",
			logging.String("notification", string(event)),
			logging.String(logging.FieldAttemptID, ev.AttemptID),
			logging.String(logging.FieldErrorHint, "check ntfy server latency"),
			logging.String(logging.FieldImpact, "notification was not delivered"),
		)
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for d := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := s.svc.Publish(ctx, d.event, d.payload)
		cancel()
		if err != nil {
			logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
				logging.String("notification", string(d.event)),
				logging.String(logging.FieldAttemptID, d.attemptID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
				logging.String(logging.FieldImpact, "notification was not delivered"),
			)
		}
	}
}

func translate(ev orchestrator.Event) (Event, Payload, bool) {
	p := Payload{"trigger": ev.Trigger.String(), "message": ev.Message}
	switch ev.Kind {
	case orchestrator.EventFilesFound:
		p["found"] = len(ev.Files)
		return EventFilesFound, p, true
	case orchestrator.EventFilesNotFound:
		return EventFilesNotFound, p, true
	case orchestrator.EventRetryScheduled:
		return EventRetryScheduled, p, true
	case orchestrator.EventCompleted:
		if ev.Outcome == nil {
			return "", nil, false
		}
		p["processed"] = ev.Outcome.FilesProcessed
		p["skipped"] = ev.Outcome.FilesSkipped
		p["duration"] = ev.Outcome.Duration.Round(time.Second).String()
		return EventCompleted, p, true
	case orchestrator.EventError:
		p["context"] = ev.Trigger.String()
		if ev.Err != nil {
			p["error"] = ev.Err.Error()
		}
		return EventError, p, true
	default:
		return "", nil, false
	}
}
