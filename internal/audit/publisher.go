package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher captures structured audit events without ever blocking the
// caller. Events are buffered onto a channel drained by the Worker; when the
// buffer is full the event is dropped and counted, because audit delivery
// must never delay or fail the primary write.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a Publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the event channel for the Worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit enqueues an audit event. Best-effort: a full buffer drops the event
// with a log line rather than blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
		)
	}
}
