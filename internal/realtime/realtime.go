// Package realtime pushes best-effort notices to a traveler's live session.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "wayfare/internal/platform/redis"
	id "wayfare/pkg/domain"
)

// Event types pushed to live sessions.
const (
	EventSubmissionReceived = "submission_received"
	EventItineraryUpdated   = "itinerary_updated"
	EventItineraryDisclosed = "itinerary_disclosed"
)

// Message is the wire shape pushed to a live connection.
type Message struct {
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
}

// Broadcaster delivers realtime notices. Implementations are fire-and-forget:
// delivery happens on a detached context with its own timeout and failures
// are swallowed after logging, fully decoupled from the transactional write.
type Broadcaster interface {
	NotifyTraveler(ctx context.Context, travelerID id.TravelerID, message Message)
}

// RedisBroadcaster publishes to the traveler's pub/sub channel, which the
// websocket gateway fans out to live connections.
type RedisBroadcaster struct {
	client  *platformredis.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewRedisBroadcaster(client *platformredis.Client, timeout time.Duration, logger *slog.Logger) *RedisBroadcaster {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisBroadcaster{client: client, timeout: timeout, logger: logger}
}

func (b *RedisBroadcaster) NotifyTraveler(ctx context.Context, travelerID id.TravelerID, message Message) {
	body, err := json.Marshal(message)
	if err != nil {
		b.logger.WarnContext(ctx, "failed to encode realtime message",
			"event_type", message.EventType, "error", err.Error())
		return
	}

	// Detach from the request lifecycle so a slow broker cannot stall the caller.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		channel := "traveler:" + travelerID.String()
		if err := b.client.Publish(pubCtx, channel, body).Err(); err != nil {
			b.logger.WarnContext(pubCtx, "realtime publish failed",
				"channel", channel, "event_type", message.EventType, "error", err.Error())
		}
	}()
}

// NoopBroadcaster is wired when Redis is not configured.
type NoopBroadcaster struct{}

func (NoopBroadcaster) NotifyTraveler(context.Context, id.TravelerID, Message) {}
