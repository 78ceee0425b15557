package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"wayfare/pkg/requestcontext"
)

// KafkaPublisher produces domain events via franz-go. Production is
// asynchronous; delivery failures surface only as log lines.
type KafkaPublisher struct {
	client *kgo.Client
	logger *slog.Logger
}

func NewKafkaPublisher(client *kgo.Client, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{client: client, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode event payload",
			"topic", topic, "error", err.Error())
		return
	}

	env := Envelope{
		ID:            uuid.NewString(),
		Type:          topic,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: requestcontext.RequestID(ctx),
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode event envelope",
			"topic", topic, "error", err.Error())
		return
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("event delivery failed",
				"topic", topic, "key", key, "error", err.Error())
		}
	})
}
