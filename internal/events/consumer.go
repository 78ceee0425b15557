package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"wayfare/pkg/requestcontext"
)

// SignalHandler receives booking lifecycle signals. The disclosure service
// implements it; handlers must be idempotent because delivery is
// at-least-once.
type SignalHandler interface {
	OnPaymentCaptured(ctx context.Context, signal BookingSignal) error
	OnBookingCancelled(ctx context.Context, signal BookingSignal) error
}

// Consumer polls booking.paid / booking.cancelled and feeds the disclosure
// engine. Offsets are committed only after the whole batch is handled, so a
// crash mid-batch redelivers; the handler's sequence check absorbs the
// duplicates.
type Consumer struct {
	client  *kgo.Client
	handler SignalHandler
	logger  *slog.Logger
}

func NewConsumer(client *kgo.Client, handler SignalHandler, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, handler: handler, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) error {
	tracer := otel.Tracer("wayfare/events")
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic, "partition", partition, "error", err.Error())
		})

		batchOK := true
		fetches.EachRecord(func(record *kgo.Record) {
			recCtx, span := tracer.Start(ctx, "booking_signal")
			recCtx = requestcontext.WithActor(recCtx, requestcontext.SystemActor)
			if err := c.handle(recCtx, record); err != nil {
				batchOK = false
				c.logger.ErrorContext(recCtx, "signal handling failed",
					"topic", record.Topic, "error", err.Error())
			}
			span.End()
		})

		// Redeliver the batch on failure; handlers are idempotent.
		if batchOK {
			if err := c.client.CommitUncommittedOffsets(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.ErrorContext(ctx, "offset commit failed", "error", err.Error())
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, record *kgo.Record) error {
	var env Envelope
	if err := json.Unmarshal(record.Value, &env); err != nil {
		// Malformed input is skipped, not retried: it will never parse.
		c.logger.WarnContext(ctx, "skipping malformed signal envelope",
			"topic", record.Topic, "error", err.Error())
		return nil
	}
	var signal BookingSignal
	if err := json.Unmarshal(env.Payload, &signal); err != nil {
		c.logger.WarnContext(ctx, "skipping malformed booking signal",
			"topic", record.Topic, "error", err.Error())
		return nil
	}
	if env.CorrelationID != "" {
		ctx = requestcontext.WithRequestID(ctx, env.CorrelationID)
	}

	switch record.Topic {
	case TopicBookingPaid:
		return c.handler.OnPaymentCaptured(ctx, signal)
	case TopicBookingCancelled:
		return c.handler.OnBookingCancelled(ctx, signal)
	default:
		c.logger.WarnContext(ctx, "unexpected topic", "topic", record.Topic)
		return nil
	}
}
