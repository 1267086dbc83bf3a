package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"stayly/internal/app/handlers/notifications"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// Backoff lists the waits between handling attempts of one message.
	Backoff []time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger, backoff: c.Backoff})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	backoff []time.Duration
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim retries a failing message along the backoff schedule before marking it.
// A message still failing after the last attempt is logged and marked so the partition
// keeps moving. Messages interrupted by a rebalance are left unmarked and redelivered.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for message := range claim.Messages() {
		err := h.handle(ctx, message)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			h.logger.ErrorContext(ctx, "event dropped",
				"topic", message.Topic,
				"partition", message.Partition,
				"offset", message.Offset,
				"attempts", len(h.backoff)+1,
				"err", err,
			)
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

func (h consumerGroupHandler) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	for attempt := 0; ; attempt++ {
		err := h.handler.Handle(ctx, message)
		if err == nil || errors.Is(err, notifications.ErrMalformedEvent) || attempt >= len(h.backoff) {
			return err
		}
		h.logger.WarnContext(ctx, "event handling failed, retrying",
			"offset", message.Offset,
			"attempt", attempt+1,
			"err", err,
		)
		timer := time.NewTimer(h.backoff[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// EventHandler decodes CloudEvents envelopes and hands them to the notifications handler.
type EventHandler struct {
	Notifications *notifications.Handler
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := notifications.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}
	return h.Notifications.Handle(ctx, env)
}

var _ MessageHandler = EventHandler{}
