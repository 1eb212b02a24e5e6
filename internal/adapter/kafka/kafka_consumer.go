package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/usecase"
)

// ErrSkip tells the consumer a message can never be processed; it is marked
// and not retried.
var ErrSkip = errors.New("skip message")

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.BookIngestMsg) error

// Consumer consumes a topic with a single handler. A failing message is
// retried in place with exponential backoff so later offsets are never
// committed past it.
type Consumer struct {
	Group        sarama.ConsumerGroup
	Topics       []string
	Handle       HandlerFunc
	Logger       *slog.Logger
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:        group,
		Topics:       topics,
		Handle:       h,
		Logger:       logging.New("kafka-consumer"),
		RetryBackoff: 500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger, backoff: c.RetryBackoff, maxBackoff: c.MaxBackoff}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle     HandlerFunc
	logger     *slog.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		l := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

		var ev usecase.BookIngestMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			l.Warn("kafka decode error", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if ev.Key == "" {
			ev.Key = messageKey(msg)
		}

		if !h.process(sess, l, msg, ev) {
			// session ended mid-retry; the offset stays uncommitted for the next owner
			return nil
		}
	}
	return nil
}

// process runs the handler until it succeeds or skips, marking the message.
// It reports false when the session ends first.
func (h *cgHandler) process(sess sarama.ConsumerGroupSession, l *slog.Logger, msg *sarama.ConsumerMessage, ev usecase.BookIngestMsg) bool {
	ctx := logging.WithCtx(sess.Context(), l)
	wait := h.backoff
	for attempt := 1; ; attempt++ {
		err := h.handle(ctx, ev)
		switch {
		case err == nil:
			sess.MarkMessage(msg, "")
			return true
		case errors.Is(err, ErrSkip):
			l.Warn("skipping book message", "err", err)
			sess.MarkMessage(msg, "skipped")
			return true
		}

		l.Error("handler error, retrying", "key", ev.Key, "attempt", attempt, "backoff", wait, "err", err)
		select {
		case <-sess.Context().Done():
			return false
		case <-time.After(wait):
		}
		if h.maxBackoff > 0 {
			wait = min(wait*2, h.maxBackoff)
		}
	}
}

// messageKey falls back to the record key, then to the record position, so
// a redelivered record maps to the same idempotency key.
func messageKey(msg *sarama.ConsumerMessage) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
