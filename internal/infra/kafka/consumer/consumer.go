package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/config"
	"github.com/aliskhannn/image-optimizer/internal/kafka/handlers/event"
)

// batchHandler defines the interface for processing a batch of
// notification messages. It never fails: per-message errors are
// swallowed behind the fixed acknowledgment.
type batchHandler interface {
	Handle(ctx context.Context, msgs []kafka.Message) event.Response
}

// Consumer represents a Kafka consumer along with its configuration
// and the handler that processes batches of storage-change events.
type Consumer struct {
	Client       *wbfkafka.Consumer
	batchHandler batchHandler
	cfg          *config.Kafka
	strategy     retry.Strategy
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy for the transport edge (fetch/commit)
// - bh: handler for processing batches of messages
func New(
	cfg *config.Kafka,
	s retry.Strategy,
	bh batchHandler,
) *Consumer {
	consumer := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &Consumer{
		Client:       consumer,
		batchHandler: bh,
		cfg:          cfg,
		strategy:     s,
	}
}

// Consume continuously collects batches of messages from Kafka, hands
// each batch to the handler, and commits offsets afterwards. Because
// the handler acknowledges unconditionally, every delivered message is
// committed; redelivery only happens for messages the broker never
// handed over before shutdown. It stops gracefully on context
// cancellation.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Msg("starting consumer")

	for {
		// Exit if context is canceled (graceful shutdown).
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		msgs, err := c.collectBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}

			// Log error and retry after a short backoff.
			zlog.Logger.Err(err).Msg("failed to fetch messages")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		resp := c.batchHandler.Handle(ctx, msgs)

		// Commit every delivered message with retries.
		for _, msg := range msgs {
			m := msg
			err := retry.Do(func() error {
				return c.Client.Commit(ctx, m)
			}, c.strategy)
			if err != nil {
				zlog.Logger.Err(err).
					Int64("offset", m.Offset).
					Msg("failed to commit message after retries")
			}
		}

		zlog.Logger.Info().
			Int("messages", len(msgs)).
			Int("status", resp.StatusCode).
			Str("body", resp.Body).
			Msg("batch handled")
	}
}

// collectBatch blocks for the first message, then drains whatever else
// arrives within the linger window, up to the configured batch size.
func (c *Consumer) collectBatch(ctx context.Context) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, c.cfg.BatchSize)

	// Fetch the first message from Kafka with retries.
	var first kafka.Message
	err := retry.Do(func() error {
		var fetchErr error
		first, fetchErr = c.Client.Fetch(ctx)
		return fetchErr
	}, c.strategy)
	if err != nil {
		return nil, err
	}

	msgs = append(msgs, first)

	lingerCtx, cancel := context.WithTimeout(ctx, c.cfg.Linger)
	defer cancel()

	for len(msgs) < c.cfg.BatchSize {
		msg, err := c.Client.Fetch(lingerCtx)
		if err != nil {
			// Linger window elapsed; the batch is whatever we have.
			break
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}
