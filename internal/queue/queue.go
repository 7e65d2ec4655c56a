// Package queue is the AMQP integration: an external scheduler publishes
// tick messages that drive dispatcher invocations, and delivery outcomes are
// mirrored to a durable queue for downstream consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// OutcomeEvent mirrors one recorded delivery outcome.
type OutcomeEvent struct {
	SendID     string `json:"send_id"`
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// OutcomePublisher emits outcome events. A nil *Broker satisfies it as a
// disabled publisher, so callers never need to branch on configuration.
type OutcomePublisher interface {
	PublishOutcome(event OutcomeEvent) error
}

// Broker wraps one AMQP connection and channel.
type Broker struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	outcomeQueue string
	log          zerolog.Logger
}

// Dial connects to the broker and declares the outcome queue.
func Dial(url, outcomeQueue string, log zerolog.Logger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if _, err := ch.QueueDeclare(outcomeQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", outcomeQueue, err)
	}
	return &Broker{conn: conn, ch: ch, outcomeQueue: outcomeQueue, log: log}, nil
}

// Close tears down the channel and connection.
func (b *Broker) Close() {
	if b == nil {
		return
	}
	b.ch.Close()
	b.conn.Close()
}

// PublishOutcome sends one outcome event. No-op on a nil broker.
func (b *Broker) PublishOutcome(event OutcomeEvent) error {
	if b == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.ch.Publish("", b.outcomeQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// ConsumeTicks blocks consuming tick messages from the given queue, invoking
// handler once per message. The message body is ignored: any tick means "run
// one dispatcher invocation now". Returns when ctx is cancelled or the
// channel closes.
func (b *Broker) ConsumeTicks(ctx context.Context, tickQueue string, prefetch int, handler func(ctx context.Context) error) error {
	if _, err := b.ch.QueueDeclare(tickQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", tickQueue, err)
	}
	if err := b.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := b.ch.Consume(tickQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("tick channel closed")
			}
			if err := handler(ctx); err != nil {
				b.log.Error().Err(err).Msg("tick handler failed")
			}
			// A tick is consumed whether or not the invocation succeeded;
			// the next tick retries from persisted row state.
			d.Ack(false)
		}
	}
}

var _ OutcomePublisher = (*Broker)(nil)
