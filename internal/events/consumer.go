package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one XP event
type Handler func(ctx context.Context, event *XPChanged) error

// Consumer delivers XP events from the queue to a handler
type Consumer struct {
	conn       *Connection
	handler    Handler
	prefetch   int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer. Prefetch defaults to 8.
func NewConsumer(conn *Connection, handler Handler, prefetch int) *Consumer {
	if prefetch <= 0 {
		prefetch = 8
	}
	return &Consumer{conn: conn, handler: handler, prefetch: prefetch}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("consuming xp events", "queue", c.conn.Queue(), "prefetch", c.prefetch)

	c.wg.Add(1)
	go c.consume(ctx, msgs)

	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("xp event channel closed")
				return
			}
			c.processMessage(ctx, msg)
		}
	}
}

// processMessage hands one delivery to the handler. Malformed messages are
// rejected; handler errors are logged and the message is still acked.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event XPChanged
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("failed to unmarshal xp event", "error", err)
		_ = msg.Reject(false)
		return
	}

	if err := c.handler(ctx, &event); err != nil {
		slog.Error("xp event handler failed", "event_id", event.ID, "error", err)
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack xp event", "event_id", event.ID, "error", err)
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}
