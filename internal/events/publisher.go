package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edulearn/edulearn/internal/profile"
)

// Sender publishes one JSON message
type Sender interface {
	PublishJSON(ctx context.Context, data any) error
}

// Ensure Connection implements Sender
var _ Sender = (*Connection)(nil)

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	Buffer  int           // pending events before new ones are dropped
	Timeout time.Duration // per publish
}

// DefaultPublisherConfig returns sensible defaults
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{Buffer: 64, Timeout: 5 * time.Second}
}

// Publisher forwards profile changes to the queue. Store subscribers run on
// the reconciling goroutine, so changes are buffered and sent from a worker;
// a failed or dropped publish never affects the attempt.
type Publisher struct {
	sender  Sender
	timeout time.Duration
	pending chan *XPChanged

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewPublisher creates a publisher over sender
func NewPublisher(sender Sender, cfg PublisherConfig) *Publisher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Publisher{
		sender:  sender,
		timeout: cfg.Timeout,
		pending: make(chan *XPChanged, cfg.Buffer),
	}
}

// Attach subscribes the publisher to store and returns the unsubscribe func
func (p *Publisher) Attach(store *profile.Store) func() {
	return store.Subscribe(p.Enqueue)
}

// Enqueue queues a change without blocking
func (p *Publisher) Enqueue(c profile.Change) {
	event := FromChange(c)
	select {
	case p.pending <- event:
	default:
		slog.Warn("dropped xp event, publish buffer full", "event_id", event.ID, "attempt_id", event.AttemptID)
	}
}

// Start begins publishing queued events
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancelFunc = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case event := <-p.pending:
				p.publish(ctx, event)
			}
		}
	}()
}

// drain sends what is still buffered on shutdown
func (p *Publisher) drain() {
	for {
		select {
		case event := <-p.pending:
			p.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event *XPChanged) {
	if err := p.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish xp event", "event_id", event.ID, "error", err)
	}
}

// Publish sends one event synchronously
func (p *Publisher) Publish(ctx context.Context, event *XPChanged) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sender.PublishJSON(ctx, event); err != nil {
		return fmt.Errorf("failed to publish xp event: %w", err)
	}

	slog.Debug("published xp event",
		"event_id", event.ID,
		"attempt_id", event.AttemptID,
		"delta", event.Delta,
		"xp", event.XP,
	)
	return nil
}

// Stop flushes pending events and stops the worker
func (p *Publisher) Stop() {
	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.wg.Wait()
}
