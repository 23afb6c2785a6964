// Package memory provides an in-process messaging.Broker backed by
// buffered channels, for tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
	"github.com/google/uuid"
)

// Config configures the memory broker adapter.
type Config struct {
	// BufferSize sets the channel depth for every topic created on this broker.
	BufferSize int
}

// Broker is an in-process messaging.Broker. Every topic is a fan-out of
// buffered channels, one per active consumer group.
type Broker struct {
	cfg Config

	mu      sync.Mutex
	closed  bool
	topics  map[string]*topic
}

type topic struct {
	mu     sync.Mutex
	groups map[string]chan *messaging.Message
}

// New returns a ready Broker.
func New(cfg Config) *Broker {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	return &Broker{cfg: cfg, topics: make(map[string]*topic)}
}

func (b *Broker) topicFor(name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = &topic{groups: make(map[string]chan *messaging.Message)}
		b.topics[name] = t
	}
	return t
}

// Producer returns a producer that fans messages out to every consumer
// group registered on topic.
func (b *Broker) Producer(topicName string) (messaging.Producer, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, messaging.ErrClosed(nil)
	}
	return &producer{broker: b, topic: topicName}, nil
}

// Consumer registers a new consumer group on topic and returns a reader
// bound to it. group may be empty, in which case each call gets its own
// broadcast channel.
func (b *Broker) Consumer(topicName string, group string) (messaging.Consumer, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, messaging.ErrClosed(nil)
	}

	t := b.topicFor(topicName)
	t.mu.Lock()
	defer t.mu.Unlock()

	if group == "" {
		group = uuid.New().String()
	}
	ch, ok := t.groups[group]
	if !ok {
		ch = make(chan *messaging.Message, b.cfg.BufferSize)
		t.groups[group] = ch
	}

	return &consumer{topic: topicName, group: group, ch: ch}, nil
}

// Close marks the broker closed. In-flight channels are left for
// consumers to drain; new Producer/Consumer calls fail.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Healthy always returns true once the broker has not been closed.
func (b *Broker) Healthy(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

type producer struct {
	broker *Broker
	topic  string
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Topic = p.topic

	t := p.broker.topicFor(p.topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ch := range t.groups {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return messaging.ErrQueueFull(nil)
		}
	}
	return nil
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	for _, m := range msgs {
		if err := p.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	topic string
	group string
	ch    chan *messaging.Message
}

func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	for {
		select {
		case msg := <-c.ch:
			if err := handler(ctx, msg); err != nil {
				continue
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *consumer) Close() error { return nil }
