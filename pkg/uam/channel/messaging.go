package channel

import (
	"context"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// MessagingChannel adapts a messaging.Producer/Consumer pair to
// Channel, for driving a Provider or Consumer's cycle over an
// in-process memory broker or Kafka during benching and tests, where
// standing up a full UDP/MQTT PubSub round trip isn't warranted.
type MessagingChannel struct {
	producer messaging.Producer
	consumer messaging.Consumer
	incoming chan []byte
	done     chan struct{}
}

// NewMessagingChannel starts consuming from consumer in the
// background, buffering payloads for Recv. Close stops the background
// consume loop.
func NewMessagingChannel(producer messaging.Producer, consumer messaging.Consumer) *MessagingChannel {
	c := &MessagingChannel{
		producer: producer,
		consumer: consumer,
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	go c.consume()
	return c
}

func (c *MessagingChannel) consume() {
	_ = c.consumer.Consume(context.Background(), func(ctx context.Context, msg *messaging.Message) error {
		select {
		case c.incoming <- msg.Payload:
		case <-c.done:
		}
		return nil
	})
}

// Send publishes payload as a single message's body.
func (c *MessagingChannel) Send(ctx context.Context, payload []byte) error {
	body := append([]byte(nil), payload...)
	if err := c.producer.Publish(ctx, &messaging.Message{Payload: body}); err != nil {
		return pubsuberrors.Transport("uam channel: publish failed", err)
	}
	return nil
}

// Recv blocks until the next message arrives or ctx is done.
func (c *MessagingChannel) Recv(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case payload := <-c.incoming:
		n := copy(buf, payload)
		return n, nil
	}
}

// Close stops the background consume loop and closes the producer/consumer.
func (c *MessagingChannel) Close() error {
	close(c.done)
	_ = c.consumer.Close()
	return c.producer.Close()
}
