package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
)

// consumer is a Kafka consumer-group reader implementation.
type consumer struct {
	topic string
	group string
	cg    sarama.ConsumerGroup
}

func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	h := &groupHandler{handler: handler, topic: c.topic}

	for {
		if err := c.cg.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return messaging.ErrConsumeFailed(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *consumer) Close() error {
	return c.cg.Close()
}

// groupHandler adapts a messaging.MessageHandler to sarama's
// ConsumerGroupHandler, acking every message the handler accepts.
type groupHandler struct {
	handler messaging.MessageHandler
	topic   string
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			m := &messaging.Message{
				Topic:     msg.Topic,
				Key:       msg.Key,
				Payload:   msg.Value,
				Timestamp: msg.Timestamp,
				Metadata: messaging.MessageMetadata{
					Partition: msg.Partition,
					Offset:    msg.Offset,
					Raw:       msg,
				},
			}
			for _, rh := range msg.Headers {
				if string(rh.Key) == "message-id" {
					m.ID = string(rh.Value)
				}
			}

			if err := h.handler(session.Context(), m); err != nil {
				continue
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
