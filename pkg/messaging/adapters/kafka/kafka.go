// Package kafka adapts pkg/messaging to a Kafka cluster via sarama.
package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
)

// Config configures the Kafka broker adapter.
type Config struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`

	// ClientID identifies this client to the Kafka cluster.
	ClientID string `env:"KAFKA_CLIENT_ID" env-default:"opcua-pubsub"`

	// ProducerTimeout bounds how long SyncProducer waits for an ack.
	ProducerTimeout time.Duration `env:"KAFKA_PRODUCER_TIMEOUT" env-default:"10s"`
}

// Broker is a Kafka-backed messaging.Broker.
type Broker struct {
	cfg    Config
	client sarama.Client
}

// New dials the configured brokers and returns a ready Broker.
func New(cfg Config) (*Broker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, messaging.ErrInvalidConfig("at least one broker address is required", nil)
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Timeout = cfg.ProducerTimeout
	sc.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}

	return &Broker{cfg: cfg, client: client}, nil
}

// Producer returns a synchronous producer bound to topic.
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	sp, err := sarama.NewSyncProducerFromClient(b.client)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &producer{broker: b, topic: topic, producer: sp}, nil
}

// Consumer returns a consumer group reader bound to topic.
func (b *Broker) Consumer(topic string, group string) (messaging.Consumer, error) {
	if group == "" {
		group = b.cfg.ClientID + "-" + topic
	}
	cg, err := sarama.NewConsumerGroupFromClient(group, b.client)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &consumer{topic: topic, group: group, cg: cg}, nil
}

// Close shuts down the underlying sarama client.
func (b *Broker) Close() error {
	return b.client.Close()
}

// Healthy reports whether the client can still reach the cluster's
// controller broker.
func (b *Broker) Healthy(ctx context.Context) bool {
	_, err := b.client.Controller()
	return err == nil
}
