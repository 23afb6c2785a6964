package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging/adapters/memory"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker_PublishConsume(t *testing.T) {
	broker := memory.New(memory.Config{BufferSize: 8})
	defer broker.Close()

	consumer, err := broker.Consumer("ticks", "")
	require.NoError(t, err)
	defer consumer.Close()

	producer, err := broker.Producer("ticks")
	require.NoError(t, err)
	defer producer.Close()

	received := make(chan *messaging.Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = consumer.Consume(ctx, func(_ context.Context, msg *messaging.Message) error {
			received <- msg
			return nil
		})
	}()

	require.NoError(t, producer.Publish(context.Background(), &messaging.Message{Payload: []byte("tick")}))

	select {
	case msg := <-received:
		require.Equal(t, []byte("tick"), msg.Payload)
		require.NotEmpty(t, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryBroker_FanOutToEveryGroup(t *testing.T) {
	broker := memory.New(memory.Config{BufferSize: 8})
	defer broker.Close()

	a, err := broker.Consumer("events", "group-a")
	require.NoError(t, err)
	b, err := broker.Consumer("events", "group-b")
	require.NoError(t, err)

	producer, err := broker.Producer("events")
	require.NoError(t, err)

	require.NoError(t, producer.Publish(context.Background(), &messaging.Message{Payload: []byte("hello")}))

	gotA := make(chan struct{}, 1)
	gotB := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = a.Consume(ctx, func(_ context.Context, msg *messaging.Message) error {
			gotA <- struct{}{}
			return nil
		})
	}()
	go func() {
		_ = b.Consume(ctx, func(_ context.Context, msg *messaging.Message) error {
			gotB <- struct{}{}
			return nil
		})
	}()

	timeout := time.After(time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-gotA:
		case <-gotB:
		case <-timeout:
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestMemoryBroker_ClosedBrokerRejectsNewProducers(t *testing.T) {
	broker := memory.New(memory.Config{})
	require.NoError(t, broker.Close())

	_, err := broker.Producer("ticks")
	require.Error(t, err)
}
