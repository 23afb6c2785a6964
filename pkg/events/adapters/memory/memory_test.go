package memory_test

import (
	"context"
	"testing"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/events"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/events/adapters/memory"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDispatchesToSubscribers(t *testing.T) {
	bus := memory.New()
	defer bus.Close()

	var got events.Event
	require.NoError(t, bus.Subscribe(context.Background(), "writer.state_changed", func(_ context.Context, e events.Event) error {
		got = e
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), "writer.state_changed", events.Event{
		Type:    "writer.state_changed",
		Payload: "operational",
	}))

	require.Equal(t, "writer.state_changed", got.Type)
	require.Equal(t, "operational", got.Payload)
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := memory.New()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Publish(context.Background(), "x", events.Event{}))
}
