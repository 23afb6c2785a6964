package channel_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging/adapters/memory"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/uam/channel"
	"github.com/stretchr/testify/require"
)

func TestMessagingChannel_SendRecvRoundTrips(t *testing.T) {
	broker := memory.New(memory.Config{BufferSize: 8})
	t.Cleanup(func() { _ = broker.Close() })

	producer, err := broker.Producer("uam.spdu")
	require.NoError(t, err)
	consumer, err := broker.Consumer("uam.spdu", "provider-1")
	require.NoError(t, err)

	ch := channel.NewMessagingChannel(producer, consumer)
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, ch.Send(ctx, []byte("spdu-bytes")))

	buf := make([]byte, 64)
	n, err := ch.Recv(ctx, buf)
	require.NoError(t, err)
	require.Equal(t, "spdu-bytes", string(buf[:n]))
}
