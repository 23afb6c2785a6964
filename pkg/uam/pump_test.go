package uam_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/messaging/adapters/memory"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/uam"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/uam/channel"
	"github.com/stretchr/testify/require"
)

// TestChannelPump_ProviderConsumerExchangeOverMessagingChannel grounds
// the duplex channel binding: a Provider and a Consumer, each only
// aware of its own Scheduler handle, exchange Request/Response SPDUs
// through two topics of an in-process broker wrapped in
// messaging.ResilientBroker, with no direct call between them.
func TestChannelPump_ProviderConsumerExchangeOverMessagingChannel(t *testing.T) {
	broker := messaging.NewResilientBroker(memory.New(memory.Config{BufferSize: 8}), messaging.ResilientBrokerConfig{
		CircuitBreakerEnabled: true, CircuitBreakerThreshold: 5, CircuitBreakerTimeout: time.Second,
		RetryEnabled: true, RetryMaxAttempts: 2, RetryBackoff: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = broker.Close() })

	requestProducer, err := broker.Producer("uam.request")
	require.NoError(t, err)
	requestConsumer, err := broker.Consumer("uam.request", "provider")
	require.NoError(t, err)
	responseProducer, err := broker.Producer("uam.response")
	require.NoError(t, err)
	responseConsumer, err := broker.Consumer("uam.response", "consumer")
	require.NoError(t, err)

	providerChannel := channel.NewMessagingChannel(responseProducer, requestConsumer)
	consumerChannel := channel.NewMessagingChannel(requestProducer, responseConsumer)
	t.Cleanup(func() { _ = providerChannel.Close() })
	t.Cleanup(func() { _ = consumerChannel.Close() })

	b := uam.NewBuilder(1, 1)
	providerHandle, err := b.InitProvider(
		uam.Config{SafetyDataLength: 4, NonSafetyDataLength: 2},
		nil,
		func(cfg uam.Config, prevRequest *uam.SPDU, safetyOut, nonSafetyOut []byte) {
			safetyOut[0] = 0x42
		},
	)
	require.NoError(t, err)

	var consumerSawSafety byte
	consumerHandle, err := b.InitConsumer(
		uam.Config{SafetyDataLength: 4, NonSafetyDataLength: 2},
		nil,
		func(cfg uam.Config, resp *uam.SPDU, safetyIn, nonSafetyIn []byte) {
			if len(safetyIn) > 0 {
				consumerSawSafety = safetyIn[0]
			}
		},
	)
	require.NoError(t, err)

	sched, err := b.Start(uam.ChecksumLayer{}, 4096)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := uam.NewChannelPump(sched)
	require.NoError(t, pump.BindProvider(ctx, providerHandle, providerChannel))
	require.NoError(t, pump.BindConsumer(ctx, consumerHandle, consumerChannel))

	require.Eventually(t, func() bool {
		require.NoError(t, sched.Cycle())
		require.NoError(t, pump.Publish(ctx))
		return consumerSawSafety == 0x42
	}, 2*time.Second, 20*time.Millisecond)
}
