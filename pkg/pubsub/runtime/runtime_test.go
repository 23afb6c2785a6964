package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/cache"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/publisher"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/runtime"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/subscriber"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct{}

func (fakeSocket) Send(ctx context.Context, payload []byte) error { return nil }
func (fakeSocket) Recv(ctx context.Context, buf []byte) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}
func (fakeSocket) Close() error { return nil }

type fakePubDialer struct{}

func (fakePubDialer) DialPublisher(conn *model.PubSubConnection) (transport.Socket, error) {
	return fakeSocket{}, nil
}

type fakeSubDialer struct{}

func (fakeSubDialer) DialSubscriber(conn *model.PubSubConnection) (transport.Socket, error) {
	return fakeSocket{}, nil
}

func buildCfg(t *testing.T) *model.Config {
	t.Helper()
	b := model.NewBuilder()
	pubID, err := model.NewUIntPublisherID(1)
	require.NoError(t, err)
	connHandle, err := b.AddPublisherConnection(model.PubSubConnection{
		Address:     "opc.udp://232.1.2.100:4840",
		PublisherID: pubID,
		Enabled:     true,
	})
	require.NoError(t, err)
	_, err = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            1,
		GroupVersion:       1,
		PublishingInterval: time.Second,
		Writers: []model.DataSetWriter{
			{WriterID: 1, DataSet: &model.PublishedDataSet{
				Source: model.SourceDataItems,
				Fields: []model.FieldMetaData{
					{BuiltinType: ua.TypeIDBoolean, ValueRank: model.ValueRankScalar,
						Published: &model.PublishedVariable{NodeID: ua.NewTwoByteNodeID(1), AttributeID: ua.AttributeIDValue}},
				},
			}},
		},
	})
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

// TestRuntime_StartsAndStopsBothSchedulers grounds the composition
// root's job: build a Publisher/Subscriber pair from explicit Settings
// (no environment read) and bring both up and down together.
func TestRuntime_StartsAndStopsBothSchedulers(t *testing.T) {
	cfg := buildCfg(t)
	settings := runtime.Settings{WorkerCount: 2, ReceiveBufferSize: 2048}

	provider := publisher.SourceProviderFunc(func(ctx context.Context, nodes []*ua.ReadValueID) ([]*ua.DataValue, error) {
		return nil, nil
	})
	sink := subscriber.TargetVariableSinkFunc(func(ctx context.Context, writeValues []*ua.WriteValue) bool { return true })

	rt := runtime.New(cfg, settings, provider, fakePubDialer{}, sink, fakeSubDialer{}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Start(ctx))
	rt.Stop()
}

// TestRuntime_OnlyPublisherRole grounds the nil-dialer opt-out: a
// Runtime built with only a publisher dialer never starts a subscriber
// scheduler.
func TestRuntime_OnlyPublisherRole(t *testing.T) {
	cfg := buildCfg(t)
	settings := runtime.Settings{}

	provider := publisher.SourceProviderFunc(func(ctx context.Context, nodes []*ua.ReadValueID) ([]*ua.DataValue, error) {
		return nil, nil
	})

	rt := runtime.New(cfg, settings, provider, fakePubDialer{}, nil, nil, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Start(ctx))
	rt.Stop()
}

// TestNewKeyManager_MemoryDriverWiresTheSharedSnapshotCache grounds
// runtime.NewKeyManager's driver switch for the in-process default.
func TestNewKeyManager_MemoryDriverWiresTheSharedSnapshotCache(t *testing.T) {
	km, err := runtime.NewKeyManager(cache.Config{Driver: "memory"}, cache.ResilientConfig{})
	require.NoError(t, err)

	km.SetSnapshot("sg1", security.Snapshot{CurrentTokenID: 1, Keys: [][]byte{[]byte("k")}})
	key, tokenID, err := km.CurrentKey("sg1")
	require.NoError(t, err)
	require.Equal(t, []byte("k"), key)
	require.Equal(t, uint32(1), tokenID)
}
