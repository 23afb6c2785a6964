package subscriber_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/subscriber"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/uadp"
	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"
)

type fakeRecvSocket struct {
	data chan []byte
}

func newFakeRecvSocket() *fakeRecvSocket {
	return &fakeRecvSocket{data: make(chan []byte, 8)}
}

func (f *fakeRecvSocket) Send(ctx context.Context, payload []byte) error { return nil }

func (f *fakeRecvSocket) Recv(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case d := <-f.data:
		return copy(buf, d), nil
	}
}

func (f *fakeRecvSocket) Close() error { return nil }

type fakeDialerFunc func(conn *model.PubSubConnection) (transport.Socket, error)

func (f fakeDialerFunc) DialSubscriber(conn *model.PubSubConnection) (transport.Socket, error) {
	return f(conn)
}

func encodedBoolKeyFrame(t *testing.T) []byte {
	t.Helper()
	b := model.NewBuilder()
	pubID, err := model.NewUIntPublisherID(123)
	require.NoError(t, err)
	connHandle, err := b.AddPublisherConnection(model.PubSubConnection{
		Address:     "opc.udp://232.1.2.100:4840",
		PublisherID: pubID,
		Enabled:     true,
	})
	require.NoError(t, err)
	_, err = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            14,
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

	conn := &cfg.PublisherConnections()[0]
	wg := &conn.WriterGroups[0]
	nm, err := uadp.NetworkMessageFromWriterGroup(conn, wg, false)
	require.NoError(t, err)
	v, err := ua.NewVariant(true)
	require.NoError(t, err)
	require.NoError(t, uadp.NmSetVariantAt(nm, 0, 0, v, time.Unix(1700000000, 0), ua.StatusOK))

	data, err := uadp.Encode(nm, nil)
	require.NoError(t, err)
	return data
}

func buildSubscriberCfg(t *testing.T) *model.Config {
	t.Helper()
	b := model.NewBuilder()
	subHandle, err := b.AddSubscriberConnection(model.PubSubConnection{Address: "opc.udp://232.1.2.100:4840", Enabled: true})
	require.NoError(t, err)
	expected, err := model.NewUIntPublisherID(123)
	require.NoError(t, err)
	targetNode := ua.NewTwoByteNodeID(2)
	_, err = b.AddReaderGroup(subHandle, model.ReaderGroup{
		GroupID:             14,
		GroupVersion:        1,
		ExpectedPublisherID: expected,
		Readers: []model.DataSetReader{
			{DataSetWriterID: 1, ReceiveTimeout: time.Minute, Fields: []model.FieldMetaData{
				{BuiltinType: ua.TypeIDBoolean, ValueRank: model.ValueRankScalar,
					Target: &model.FieldTarget{NodeID: targetNode, AttributeID: ua.AttributeIDValue}},
			}},
		},
	})
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

// TestScheduler_DecodesAndDispatchesIntoSink grounds the §4.4 receive
// worker end to end: a decoded, matched dataset message is written into
// the target-variable sink with its configured target node.
func TestScheduler_DecodesAndDispatchesIntoSink(t *testing.T) {
	cfg := buildSubscriberCfg(t)
	sock := newFakeRecvSocket()
	dialer := fakeDialerFunc(func(conn *model.PubSubConnection) (transport.Socket, error) { return sock, nil })

	wantTarget := ua.NewTwoByteNodeID(2)

	dispatched := make(chan []*ua.WriteValue, 1)
	sink := subscriber.TargetVariableSinkFunc(func(ctx context.Context, writeValues []*ua.WriteValue) bool {
		select {
		case dispatched <- writeValues:
		default:
		}
		return true
	})

	sched := subscriber.New(cfg, sink, dialer, nil, nil, nil, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	sock.data <- encodedBoolKeyFrame(t)

	select {
	case values := <-dispatched:
		require.Len(t, values, 1)
		require.Equal(t, wantTarget.String(), values[0].NodeID.String())
		require.Equal(t, ua.StatusOK, values[0].Value.Status)
	case <-time.After(time.Second):
		t.Fatal("sink never received dispatched write values")
	}
}

// TestScheduler_StateChangedNotifiesOperationalOnStart grounds the
// connection lifecycle: Start immediately reports Operational before
// any datagram has been received.
func TestScheduler_StateChangedNotifiesOperationalOnStart(t *testing.T) {
	cfg := buildSubscriberCfg(t)
	sock := newFakeRecvSocket()
	dialer := fakeDialerFunc(func(conn *model.PubSubConnection) (transport.Socket, error) { return sock, nil })
	sink := subscriber.TargetVariableSinkFunc(func(ctx context.Context, writeValues []*ua.WriteValue) bool { return true })

	states := make(chan subscriber.State, 4)
	onState := func(ctx context.Context, conn string, newState subscriber.State) {
		select {
		case states <- newState:
		default:
		}
	}

	sched := subscriber.New(cfg, sink, dialer, nil, nil, nil, onState, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	select {
	case s := <-states:
		require.Equal(t, subscriber.StateOperational, s)
	case <-time.After(time.Second):
		t.Fatal("no state_changed notification observed")
	}
}

// TestScheduler_ReceiveTimeoutFiresPausedWithin200ms grounds the
// receive-timeout scenario: a reader with no datagrams for longer than
// its ReceiveTimeout reports Paused exactly once within 200ms of the
// last received datagram.
func TestScheduler_ReceiveTimeoutFiresPausedWithin200ms(t *testing.T) {
	b := model.NewBuilder()
	subHandle, err := b.AddSubscriberConnection(model.PubSubConnection{Address: "opc.udp://232.1.2.100:4840", Enabled: true})
	require.NoError(t, err)
	expected, err := model.NewUIntPublisherID(123)
	require.NoError(t, err)
	_, err = b.AddReaderGroup(subHandle, model.ReaderGroup{
		GroupID:             14,
		GroupVersion:        1,
		ExpectedPublisherID: expected,
		Readers: []model.DataSetReader{
			{DataSetWriterID: 1, ReceiveTimeout: 100 * time.Millisecond},
		},
	})
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)

	sock := newFakeRecvSocket()
	dialer := fakeDialerFunc(func(conn *model.PubSubConnection) (transport.Socket, error) { return sock, nil })
	sink := subscriber.TargetVariableSinkFunc(func(ctx context.Context, writeValues []*ua.WriteValue) bool { return true })

	pausedAt := make(chan time.Time, 4)
	var pausedCount atomic.Int32
	onState := func(ctx context.Context, conn string, newState subscriber.State) {
		if newState == subscriber.StatePaused {
			pausedCount.Add(1)
			select {
			case pausedAt <- time.Now():
			default:
			}
		}
	}

	sched := subscriber.New(cfg, sink, dialer, nil, nil, nil, onState, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	lastSeen := time.Now()
	defer sched.Stop()

	select {
	case firedAt := <-pausedAt:
		require.WithinDuration(t, lastSeen, firedAt, 200*time.Millisecond)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Paused state_changed never fired")
	}

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, pausedCount.Load())
}
