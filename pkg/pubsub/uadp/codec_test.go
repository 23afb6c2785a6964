package uadp_test

import (
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/uadp"
	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"
)

func boolDataSet() *model.PublishedDataSet {
	return &model.PublishedDataSet{
		Source: model.SourceDataItems,
		Fields: []model.FieldMetaData{
			{
				BuiltinType: ua.TypeIDBoolean,
				ValueRank:   model.ValueRankScalar,
				Published:   &model.PublishedVariable{NodeID: ua.NewTwoByteNodeID(1), AttributeID: ua.AttributeIDValue},
			},
		},
	}
}

func buildS1() (*model.Config, *model.WriterGroup, *model.PubSubConnection) {
	b := model.NewBuilder()
	pubID, _ := model.NewUIntPublisherID(123)
	connHandle, _ := b.AddPublisherConnection(model.PubSubConnection{
		Address:     "opc.udp://232.1.2.100:4840",
		PublisherID: pubID,
		Enabled:     true,
	})
	_, _ = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            14,
		GroupVersion:       1,
		PublishingInterval: 50 * time.Millisecond,
		ContentMask:        uadp.ContentMaskSequenceNumber | uadp.ContentMaskStatus,
		Writers: []model.DataSetWriter{
			{WriterID: 1, DataSet: boolDataSet()},
		},
	})
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	conn := &cfg.PublisherConnections()[0]
	wg := &conn.WriterGroups[0]
	return cfg, wg, conn
}

func TestEncodeDecode_RoundTripsKeyFrame(t *testing.T) {
	cfg, wg, conn := buildS1()

	nm, err := uadp.NetworkMessageFromWriterGroup(conn, wg, false)
	require.NoError(t, err)

	v, err := ua.NewVariant(true)
	require.NoError(t, err)
	require.NoError(t, uadp.NmSetVariantAt(nm, 0, 0, v, time.Unix(1700000000, 0), ua.StatusOK))

	data, err := uadp.Encode(nm, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	rb := model.NewBuilder()
	subHandle, err := rb.AddSubscriberConnection(model.PubSubConnection{Address: "opc.udp://232.1.2.100:4840"})
	require.NoError(t, err)
	expected, err := model.NewUIntPublisherID(123)
	require.NoError(t, err)
	_, err = rb.AddReaderGroup(subHandle, model.ReaderGroup{
		GroupID:             14,
		GroupVersion:        1,
		ExpectedPublisherID: expected,
		Readers: []model.DataSetReader{
			{DataSetWriterID: 1},
		},
	})
	require.NoError(t, err)
	rcfg, err := rb.Build()
	require.NoError(t, err)

	decoded, matches, err := uadp.Decode(data, rcfg)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, uint16(1), decoded.DataSetMessages[0].WriterID)
	require.Equal(t, uadp.MessageTypeKeyFrame, decoded.DataSetMessages[0].MessageType)
	require.Len(t, decoded.DataSetMessages[0].Fields, 1)

	_ = cfg
}

func TestEncodeDecode_KeepAliveCarriesNoFields(t *testing.T) {
	_, wg, conn := buildS1()

	nm, err := uadp.NetworkMessageFromWriterGroup(conn, wg, true)
	require.NoError(t, err)
	require.Equal(t, uadp.MessageTypeKeepAlive, nm.DataSetMessages[0].MessageType)
	require.Empty(t, nm.DataSetMessages[0].Fields)

	data, err := uadp.Encode(nm, nil)
	require.NoError(t, err)

	decoded, _, err := uadp.Decode(data, &model.Config{})
	require.NoError(t, err)
	require.Equal(t, uadp.MessageTypeKeepAlive, decoded.DataSetMessages[0].MessageType)
	require.Empty(t, decoded.DataSetMessages[0].Fields)
}

// TestEncodeDecode_TimestampEnabledDoesNotDesyncDataSetMessages grounds
// the nm_decode(nm_encode(nm))==nm property for a NetworkMessage
// carrying the NM-level timestamp: Encode must only emit the trailing
// PicoSeconds field when it also sets the flag Decode gates that read
// on, in both the zero and non-zero PicoSeconds case.
func TestEncodeDecode_TimestampEnabledDoesNotDesyncDataSetMessages(t *testing.T) {
	for _, picos := range []uint16{0, 500} {
		cfg, wg, conn := buildS1()
		_ = cfg

		nm, err := uadp.NetworkMessageFromWriterGroup(conn, wg, false)
		require.NoError(t, err)
		nm.TimestampEnabled = true
		nm.Timestamp = time.Unix(1700000000, 0)
		nm.PicoSeconds = picos

		v, err := ua.NewVariant(true)
		require.NoError(t, err)
		require.NoError(t, uadp.NmSetVariantAt(nm, 0, 0, v, time.Unix(1700000000, 0), ua.StatusOK))

		data, err := uadp.Encode(nm, nil)
		require.NoError(t, err)

		rb := model.NewBuilder()
		subHandle, err := rb.AddSubscriberConnection(model.PubSubConnection{Address: "opc.udp://232.1.2.100:4840"})
		require.NoError(t, err)
		expected, err := model.NewUIntPublisherID(123)
		require.NoError(t, err)
		_, err = rb.AddReaderGroup(subHandle, model.ReaderGroup{
			GroupID:             14,
			GroupVersion:        1,
			ExpectedPublisherID: expected,
			Readers: []model.DataSetReader{
				{DataSetWriterID: 1},
			},
		})
		require.NoError(t, err)
		rcfg, err := rb.Build()
		require.NoError(t, err)

		decoded, matches, err := uadp.Decode(data, rcfg)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, picos, decoded.PicoSeconds)
		require.Equal(t, uint16(1), decoded.DataSetMessages[0].WriterID)
		require.Len(t, decoded.DataSetMessages[0].Fields, 1)
	}
}

func TestDecode_TruncatedMessageReturnsDecodeError(t *testing.T) {
	cfg, wg, conn := buildS1()
	nm, err := uadp.NetworkMessageFromWriterGroup(conn, wg, false)
	require.NoError(t, err)
	v, _ := ua.NewVariant(true)
	require.NoError(t, uadp.NmSetVariantAt(nm, 0, 0, v, time.Now(), ua.StatusOK))

	data, err := uadp.Encode(nm, nil)
	require.NoError(t, err)

	_, _, err = uadp.Decode(data[:len(data)-4], cfg)
	require.Error(t, err)
}
