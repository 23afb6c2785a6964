package model_test

import (
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"
)

func boolDataSet() model.PublishedDataSet {
	return model.PublishedDataSet{
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

func TestBuilder_S1Shape(t *testing.T) {
	b := model.NewBuilder()

	dsHandle := b.AddPublishedDataSet(boolDataSet())

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
		PublishingInterval: 50 * time.Millisecond,
		SecurityMode:       model.SecurityModeNone,
		Writers: []model.DataSetWriter{
			{WriterID: 1, DataSet: &[]model.PublishedDataSet{boolDataSet()}[0]},
		},
	})
	require.NoError(t, err)
	_ = dsHandle

	cfg, err := b.Build()
	require.NoError(t, err)
	require.Len(t, cfg.PublisherConnections(), 1)
	require.Len(t, cfg.PublisherConnections()[0].WriterGroups, 1)
	require.Equal(t, uint16(14), cfg.PublisherConnections()[0].WriterGroups[0].GroupID)
}

func TestBuilder_RejectsDuplicateWriterIds(t *testing.T) {
	b := model.NewBuilder()
	pubID, _ := model.NewUIntPublisherID(1)
	connHandle, err := b.AddPublisherConnection(model.PubSubConnection{Address: "opc.udp://224.0.0.1:4840", PublisherID: pubID})
	require.NoError(t, err)

	ds := boolDataSet()
	_, err = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            1,
		GroupVersion:       1,
		PublishingInterval: time.Second,
		Writers: []model.DataSetWriter{
			{WriterID: 5, DataSet: &ds},
			{WriterID: 5, DataSet: &ds},
		},
	})
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestBuilder_RejectsAcyclicWithoutKeepAlive(t *testing.T) {
	b := model.NewBuilder()
	pubID, _ := model.NewUIntPublisherID(1)
	connHandle, err := b.AddPublisherConnection(model.PubSubConnection{
		Address:     "opc.udp://224.0.0.1:4840",
		PublisherID: pubID,
		Acyclic:     true,
	})
	require.NoError(t, err)

	ds := boolDataSet()
	_, err = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            1,
		GroupVersion:       1,
		PublishingInterval: time.Second,
		Writers:            []model.DataSetWriter{{WriterID: 1, DataSet: &ds}},
	})
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestBuilder_RejectsFixedSizeBufferWithVariableLengthField(t *testing.T) {
	b := model.NewBuilder()
	pubID, _ := model.NewUIntPublisherID(1)
	connHandle, err := b.AddPublisherConnection(model.PubSubConnection{Address: "opc.udp://224.0.0.1:4840", PublisherID: pubID})
	require.NoError(t, err)

	ds := model.PublishedDataSet{
		Fields: []model.FieldMetaData{
			{BuiltinType: ua.TypeIDString, ValueRank: model.ValueRankScalar},
		},
	}
	_, err = b.AddWriterGroup(connHandle, model.WriterGroup{
		GroupID:            1,
		GroupVersion:       1,
		PublishingInterval: time.Second,
		FixedSizeBuffer:    true,
		Writers:            []model.DataSetWriter{{WriterID: 1, DataSet: &ds}},
	})
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestPublisherID_RejectsZeroAndEmpty(t *testing.T) {
	_, err := model.NewUIntPublisherID(0)
	require.Error(t, err)

	_, err = model.NewStringPublisherID("")
	require.Error(t, err)

	id, err := model.NewUIntPublisherID(42)
	require.NoError(t, err)
	require.Equal(t, model.PublisherIDUInt, id.Kind())
	require.Equal(t, uint64(42), id.UInt())
}
