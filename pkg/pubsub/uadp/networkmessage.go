package uadp

import (
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/gopcua/opcua/ua"
)

// DataSetField is one value within a DataSetMessage, installed by
// NmSetVariantAt.
type DataSetField struct {
	Value           *ua.Variant
	SourceTimestamp time.Time
	Status          ua.StatusCode
}

// DataSetMessage carries one WriterId's contribution to a NetworkMessage.
type DataSetMessage struct {
	FieldEncoding      FieldEncoding
	MessageType        MessageType
	ContentMask        ContentMask
	WriterID           uint16
	SequenceNumber     uint16
	Status             uint16
	ConfigVersionMajor uint8
	ConfigVersionMinor uint8
	Timestamp          time.Time
	PicoSeconds        uint16

	Fields []DataSetField
}

// NetworkMessage is the in-memory UADP wire model: a header plus an
// ordered sequence of DataSetMessages, one per writer in the originating
// WriterGroup.
type NetworkMessage struct {
	Version      uint8
	PublisherID  model.PublisherID
	GroupID      uint16
	GroupVersion uint32

	NetworkMessageNumber uint16
	SequenceNumber       uint16

	WriterIDs []uint16

	TimestampEnabled bool
	Timestamp        time.Time
	PicoSeconds      uint16

	SecurityEnabled bool
	SecurityTokenID uint32
	SecurityNonce   []byte
	Signature       []byte
	SignedPayload   []byte

	DataSetMessages []DataSetMessage
}

const wireVersion uint8 = 1

// NetworkMessageFromWriterGroup builds an NM with one DataSetMessage per
// configured writer in wg, populating the header from wg and its parent
// connection. keepAlive selects the DataSetMessage type: KeepAlive when
// set, KeyFrame for cyclic DataItems sources, Event for CustomSource/
// Events sources. For non-keep-alive messages, field storage is
// pre-allocated to the length declared by each writer's dataset.
func NetworkMessageFromWriterGroup(conn *model.PubSubConnection, wg *model.WriterGroup, keepAlive bool) (*NetworkMessage, error) {
	nm := &NetworkMessage{
		Version:         wireVersion,
		PublisherID:     conn.PublisherID,
		GroupID:         wg.GroupID,
		GroupVersion:    wg.GroupVersion,
		SecurityEnabled: wg.SecurityMode != model.SecurityModeNone,
	}

	nm.DataSetMessages = make([]DataSetMessage, len(wg.Writers))
	nm.WriterIDs = make([]uint16, len(wg.Writers))

	for i, w := range wg.Writers {
		nm.WriterIDs[i] = w.WriterID

		dsm := DataSetMessage{
			ContentMask: wg.ContentMask,
			WriterID:    w.WriterID,
		}

		switch {
		case keepAlive:
			dsm.MessageType = MessageTypeKeepAlive
		case w.DataSet != nil && w.DataSet.Source != model.SourceDataItems:
			dsm.MessageType = MessageTypeEvent
		default:
			dsm.MessageType = MessageTypeKeyFrame
		}

		if dsm.MessageType != MessageTypeKeepAlive && w.DataSet != nil {
			dsm.Fields = make([]DataSetField, w.DataSet.FieldCount())
		}

		nm.DataSetMessages[i] = dsm
	}

	return nm, nil
}

// NmSetVariantAt installs value at the given DataSetMessage/field
// position, as produced by the source-variable provider for that field's
// metadata.
func NmSetVariantAt(nm *NetworkMessage, dsmIndex, fieldIndex int, value *ua.Variant, sourceTimestamp time.Time, status ua.StatusCode) error {
	if dsmIndex < 0 || dsmIndex >= len(nm.DataSetMessages) {
		return errOutOfRange("dataset message index")
	}
	dsm := &nm.DataSetMessages[dsmIndex]
	if fieldIndex < 0 || fieldIndex >= len(dsm.Fields) {
		return errOutOfRange("field index")
	}
	dsm.Fields[fieldIndex] = DataSetField{Value: value, SourceTimestamp: sourceTimestamp, Status: status}
	return nil
}

func errOutOfRange(what string) error {
	return &rangeError{what: what}
}

type rangeError struct{ what string }

func (e *rangeError) Error() string { return "uadp: " + e.what + " out of range" }
