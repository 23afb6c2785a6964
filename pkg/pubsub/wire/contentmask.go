// Package wire holds the UADP wire-format enums and bit-flag sets shared
// between pkg/pubsub/model (which declares a WriterGroup's ContentMask)
// and pkg/pubsub/uadp (which encodes/decodes against it). Splitting these
// out of pkg/pubsub/uadp avoids a model<->uadp import cycle.
package wire

// FieldEncoding selects how DataSetField values are serialized within a
// DataSetMessage.
type FieldEncoding int

const (
	FieldEncodingVariant FieldEncoding = iota
	FieldEncodingRawData
	FieldEncodingDataValue
)

// MessageType distinguishes the DataSetMessage content.
type MessageType int

const (
	MessageTypeKeyFrame MessageType = iota
	MessageTypeDeltaFrame
	MessageTypeEvent
	MessageTypeKeepAlive
)

// ContentMask is an exhaustive bit-flag set controlling which optional
// DataSetMessage fields are present on the wire, replacing a raw int.
type ContentMask uint16

const (
	ContentMaskSequenceNumber ContentMask = 1 << iota
	ContentMaskStatus
	ContentMaskConfigVersionMajor
	ContentMaskConfigVersionMinor
	ContentMaskTimestamp
	ContentMaskPicoSeconds
)

// Has reports whether every bit of flag is set in m.
func (m ContentMask) Has(flag ContentMask) bool { return m&flag == flag }

// NetworkMessageFlags mirrors the header flags byte 1 of the wire format.
type NetworkMessageFlags uint8

const (
	FlagPublisherIDEnabled NetworkMessageFlags = 1 << iota
	FlagGroupHeaderEnabled
	FlagPayloadHeaderEnabled
	FlagExtendedFlags1Enabled
)

// ExtendedFlags1 mirrors header flags byte 2.
type ExtendedFlags1 uint8

const (
	// Bits 0-1 are reserved; the PublisherIdType itself is carried as its
	// own byte immediately ahead of the PublisherId value on the wire.
	ExtFlag1DataSetClassIDEnabled ExtendedFlags1 = 1 << 2
	ExtFlag1SecurityEnabled       ExtendedFlags1 = 1 << 3
	ExtFlag1TimestampEnabled      ExtendedFlags1 = 1 << 4
	ExtFlag1PicoSecondsEnabled    ExtendedFlags1 = 1 << 5
	ExtFlag1ExtendedFlags2Enabled ExtendedFlags1 = 1 << 6
)

// PublisherIDType is the width selector for the on-wire PublisherID.
type PublisherIDType uint8

const (
	PublisherIDTypeByte PublisherIDType = iota
	PublisherIDTypeUInt16
	PublisherIDTypeUInt32
	PublisherIDTypeUInt64
	PublisherIDTypeString
)
