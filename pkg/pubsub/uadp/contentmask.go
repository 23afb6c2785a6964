// Package uadp owns the in-memory NetworkMessage/DataSetMessage model
// and the UADP binary codec (network_message_from_writer_group,
// nm_set_variant_at, nm_encode, nm_decode) per the wire layout of OPC UA
// Part 14. The flag/enum vocabulary itself lives in pkg/pubsub/wire so
// that pkg/pubsub/model can declare a WriterGroup's ContentMask without
// importing this package.
package uadp

import "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/wire"

type (
	FieldEncoding       = wire.FieldEncoding
	MessageType         = wire.MessageType
	ContentMask         = wire.ContentMask
	NetworkMessageFlags = wire.NetworkMessageFlags
	ExtendedFlags1      = wire.ExtendedFlags1
	PublisherIDType     = wire.PublisherIDType
)

const (
	FieldEncodingVariant   = wire.FieldEncodingVariant
	FieldEncodingRawData   = wire.FieldEncodingRawData
	FieldEncodingDataValue = wire.FieldEncodingDataValue

	MessageTypeKeyFrame   = wire.MessageTypeKeyFrame
	MessageTypeDeltaFrame = wire.MessageTypeDeltaFrame
	MessageTypeEvent      = wire.MessageTypeEvent
	MessageTypeKeepAlive  = wire.MessageTypeKeepAlive

	ContentMaskSequenceNumber     = wire.ContentMaskSequenceNumber
	ContentMaskStatus             = wire.ContentMaskStatus
	ContentMaskConfigVersionMajor = wire.ContentMaskConfigVersionMajor
	ContentMaskConfigVersionMinor = wire.ContentMaskConfigVersionMinor
	ContentMaskTimestamp          = wire.ContentMaskTimestamp
	ContentMaskPicoSeconds        = wire.ContentMaskPicoSeconds

	FlagPublisherIDEnabled    = wire.FlagPublisherIDEnabled
	FlagGroupHeaderEnabled    = wire.FlagGroupHeaderEnabled
	FlagPayloadHeaderEnabled  = wire.FlagPayloadHeaderEnabled
	FlagExtendedFlags1Enabled = wire.FlagExtendedFlags1Enabled

	ExtFlag1DataSetClassIDEnabled = wire.ExtFlag1DataSetClassIDEnabled
	ExtFlag1SecurityEnabled       = wire.ExtFlag1SecurityEnabled
	ExtFlag1TimestampEnabled      = wire.ExtFlag1TimestampEnabled
	ExtFlag1PicoSecondsEnabled    = wire.ExtFlag1PicoSecondsEnabled
	ExtFlag1ExtendedFlags2Enabled = wire.ExtFlag1ExtendedFlags2Enabled

	PublisherIDTypeByte   = wire.PublisherIDTypeByte
	PublisherIDTypeUInt16 = wire.PublisherIDTypeUInt16
	PublisherIDTypeUInt32 = wire.PublisherIDTypeUInt32
	PublisherIDTypeUInt64 = wire.PublisherIDTypeUInt64
	PublisherIDTypeString = wire.PublisherIDTypeString
)
