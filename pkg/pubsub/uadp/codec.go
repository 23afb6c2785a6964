package uadp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
	"github.com/gopcua/opcua/ua"
)

// EncodeOptions carries the security material nm_encode needs when the
// originating WriterGroup has a SecurityMode above None. Callers leave
// it nil for unsecured groups.
type EncodeOptions struct {
	SecurityGroupID string
	KeyManager      *security.KeyManager
	Crypto          security.CryptoProvider
	Nonce           []byte
}

// Encode serializes nm to its UADP binary form. When opts is non-nil the
// trailing signature footer is computed over every byte written so far
// using the current key for opts.SecurityGroupID.
func Encode(nm *NetworkMessage, opts *EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer

	flags1 := FlagPublisherIDEnabled | FlagGroupHeaderEnabled | FlagPayloadHeaderEnabled | FlagExtendedFlags1Enabled
	buf.WriteByte(byte(flags1))

	var flags2 ExtendedFlags1
	if opts != nil {
		flags2 |= ExtFlag1SecurityEnabled
	}
	if nm.TimestampEnabled {
		flags2 |= ExtFlag1TimestampEnabled
		if nm.PicoSeconds != 0 {
			flags2 |= ExtFlag1PicoSecondsEnabled
		}
	}
	buf.WriteByte(byte(flags2))

	pidType, pidBytes, err := encodePublisherID(nm.PublisherID)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(byte(pidType))
	buf.Write(pidBytes)

	// Group header: GroupId, GroupVersion, NetworkMessageNumber, SequenceNumber.
	writeU16(&buf, nm.GroupID)
	writeU32(&buf, nm.GroupVersion)
	writeU16(&buf, nm.NetworkMessageNumber)
	writeU16(&buf, nm.SequenceNumber)

	// Payload header: writer count + writer ids.
	if len(nm.WriterIDs) > 0xff {
		return nil, pubsuberrors.Decode("too many writers for one network message", nil)
	}
	buf.WriteByte(byte(len(nm.WriterIDs)))
	for _, id := range nm.WriterIDs {
		writeU16(&buf, id)
	}

	if nm.TimestampEnabled {
		writeI64(&buf, nm.Timestamp.UnixNano())
		if nm.PicoSeconds != 0 {
			writeU16(&buf, nm.PicoSeconds)
		}
	}

	var key []byte
	var tokenID uint32
	var nonce []byte
	if opts != nil {
		key, tokenID, err = opts.KeyManager.CurrentKey(opts.SecurityGroupID)
		if err != nil {
			return nil, err
		}
		nonce = opts.Nonce
		writeU32(&buf, tokenID)
		if len(nonce) > 0xff {
			return nil, pubsuberrors.Decode("security nonce too long", nil)
		}
		buf.WriteByte(byte(len(nonce)))
		buf.Write(nonce)
	}

	for i := range nm.DataSetMessages {
		if err := encodeDataSetMessage(&buf, &nm.DataSetMessages[i]); err != nil {
			return nil, err
		}
	}

	if opts != nil {
		sig, err := opts.Crypto.Sign(key, buf.Bytes())
		if err != nil {
			return nil, pubsuberrors.Security("signing network message failed", err)
		}
		buf.Write(sig)
	}

	return buf.Bytes(), nil
}

func encodeDataSetMessage(buf *bytes.Buffer, dsm *DataSetMessage) error {
	var h1 byte
	h1 |= byte(dsm.FieldEncoding) & 0x3
	if dsm.ContentMask.Has(ContentMaskSequenceNumber) {
		h1 |= 1 << 2
	}
	if dsm.ContentMask.Has(ContentMaskStatus) {
		h1 |= 1 << 3
	}
	if dsm.ContentMask.Has(ContentMaskConfigVersionMajor) {
		h1 |= 1 << 4
	}
	if dsm.ContentMask.Has(ContentMaskConfigVersionMinor) {
		h1 |= 1 << 5
	}
	if dsm.ContentMask.Has(ContentMaskTimestamp) {
		h1 |= 1 << 6
	}
	if dsm.ContentMask.Has(ContentMaskPicoSeconds) {
		h1 |= 1 << 7
	}
	buf.WriteByte(h1)
	buf.WriteByte(byte(dsm.MessageType))

	writeU16(buf, dsm.WriterID)

	if dsm.ContentMask.Has(ContentMaskSequenceNumber) {
		writeU16(buf, dsm.SequenceNumber)
	}
	if dsm.ContentMask.Has(ContentMaskStatus) {
		writeU16(buf, dsm.Status)
	}
	if dsm.ContentMask.Has(ContentMaskConfigVersionMajor) {
		buf.WriteByte(dsm.ConfigVersionMajor)
	}
	if dsm.ContentMask.Has(ContentMaskConfigVersionMinor) {
		buf.WriteByte(dsm.ConfigVersionMinor)
	}
	if dsm.ContentMask.Has(ContentMaskTimestamp) {
		writeI64(buf, dsm.Timestamp.UnixNano())
	}
	if dsm.ContentMask.Has(ContentMaskPicoSeconds) {
		writeU16(buf, dsm.PicoSeconds)
	}

	if dsm.MessageType == MessageTypeKeepAlive {
		return nil
	}

	if len(dsm.Fields) > 0xffff {
		return pubsuberrors.Decode("too many fields for one dataset message", nil)
	}
	writeU16(buf, uint16(len(dsm.Fields)))

	for _, f := range dsm.Fields {
		if err := encodeField(buf, dsm.FieldEncoding, f); err != nil {
			return err
		}
	}
	return nil
}

func encodeField(buf *bytes.Buffer, enc FieldEncoding, f DataSetField) error {
	switch enc {
	case FieldEncodingVariant:
		data, err := ua.Encode(f.Value)
		if err != nil {
			return pubsuberrors.Decode("encoding variant field failed", err)
		}
		writeU32(buf, uint32(len(data)))
		buf.Write(data)
	case FieldEncodingDataValue:
		dv := &ua.DataValue{
			EncodingMask:    ua.DataValueValue | ua.DataValueStatusCode | ua.DataValueSourceTimestamp,
			Value:           f.Value,
			Status:          f.Status,
			SourceTimestamp: f.SourceTimestamp,
		}
		data, err := ua.Encode(dv)
		if err != nil {
			return pubsuberrors.Decode("encoding data-value field failed", err)
		}
		writeU32(buf, uint32(len(data)))
		buf.Write(data)
	default:
		data, err := ua.Encode(f.Value)
		if err != nil {
			return pubsuberrors.Decode("encoding raw field failed", err)
		}
		writeU32(buf, uint32(len(data)))
		buf.Write(data)
	}
	return nil
}

func encodePublisherID(id model.PublisherID) (PublisherIDType, []byte, error) {
	var buf bytes.Buffer
	switch id.Kind() {
	case model.PublisherIDUInt:
		v := id.UInt()
		switch {
		case v <= 0xff:
			buf.WriteByte(byte(v))
			return PublisherIDTypeByte, buf.Bytes(), nil
		case v <= 0xffff:
			writeU16(&buf, uint16(v))
			return PublisherIDTypeUInt16, buf.Bytes(), nil
		case v <= 0xffffffff:
			writeU32(&buf, uint32(v))
			return PublisherIDTypeUInt32, buf.Bytes(), nil
		default:
			writeU64(&buf, v)
			return PublisherIDTypeUInt64, buf.Bytes(), nil
		}
	case model.PublisherIDString:
		s := id.String()
		writeU16(&buf, uint16(len(s)))
		buf.WriteString(s)
		return PublisherIDTypeString, buf.Bytes(), nil
	default:
		return 0, nil, pubsuberrors.Configuration("cannot encode a NetworkMessage without a PublisherID", nil)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	writeU64(buf, uint64(v))
}

// reader wraps a byte slice cursor with bounds-checked primitive reads,
// returning a pubsub DecodeError the first time a read would run past
// the end of the buffer.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return pubsuberrors.Decode(fmt.Sprintf("truncated network message: need %d bytes at offset %d, have %d", n, r.pos, len(r.data)), nil)
	}
	return nil
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
