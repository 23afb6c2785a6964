package uadp

import (
	"time"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/gopcua/opcua/ua"
)

// MatchedReader pairs a decoded DataSetMessage with the DataSetReader
// configuration it satisfies, per the (PublisherId, GroupId, GroupVersion,
// WriterId) matching rule.
type MatchedReader struct {
	ReaderGroup *model.ReaderGroup
	Reader      *model.DataSetReader
	DSMIndex    int
}

// Decode parses data into a NetworkMessage and, against cfg, the
// DataSetReaders each contained DataSetMessage satisfies. It performs no
// security-signature verification; callers that matched at least one
// reader in a security-enabled group must call VerifySignature themselves
// once they know which security group applies.
func Decode(data []byte, cfg *model.Config) (*NetworkMessage, []MatchedReader, error) {
	r := &reader{data: data}

	flags1b, err := r.byte()
	if err != nil {
		return nil, nil, err
	}
	flags1 := NetworkMessageFlags(flags1b)

	var flags2 ExtendedFlags1
	if flags1&FlagExtendedFlags1Enabled != 0 {
		b, err := r.byte()
		if err != nil {
			return nil, nil, err
		}
		flags2 = ExtendedFlags1(b)
	}

	nm := &NetworkMessage{Version: wireVersion}

	if flags1&FlagPublisherIDEnabled != 0 {
		pidTypeB, err := r.byte()
		if err != nil {
			return nil, nil, err
		}
		pid, err := decodePublisherID(r, PublisherIDType(pidTypeB))
		if err != nil {
			return nil, nil, err
		}
		nm.PublisherID = pid
	}

	if flags1&FlagGroupHeaderEnabled != 0 {
		if nm.GroupID, err = r.u16(); err != nil {
			return nil, nil, err
		}
		if nm.GroupVersion, err = r.u32(); err != nil {
			return nil, nil, err
		}
		if nm.NetworkMessageNumber, err = r.u16(); err != nil {
			return nil, nil, err
		}
		if nm.SequenceNumber, err = r.u16(); err != nil {
			return nil, nil, err
		}
	}

	if flags1&FlagPayloadHeaderEnabled != 0 {
		count, err := r.byte()
		if err != nil {
			return nil, nil, err
		}
		nm.WriterIDs = make([]uint16, count)
		for i := range nm.WriterIDs {
			if nm.WriterIDs[i], err = r.u16(); err != nil {
				return nil, nil, err
			}
		}
	}

	if flags2&ExtFlag1TimestampEnabled != 0 {
		nm.TimestampEnabled = true
		ts, err := r.u64()
		if err != nil {
			return nil, nil, err
		}
		nm.Timestamp = time.Unix(0, int64(ts))
		if flags2&ExtFlag1PicoSecondsEnabled != 0 {
			if nm.PicoSeconds, err = r.u16(); err != nil {
				return nil, nil, err
			}
		}
	}

	if flags2&ExtFlag1SecurityEnabled != 0 {
		nm.SecurityEnabled = true
		if nm.SecurityTokenID, err = r.u32(); err != nil {
			return nil, nil, err
		}
		nlen, err := r.byte()
		if err != nil {
			return nil, nil, err
		}
		if nm.SecurityNonce, err = r.bytes(int(nlen)); err != nil {
			return nil, nil, err
		}
	}

	signedStart := r.pos
	nm.DataSetMessages = make([]DataSetMessage, len(nm.WriterIDs))
	for i := range nm.DataSetMessages {
		dsm, err := decodeDataSetMessage(r)
		if err != nil {
			return nil, nil, err
		}
		nm.DataSetMessages[i] = *dsm
	}
	nm.SignedPayload = append([]byte(nil), data[:r.pos]...)

	if nm.SecurityEnabled {
		nm.Signature = append([]byte(nil), data[r.pos:]...)
	}
	_ = signedStart

	matches := matchReaders(nm, cfg)
	return nm, matches, nil
}

func decodeDataSetMessage(r *reader) (*DataSetMessage, error) {
	h1, err := r.byte()
	if err != nil {
		return nil, err
	}
	mt, err := r.byte()
	if err != nil {
		return nil, err
	}

	dsm := &DataSetMessage{
		FieldEncoding: FieldEncoding(h1 & 0x3),
		MessageType:   MessageType(mt),
	}
	var mask ContentMask
	if h1&(1<<2) != 0 {
		mask |= ContentMaskSequenceNumber
	}
	if h1&(1<<3) != 0 {
		mask |= ContentMaskStatus
	}
	if h1&(1<<4) != 0 {
		mask |= ContentMaskConfigVersionMajor
	}
	if h1&(1<<5) != 0 {
		mask |= ContentMaskConfigVersionMinor
	}
	if h1&(1<<6) != 0 {
		mask |= ContentMaskTimestamp
	}
	if h1&(1<<7) != 0 {
		mask |= ContentMaskPicoSeconds
	}
	dsm.ContentMask = mask

	if dsm.WriterID, err = r.u16(); err != nil {
		return nil, err
	}
	if mask.Has(ContentMaskSequenceNumber) {
		if dsm.SequenceNumber, err = r.u16(); err != nil {
			return nil, err
		}
	}
	if mask.Has(ContentMaskStatus) {
		if dsm.Status, err = r.u16(); err != nil {
			return nil, err
		}
	}
	if mask.Has(ContentMaskConfigVersionMajor) {
		if dsm.ConfigVersionMajor, err = r.byte(); err != nil {
			return nil, err
		}
	}
	if mask.Has(ContentMaskConfigVersionMinor) {
		if dsm.ConfigVersionMinor, err = r.byte(); err != nil {
			return nil, err
		}
	}
	if mask.Has(ContentMaskTimestamp) {
		ts, err := r.u64()
		if err != nil {
			return nil, err
		}
		dsm.Timestamp = time.Unix(0, int64(ts))
	}
	if mask.Has(ContentMaskPicoSeconds) {
		if dsm.PicoSeconds, err = r.u16(); err != nil {
			return nil, err
		}
	}

	if dsm.MessageType == MessageTypeKeepAlive {
		return dsm, nil
	}

	fieldCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	dsm.Fields = make([]DataSetField, fieldCount)
	for i := range dsm.Fields {
		f, err := decodeField(r, dsm.FieldEncoding)
		if err != nil {
			return nil, err
		}
		dsm.Fields[i] = f
	}
	return dsm, nil
}

func decodeField(r *reader, enc FieldEncoding) (DataSetField, error) {
	n, err := r.u32()
	if err != nil {
		return DataSetField{}, err
	}
	raw, err := r.bytes(int(n))
	if err != nil {
		return DataSetField{}, err
	}

	switch enc {
	case FieldEncodingDataValue:
		var dv ua.DataValue
		if _, err := ua.Decode(raw, &dv); err != nil {
			return DataSetField{}, pubsuberrors.Decode("decoding data-value field failed", err)
		}
		return DataSetField{Value: dv.Value, Status: dv.Status, SourceTimestamp: dv.SourceTimestamp}, nil
	default:
		var v ua.Variant
		if _, err := ua.Decode(raw, &v); err != nil {
			return DataSetField{}, pubsuberrors.Decode("decoding variant field failed", err)
		}
		return DataSetField{Value: &v}, nil
	}
}

func decodePublisherID(r *reader, t PublisherIDType) (model.PublisherID, error) {
	switch t {
	case PublisherIDTypeByte:
		b, err := r.byte()
		if err != nil {
			return model.PublisherID{}, err
		}
		return model.NewUIntPublisherID(uint64(b))
	case PublisherIDTypeUInt16:
		v, err := r.u16()
		if err != nil {
			return model.PublisherID{}, err
		}
		return model.NewUIntPublisherID(uint64(v))
	case PublisherIDTypeUInt32:
		v, err := r.u32()
		if err != nil {
			return model.PublisherID{}, err
		}
		return model.NewUIntPublisherID(uint64(v))
	case PublisherIDTypeUInt64:
		v, err := r.u64()
		if err != nil {
			return model.PublisherID{}, err
		}
		return model.NewUIntPublisherID(v)
	case PublisherIDTypeString:
		n, err := r.u16()
		if err != nil {
			return model.PublisherID{}, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return model.PublisherID{}, err
		}
		return model.NewStringPublisherID(string(b))
	default:
		return model.PublisherID{}, pubsuberrors.Decode("unknown PublisherId type on wire", nil)
	}
}

// matchReaders finds, for each DataSetMessage in nm and each subscriber
// reader group whose PublisherId, GroupId and GroupVersion match, the
// first DataSetReader in that group whose WriterId matches; one
// DataSetMessage can therefore match readers in several groups. A
// group's ExpectedPublisherID of none or GroupVersion of 0 matches any
// value, and a DataSetReader's DataSetWriterId of 0 matches any writer.
func matchReaders(nm *NetworkMessage, cfg *model.Config) []MatchedReader {
	var out []MatchedReader
	for dsmIdx, dsm := range nm.DataSetMessages {
		for _, conn := range cfg.SubscriberConnections() {
			for gi := range conn.ReaderGroups {
				rg := &conn.ReaderGroups[gi]
				if rg.ExpectedPublisherID.Kind() != model.PublisherIDNone && !rg.ExpectedPublisherID.Equal(nm.PublisherID) {
					continue
				}
				if rg.GroupID != nm.GroupID {
					continue
				}
				if rg.GroupVersion != 0 && rg.GroupVersion != nm.GroupVersion {
					continue
				}
				for ri := range rg.Readers {
					reader := &rg.Readers[ri]
					if reader.MatchesWriterID(dsm.WriterID) {
						out = append(out, MatchedReader{ReaderGroup: rg, Reader: reader, DSMIndex: dsmIdx})
						break
					}
				}
			}
		}
	}
	return out
}
