package uam

import (
	"encoding/binary"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// SPDUKind discriminates a Request SPDU (non-safe side -> Provider, or
// Consumer -> non-safe side) from a Response SPDU (the reverse).
type SPDUKind int

const (
	SPDURequest SPDUKind = iota
	SPDUResponse
)

// SPDU is the Safety Protocol Data Unit exchanged between a
// Provider/Consumer and its non-safe counterpart. It replaces the raw
// pointer-cast safe-payload union with an explicit little-endian
// binary layout: 3 u32 id fields, a u32 MonitoringNumber, a u16 Flags
// word, a u16 CRC, then SafetyData and NonSafetyData of the lengths
// frozen at init time.
type SPDU struct {
	Kind            SPDUKind
	IDHigh          uint32
	IDMid           uint32
	IDLow           uint32
	MonitoringNumber uint32
	Flags           uint16
	CRC             uint16
	SafetyData      []byte
	NonSafetyData   []byte
}

const spduHeaderSize = 4 + 4 + 4 + 4 + 2 + 2

// EncodeSPDU writes s's wire layout. The caller-supplied buf must be at
// least spduHeaderSize+len(SafetyData)+len(NonSafetyData) bytes; it is
// never allocated by this function so a cycle can reuse an arena-backed
// buffer.
func EncodeSPDU(buf []byte, s *SPDU) (int, error) {
	need := spduHeaderSize + len(s.SafetyData) + len(s.NonSafetyData)
	if len(buf) < need {
		return 0, pubsuberrors.Allocation("spdu: encode buffer too small", nil)
	}

	binary.LittleEndian.PutUint32(buf[0:4], s.IDHigh)
	binary.LittleEndian.PutUint32(buf[4:8], s.IDMid)
	binary.LittleEndian.PutUint32(buf[8:12], s.IDLow)
	binary.LittleEndian.PutUint32(buf[12:16], s.MonitoringNumber)
	binary.LittleEndian.PutUint16(buf[16:18], s.Flags)
	binary.LittleEndian.PutUint16(buf[18:20], s.CRC)
	n := spduHeaderSize
	n += copy(buf[n:], s.SafetyData)
	n += copy(buf[n:], s.NonSafetyData)
	return n, nil
}

// DecodeSPDU parses the header fields out of data and aliases
// SafetyData/NonSafetyData directly into data's backing array rather
// than copying: in the scheduler, data is always a sub-slice of an
// arena-owned request/response buffer, so this draws no general-
// allocator memory during cycle.
func DecodeSPDU(data []byte, kind SPDUKind, safetyLen, nonSafetyLen int) (*SPDU, error) {
	need := spduHeaderSize + safetyLen + nonSafetyLen
	if len(data) < need {
		return nil, pubsuberrors.Decode("spdu: truncated message", nil)
	}

	s := &SPDU{
		Kind:             kind,
		IDHigh:           binary.LittleEndian.Uint32(data[0:4]),
		IDMid:            binary.LittleEndian.Uint32(data[4:8]),
		IDLow:            binary.LittleEndian.Uint32(data[8:12]),
		MonitoringNumber: binary.LittleEndian.Uint32(data[12:16]),
		Flags:            binary.LittleEndian.Uint16(data[16:18]),
		CRC:              binary.LittleEndian.Uint16(data[18:20]),
	}
	pos := spduHeaderSize
	s.SafetyData = data[pos : pos+safetyLen]
	pos += safetyLen
	s.NonSafetyData = data[pos : pos+nonSafetyLen]
	return s, nil
}
