package model

import "time"

// ReceptionType selects how a DataSetReader exposes received values.
type ReceptionType int

const (
	ReceptionTargetVariables ReceptionType = iota
	ReceptionMirror
)

// DataSetReader matches incoming DataSetMessages by WriterId (0 = any)
// and declares the FieldTargets values are written into.
type DataSetReader struct {
	DataSetWriterID uint16
	ReceiveTimeout  time.Duration
	Reception       ReceptionType
	Fields          []FieldMetaData
}

// MatchesWriterID reports whether this reader accepts dsmWriterID,
// treating DataSetWriterID == 0 as a wildcard.
func (r *DataSetReader) MatchesWriterID(dsmWriterID uint16) bool {
	return r.DataSetWriterID == 0 || r.DataSetWriterID == dsmWriterID
}

// ReaderGroup mirrors WriterGroup on the subscriber side: expected
// PublisherID, security mode, and an ordered sequence of DataSetReaders.
type ReaderGroup struct {
	GroupID             uint16 `validate:"gt=0"`
	GroupVersion        uint32
	ExpectedPublisherID PublisherID
	SecurityMode        SecurityMode
	SecurityGroupID     string                    `validate:"required_unless=SecurityMode 0"`
	MQTTTopic           string
	SecurityKeyServices []SecurityKeyServicesRef `validate:"required_unless=SecurityMode 0"`

	Readers []DataSetReader
}
