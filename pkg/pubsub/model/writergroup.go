package model

import (
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/wire"
)

// DataSetWriterOptions are the per-writer emission toggles.
type DataSetWriterOptions struct {
	EmitSequenceNumber bool
	EmitTimestamp      bool
	EmitAtThisTick     bool
}

// DataSetWriter binds a WriterId to a PublishedDataSet within a WriterGroup.
type DataSetWriter struct {
	WriterID    uint16            `validate:"gt=0"`
	DataSet     *PublishedDataSet `validate:"required"`
	Options     DataSetWriterOptions
}

// WriterGroup is the publisher-side scheduling and encoding unit: a
// publishing interval, security mode, content mask, and its ordered
// DataSetWriters. WriterIds within a group are unique and non-zero.
type WriterGroup struct {
	GroupID           uint16        `validate:"gt=0"`
	GroupVersion      uint32        `validate:"gt=0"`
	PublishingInterval time.Duration `validate:"gt=0"`
	PublishingOffset   time.Duration `validate:"ltfield=PublishingInterval"`
	SecurityMode       SecurityMode
	SecurityGroupID    string `validate:"required_unless=SecurityMode 0"`
	KeepAliveTime      time.Duration
	MQTTTopic          string
	Encoding           Encoding
	FixedSizeBuffer    bool
	ContentMask        wire.ContentMask
	SecurityKeyServices []SecurityKeyServicesRef `validate:"required_unless=SecurityMode 0"`

	// unique=WriterID rejects a duplicate WriterId without a second pass
	// over the slice; dive applies DataSetWriter's own tags per element.
	Writers []DataSetWriter `validate:"required,unique=WriterID,dive"`
}

// Encoding is the wire encoding family for a group's messages.
type Encoding int

const (
	EncodingUADP Encoding = iota
	EncodingJSON
)

// Writer returns the DataSetWriter with the given WriterId, or nil.
func (g *WriterGroup) Writer(writerID uint16) *DataSetWriter {
	for i := range g.Writers {
		if g.Writers[i].WriterID == writerID {
			return &g.Writers[i]
		}
	}
	return nil
}
