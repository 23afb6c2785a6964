package model

// SourceType distinguishes the origin of a PublishedDataSet's values.
type SourceType int

const (
	SourceDataItems SourceType = iota
	SourceCustomSource
	SourceEvents
)

// PublishedDataSet is an ordered set of fields a WriterGroup can emit.
// It is referenced by WriterId; its field count and order are frozen
// once the owning Config is built.
type PublishedDataSet struct {
	Source SourceType
	Fields []FieldMetaData
}

// FieldCount returns the number of fields, matching the pre-allocated
// field storage a NetworkMessage must reserve for this dataset.
func (d *PublishedDataSet) FieldCount() int { return len(d.Fields) }
