package model

import (
	"github.com/gopcua/opcua/ua"
)

// ValueRank constrains an array dimension declaration to the tagged set
// OPC UA Part 6 allows, rather than a raw signed int.
type ValueRank int

const (
	// ValueRankScalarOrOneDim (-3): either a scalar or a one-dimensional array.
	ValueRankScalarOrOneDim ValueRank = -3
	// ValueRankAny (-2): any rank, including scalar.
	ValueRankAny ValueRank = -2
	// ValueRankScalar (-1): scalar only.
	ValueRankScalar ValueRank = -1
	// ValueRankOneOrMoreDim (0): an array of unspecified, fixed rank >= 1.
	ValueRankOneOrMoreDim ValueRank = 0
	// ValueRankOneDim (1): a one-dimensional array.
	ValueRankOneDim ValueRank = 1
)

// ValueRankSpecific builds the Specific(n>1) variant for a fixed-rank
// array of n dimensions.
func ValueRankSpecific(n int) ValueRank { return ValueRank(n) }

// Valid reports whether r is one of the tagged ranks or a Specific(n>1).
func (r ValueRank) Valid() bool {
	switch r {
	case ValueRankScalarOrOneDim, ValueRankAny, ValueRankScalar, ValueRankOneOrMoreDim, ValueRankOneDim:
		return true
	default:
		return r > 1
	}
}

// PublishedVariable is the publisher-side target of a FieldMetaData: the
// node whose Value attribute is read on each tick.
type PublishedVariable struct {
	NodeID       *ua.NodeID
	AttributeID  uint32
	NumericRange string
}

// NewPublishedVariable builds a PublishedVariable with AttributeID fixed
// at 13 (Value) per the wire contract.
func NewPublishedVariable(nodeID *ua.NodeID, numericRange string) PublishedVariable {
	return PublishedVariable{NodeID: nodeID, AttributeID: ua.AttributeIDValue, NumericRange: numericRange}
}

// FieldTarget is the subscriber-side target of a FieldMetaData: the node
// a received field is written into.
type FieldTarget struct {
	NodeID            *ua.NodeID
	AttributeID       uint32
	SourceRange       string
	TargetRange       string
}

// NewFieldTarget builds a FieldTarget with AttributeID fixed at 13 (Value).
func NewFieldTarget(nodeID *ua.NodeID, sourceRange, targetRange string) FieldTarget {
	return FieldTarget{NodeID: nodeID, AttributeID: ua.AttributeIDValue, SourceRange: sourceRange, TargetRange: targetRange}
}

// FieldMetaData describes one field of a PublishedDataSet: its wire
// type, array shape, and direction-specific target (PublishedVariable on
// the publisher side, FieldTarget on the subscriber side).
type FieldMetaData struct {
	BuiltinType     ua.TypeID
	ValueRank       ValueRank
	ArrayDimensions []uint32

	Published *PublishedVariable
	Target    *FieldTarget
}
