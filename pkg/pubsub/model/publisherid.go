// Package model holds the immutable PubSub configuration and dataset
// description: connections, writer/reader groups, datasets and field
// metadata, built through a two-phase Builder -> Config API so that once
// a Config reaches a scheduler, every accessor it exposes is stable for
// the Config's lifetime.
package model

import (
	"fmt"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// PublisherIDKind discriminates the PublisherID tagged variant.
type PublisherIDKind int

const (
	PublisherIDNone PublisherIDKind = iota
	PublisherIDUInt
	PublisherIDString
)

// PublisherID identifies a publishing participant on the wire. It is a
// tagged variant: None, an unsigned integer, or a string. UInt(0) and
// empty strings are invalid and rejected by the constructors.
type PublisherID struct {
	kind    PublisherIDKind
	uintVal uint64
	strVal  string
}

// NoPublisherID returns the None variant, valid only on subscriber-role
// connections where a PublisherID is forbidden.
func NoPublisherID() PublisherID {
	return PublisherID{kind: PublisherIDNone}
}

// NewUIntPublisherID builds the UInt variant. v == 0 is invalid.
func NewUIntPublisherID(v uint64) (PublisherID, error) {
	if v == 0 {
		return PublisherID{}, pubsuberrors.Configuration("publisher id: UInt(0) is invalid", nil)
	}
	return PublisherID{kind: PublisherIDUInt, uintVal: v}, nil
}

// NewStringPublisherID builds the String variant. An empty string is invalid.
func NewStringPublisherID(v string) (PublisherID, error) {
	if v == "" {
		return PublisherID{}, pubsuberrors.Configuration("publisher id: empty string is invalid", nil)
	}
	return PublisherID{kind: PublisherIDString, strVal: v}, nil
}

// Kind reports which variant is populated.
func (p PublisherID) Kind() PublisherIDKind { return p.kind }

// UInt returns the numeric value; valid only when Kind() == PublisherIDUInt.
func (p PublisherID) UInt() uint64 { return p.uintVal }

// String returns the string value when Kind() == PublisherIDString, or a
// debug representation otherwise.
func (p PublisherID) String() string {
	switch p.kind {
	case PublisherIDNone:
		return "<none>"
	case PublisherIDUInt:
		return fmt.Sprintf("%d", p.uintVal)
	case PublisherIDString:
		return p.strVal
	default:
		return "<invalid>"
	}
}

// Equal compares two PublisherIDs for value equality within the same variant.
func (p PublisherID) Equal(other PublisherID) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case PublisherIDUInt:
		return p.uintVal == other.uintVal
	case PublisherIDString:
		return p.strVal == other.strVal
	default:
		return true
	}
}
