package model

import (
	"fmt"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	pubsubvalidate "github.com/fieldbus-systems/opcua-pubsub/pkg/validator"
	"github.com/gopcua/opcua/ua"
)

// structValidator runs the §7 per-struct invariants (non-zero ids,
// offset-before-interval, security-mode-implies-key-services, unique
// WriterIds, recognized address scheme) declared as `validate` tags on
// the model types. Invariants spanning more than one struct - acyclic
// keep-alive, fixed-size-buffer vs. variable-length fields - stay as
// procedural checks below, since a struct tag can't see a sibling field
// on the owning connection.
var structValidator = pubsubvalidate.New()

// datasetHasVariableLengthField reports whether any field of ds can
// encode to a different byte length from one tick to the next: a
// String/ByteString/XMLElement scalar, or any array-ranked field
// without a fixed ArrayDimensions declaration. Fixed-size buffer
// publication refuses this combination per the open question on
// variable-length payloads (see the configuration-invariant decision
// in DESIGN.md).
func datasetHasVariableLengthField(ds *PublishedDataSet) bool {
	for _, f := range ds.Fields {
		switch f.BuiltinType {
		case ua.TypeIDString, ua.TypeIDByteString, ua.TypeIDXMLElement:
			return true
		}
		if f.ValueRank.Valid() && f.ValueRank != ValueRankScalar && len(f.ArrayDimensions) == 0 {
			return true
		}
	}
	return false
}

// PublishedDataSetHandle, PublisherConnectionHandle, SubscriberConnectionHandle,
// WriterGroupHandle and ReaderGroupHandle are stable, dense indices into a
// built Config's slices. They replace the raw pointers into module-global
// arrays the original design used: once a Build() succeeds, a handle
// addresses the same slot for the Config's lifetime.
type (
	PublishedDataSetHandle     int
	PublisherConnectionHandle  int
	SubscriberConnectionHandle int
	WriterGroupHandle          int
	ReaderGroupHandle          int
)

// Builder is the mutable, monotonic "allocate then populate" half of the
// two-phase configuration API. It never resizes an already-returned
// handle's slot: every Add* call only appends. Build() freezes the
// accumulated state into an immutable Config, or reports the first
// invariant violation found.
type Builder struct {
	dataSets        []PublishedDataSet
	publisherConns  []PubSubConnection
	subscriberConns []PubSubConnection
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddPublishedDataSet appends ds to the root's dataset sequence and
// returns a stable handle to it.
func (b *Builder) AddPublishedDataSet(ds PublishedDataSet) PublishedDataSetHandle {
	b.dataSets = append(b.dataSets, ds)
	return PublishedDataSetHandle(len(b.dataSets) - 1)
}

// AddPublisherConnection appends a publisher-role connection. The
// connection's Role is forced to RolePublisher and its ReaderGroups must
// be empty.
func (b *Builder) AddPublisherConnection(conn PubSubConnection) (PublisherConnectionHandle, error) {
	if len(conn.ReaderGroups) > 0 {
		return 0, pubsuberrors.Configuration("publisher connection must not own reader groups", nil)
	}
	if conn.PublisherID.Kind() == PublisherIDNone {
		return 0, pubsuberrors.Configuration("publisher connection requires a PublisherID", nil)
	}
	conn.Role = RolePublisher
	b.publisherConns = append(b.publisherConns, conn)
	return PublisherConnectionHandle(len(b.publisherConns) - 1), nil
}

// AddSubscriberConnection appends a subscriber-role connection. The
// connection's Role is forced to RoleSubscriber; PublisherID is forbidden.
func (b *Builder) AddSubscriberConnection(conn PubSubConnection) (SubscriberConnectionHandle, error) {
	if len(conn.WriterGroups) > 0 {
		return 0, pubsuberrors.Configuration("subscriber connection must not own writer groups", nil)
	}
	if conn.PublisherID.Kind() != PublisherIDNone {
		return 0, pubsuberrors.Configuration("subscriber connection must not declare a PublisherID", nil)
	}
	conn.Role = RoleSubscriber
	b.subscriberConns = append(b.subscriberConns, conn)
	return SubscriberConnectionHandle(len(b.subscriberConns) - 1), nil
}

// AddWriterGroup appends wg to the publisher connection addressed by h.
func (b *Builder) AddWriterGroup(h PublisherConnectionHandle, wg WriterGroup) (WriterGroupHandle, error) {
	if int(h) < 0 || int(h) >= len(b.publisherConns) {
		return 0, pubsuberrors.Configuration("invalid publisher connection handle", nil)
	}
	conn := &b.publisherConns[h]
	conn.WriterGroups = append(conn.WriterGroups, wg)
	return WriterGroupHandle(len(conn.WriterGroups) - 1), nil
}

// AddReaderGroup appends rg to the subscriber connection addressed by h.
func (b *Builder) AddReaderGroup(h SubscriberConnectionHandle, rg ReaderGroup) (ReaderGroupHandle, error) {
	if int(h) < 0 || int(h) >= len(b.subscriberConns) {
		return 0, pubsuberrors.Configuration("invalid subscriber connection handle", nil)
	}
	conn := &b.subscriberConns[h]
	conn.ReaderGroups = append(conn.ReaderGroups, rg)
	return ReaderGroupHandle(len(conn.ReaderGroups) - 1), nil
}

// Config is the immutable, validated root configuration handed to the
// schedulers. Every PublisherConnections/SubscriberConnections/DataSets
// slice element returned by an accessor is stable for Config's lifetime.
type Config struct {
	dataSets        []PublishedDataSet
	publisherConns  []PubSubConnection
	subscriberConns []PubSubConnection
}

// PublisherConnections returns the ordered publisher-role connections.
func (c *Config) PublisherConnections() []PubSubConnection { return c.publisherConns }

// SubscriberConnections returns the ordered subscriber-role connections.
func (c *Config) SubscriberConnections() []PubSubConnection { return c.subscriberConns }

// DataSets returns the ordered PublishedDataSets.
func (c *Config) DataSets() []PublishedDataSet { return c.dataSets }

// Build validates the accumulated state and freezes it into a Config.
// On any invariant violation it returns a pubsub ConfigurationError and a
// nil Config; no partial Config is ever returned.
func (b *Builder) Build() (*Config, error) {
	if err := b.validateWriterGroups(); err != nil {
		return nil, err
	}
	if err := b.validateReaderGroups(); err != nil {
		return nil, err
	}

	return &Config{
		dataSets:        b.dataSets,
		publisherConns:  b.publisherConns,
		subscriberConns: b.subscriberConns,
	}, nil
}

func (b *Builder) validateWriterGroups() error {
	for ci, conn := range b.publisherConns {
		if err := structValidator.ValidateStruct(conn); err != nil {
			return pubsuberrors.Configuration(fmt.Sprintf("connection %d: %v", ci, err), err)
		}
		for gi, wg := range conn.WriterGroups {
			if err := structValidator.ValidateStruct(wg); err != nil {
				return pubsuberrors.Configuration(fmt.Sprintf("connection %d group %d: %v", ci, gi, err), err)
			}
			if conn.Acyclic && wg.KeepAliveTime <= 0 {
				return pubsuberrors.Configuration(fmt.Sprintf("connection %d group %d: acyclic connection requires a keep-alive duration", ci, gi), nil)
			}
			if wg.FixedSizeBuffer {
				for _, w := range wg.Writers {
					if w.DataSet != nil && datasetHasVariableLengthField(w.DataSet) {
						return pubsuberrors.Configuration(
							fmt.Sprintf("connection %d group %d writer %d: fixed-size buffer combined with a variable-length field is refused", ci, gi, w.WriterID), nil)
					}
				}
			}
		}
	}
	return nil
}

func (b *Builder) validateReaderGroups() error {
	for ci, conn := range b.subscriberConns {
		if err := structValidator.ValidateStruct(conn); err != nil {
			return pubsuberrors.Configuration(fmt.Sprintf("subscriber connection %d: %v", ci, err), err)
		}
		for gi, rg := range conn.ReaderGroups {
			if err := structValidator.ValidateStruct(rg); err != nil {
				return pubsuberrors.Configuration(fmt.Sprintf("subscriber connection %d group %d: %v", ci, gi, err), err)
			}
		}
	}
	return nil
}
