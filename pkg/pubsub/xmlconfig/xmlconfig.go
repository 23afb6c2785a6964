// Package xmlconfig loads the canonical PubSub configuration XML format
// into an in-memory model.Config. It only calls the public Builder API
// of pkg/pubsub/model, never its internals: parsing the XML is kept out
// of the core, matching how the core only ever consumes the built
// configuration, not a file format.
package xmlconfig

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/gopcua/opcua/ua"
)

type document struct {
	XMLName           xml.Name           `xml:"PubSubConfiguration"`
	PublishedDataSets []xmlDataSet       `xml:"PublishedDataSets>PublishedDataSet"`
	Connections       []xmlConnection    `xml:"Connections>Connection"`
}

type xmlDataSet struct {
	Name   string     `xml:"name,attr"`
	Fields []xmlField `xml:"Field"`
}

type xmlField struct {
	Type      string `xml:"type,attr"`
	NodeID    string `xml:"nodeId,attr"`
	ValueRank int    `xml:"valueRank,attr"`
}

type xmlConnection struct {
	Role        string          `xml:"role,attr"`
	Address     string          `xml:"address,attr"`
	Interface   string          `xml:"networkInterface,attr"`
	PublisherID string          `xml:"publisherId,attr"`
	Acyclic     bool            `xml:"acyclic,attr"`
	Enabled     *bool           `xml:"enabled,attr"`
	WriterGroups []xmlWriterGroup `xml:"WriterGroup"`
	ReaderGroups []xmlReaderGroup `xml:"ReaderGroup"`
}

type xmlWriterGroup struct {
	GroupID            uint16             `xml:"groupId,attr"`
	GroupVersion       uint32             `xml:"groupVersion,attr"`
	PublishingInterval float64            `xml:"publishingIntervalMs,attr"`
	KeepAliveMs        float64            `xml:"keepAliveMs,attr"`
	Writers            []xmlDataSetWriter `xml:"DataSetWriter"`
}

type xmlDataSetWriter struct {
	WriterID uint16 `xml:"writerId,attr"`
	DataSet  string `xml:"dataSet,attr"`
}

type xmlReaderGroup struct {
	GroupID             uint16          `xml:"groupId,attr"`
	GroupVersion        uint32          `xml:"groupVersion,attr"`
	ExpectedPublisherID string          `xml:"expectedPublisherId,attr"`
	Readers             []xmlDataSetReader `xml:"DataSetReader"`
}

type xmlDataSetReader struct {
	DataSetWriterID uint16 `xml:"dataSetWriterId,attr"`
}

// Load parses r as the canonical configuration XML format and builds a
// model.Config from it.
func Load(r io.Reader) (*model.Config, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, pubsuberrors.Configuration("parsing configuration XML", err)
	}

	b := model.NewBuilder()

	dataSetHandles := make(map[string]*model.PublishedDataSet, len(doc.PublishedDataSets))
	for _, ds := range doc.PublishedDataSets {
		fields := make([]model.FieldMetaData, 0, len(ds.Fields))
		for _, f := range ds.Fields {
			builtinType, err := builtinTypeFromXML(f.Type)
			if err != nil {
				return nil, err
			}
			meta := model.FieldMetaData{BuiltinType: builtinType, ValueRank: model.ValueRank(f.ValueRank)}
			if f.NodeID != "" {
				nodeID, err := ua.ParseNodeID(f.NodeID)
				if err != nil {
					return nil, pubsuberrors.Configuration("published dataset "+ds.Name+": invalid nodeId "+f.NodeID, err)
				}
				pv := model.NewPublishedVariable(nodeID, "")
				meta.Published = &pv
			}
			fields = append(fields, meta)
		}
		pds := &model.PublishedDataSet{Source: model.SourceDataItems, Fields: fields}
		b.AddPublishedDataSet(*pds)
		dataSetHandles[ds.Name] = pds
	}

	for _, c := range doc.Connections {
		switch c.Role {
		case "Publisher":
			if err := addPublisherConnection(b, c, dataSetHandles); err != nil {
				return nil, err
			}
		case "Subscriber":
			if err := addSubscriberConnection(b, c); err != nil {
				return nil, err
			}
		default:
			return nil, pubsuberrors.Configuration(fmt.Sprintf("connection %q: unknown role %q", c.Address, c.Role), nil)
		}
	}

	return b.Build()
}

func addPublisherConnection(b *model.Builder, c xmlConnection, dataSetHandles map[string]*model.PublishedDataSet) error {
	pubID, err := publisherIDFromXML(c.PublisherID)
	if err != nil {
		return err
	}

	conn := model.PubSubConnection{
		Address:          c.Address,
		NetworkInterface: c.Interface,
		Acyclic:          c.Acyclic,
		PublisherID:      pubID,
		Enabled:          boolOrDefault(c.Enabled, true),
	}
	for _, wg := range c.WriterGroups {
		group := model.WriterGroup{
			GroupID:            wg.GroupID,
			GroupVersion:       wg.GroupVersion,
			PublishingInterval: msToDuration(wg.PublishingInterval),
			KeepAliveTime:      msToDuration(wg.KeepAliveMs),
		}
		for _, w := range wg.Writers {
			ds, ok := dataSetHandles[w.DataSet]
			if !ok {
				return pubsuberrors.Configuration(fmt.Sprintf("writer group %d writer %d: unknown dataset %q", wg.GroupID, w.WriterID, w.DataSet), nil)
			}
			group.Writers = append(group.Writers, model.DataSetWriter{WriterID: w.WriterID, DataSet: ds})
		}
		conn.WriterGroups = append(conn.WriterGroups, group)
	}

	if _, err := b.AddPublisherConnection(conn); err != nil {
		return err
	}
	return nil
}

func addSubscriberConnection(b *model.Builder, c xmlConnection) error {
	conn := model.PubSubConnection{
		Address:          c.Address,
		NetworkInterface: c.Interface,
		Enabled:          boolOrDefault(c.Enabled, true),
	}
	connHandle, err := b.AddSubscriberConnection(conn)
	if err != nil {
		return err
	}
	for _, rg := range c.ReaderGroups {
		expected, err := publisherIDFromXML(rg.ExpectedPublisherID)
		if err != nil {
			return err
		}
		group := model.ReaderGroup{GroupID: rg.GroupID, GroupVersion: rg.GroupVersion, ExpectedPublisherID: expected}
		for _, r := range rg.Readers {
			group.Readers = append(group.Readers, model.DataSetReader{DataSetWriterID: r.DataSetWriterID})
		}
		if _, err := b.AddReaderGroup(connHandle, group); err != nil {
			return err
		}
	}
	return nil
}

func publisherIDFromXML(v string) (model.PublisherID, error) {
	if v == "" {
		return model.NoPublisherID(), nil
	}
	var n uint64
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
		return model.NewUIntPublisherID(n)
	}
	return model.NewStringPublisherID(v)
}

func builtinTypeFromXML(name string) (ua.TypeID, error) {
	switch name {
	case "Boolean":
		return ua.TypeIDBoolean, nil
	case "SByte":
		return ua.TypeIDSByte, nil
	case "Byte":
		return ua.TypeIDByte, nil
	case "Int16":
		return ua.TypeIDInt16, nil
	case "UInt16":
		return ua.TypeIDUint16, nil
	case "Int32":
		return ua.TypeIDInt32, nil
	case "UInt32":
		return ua.TypeIDUint32, nil
	case "Int64":
		return ua.TypeIDInt64, nil
	case "UInt64":
		return ua.TypeIDUint64, nil
	case "Float":
		return ua.TypeIDFloat, nil
	case "Double":
		return ua.TypeIDDouble, nil
	case "String":
		return ua.TypeIDString, nil
	default:
		return 0, pubsuberrors.Configuration("unknown field builtin type "+name, nil)
	}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
