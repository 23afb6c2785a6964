package xmlconfig_test

import (
	"strings"
	"testing"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/xmlconfig"
	"github.com/stretchr/testify/require"
)

const configPubXML = `<?xml version="1.0" encoding="UTF-8"?>
<PubSubConfiguration>
  <PublishedDataSets>
    <PublishedDataSet name="ds1">
      <Field type="Boolean"/>
    </PublishedDataSet>
    <PublishedDataSet name="ds2">
      <Field type="UInt32"/>
      <Field type="UInt16"/>
    </PublishedDataSet>
    <PublishedDataSet name="ds3">
      <Field type="Double"/>
    </PublishedDataSet>
  </PublishedDataSets>
  <Connections>
    <Connection role="Publisher" address="opc.udp://232.1.2.100:4840" publisherId="123">
      <WriterGroup groupId="14" groupVersion="1" publishingIntervalMs="50">
        <DataSetWriter writerId="50" dataSet="ds1"/>
        <DataSetWriter writerId="51" dataSet="ds2"/>
      </WriterGroup>
      <WriterGroup groupId="15" groupVersion="1" publishingIntervalMs="50">
        <DataSetWriter writerId="52" dataSet="ds3"/>
      </WriterGroup>
    </Connection>
  </Connections>
</PubSubConfiguration>
`

func TestLoad_S2XMLToConfigEquality(t *testing.T) {
	cfg, err := xmlconfig.Load(strings.NewReader(configPubXML))
	require.NoError(t, err)

	require.Len(t, cfg.PublisherConnections(), 1)
	require.Len(t, cfg.SubscriberConnections(), 0)
	require.Len(t, cfg.DataSets(), 3)

	groups := cfg.PublisherConnections()[0].WriterGroups
	require.Len(t, groups, 2)

	var wg14, wg15 []uint16
	for _, g := range groups {
		var ids []uint16
		for _, w := range g.Writers {
			ids = append(ids, w.WriterID)
		}
		switch g.GroupID {
		case 14:
			wg14 = ids
		case 15:
			wg15 = ids
		}
	}
	require.Equal(t, []uint16{50, 51}, wg14)
	require.Equal(t, []uint16{52}, wg15)
}

func TestLoad_UnknownFieldTypeIsConfigurationError(t *testing.T) {
	bad := strings.Replace(configPubXML, `type="Boolean"`, `type="Bogus"`, 1)
	_, err := xmlconfig.Load(strings.NewReader(bad))
	require.Error(t, err)
}
