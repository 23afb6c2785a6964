package runtimevars_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/runtimevars"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/subscriber"
	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"
)

type capturingDispatcher struct {
	writes [][]*ua.WriteValue
}

func (c *capturingDispatcher) Write(_ context.Context, writeValues []*ua.WriteValue) error {
	c.writes = append(c.writes, writeValues)
	return nil
}

func TestReportStartWritesStateStartTimeAndDiagnosticsFlag(t *testing.T) {
	d := &capturingDispatcher{}
	r := runtimevars.New(d)

	require.NoError(t, r.ReportStart(context.Background(), time.Unix(1700000000, 0)))
	require.Len(t, d.writes, 1)
	require.Len(t, d.writes[0], 3)
	for _, wv := range d.writes[0] {
		require.Equal(t, uint32(ua.AttributeIDValue), wv.AttributeID)
	}
}

func TestOnSubscriberStateChangedMapsPausedToSuspended(t *testing.T) {
	d := &capturingDispatcher{}
	r := runtimevars.New(d)

	r.OnSubscriberStateChanged(context.Background(), "opc.udp://239.0.0.1:4840", subscriber.StatePaused)
	require.Len(t, d.writes, 1)
	require.Len(t, d.writes[0], 1)

	v := d.writes[0][0].Value.Value
	require.Equal(t, int32(runtimevars.ServerStateSuspended), v.Value())
}
