// Package runtimevars gives a concrete shape to the namespace-0
// runtime-variable writes the core emits as a collaborator interface:
// ServerStatus, ServerCapabilities, OperationLimits and friends. The
// core never reaches into an address space itself; it only calls
// Dispatcher with WriteValues targeting well-known NodeIDs.
package runtimevars

import (
	"context"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/subscriber"
	"github.com/gopcua/opcua/ua"
)

// Dispatcher receives namespace-0 Write requests. AttributeID is
// always ua.AttributeIDValue (13).
type Dispatcher interface {
	Write(ctx context.Context, writeValues []*ua.WriteValue) error
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(ctx context.Context, writeValues []*ua.WriteValue) error

func (f DispatcherFunc) Write(ctx context.Context, writeValues []*ua.WriteValue) error {
	return f(ctx, writeValues)
}

// Well-known namespace-0 identifiers the core writes to. Numeric
// values follow the OPC UA Part 5 NodeIds namespace.
var (
	NodeServerArray                  = ua.NewNumericNodeID(0, 2254)
	NodeNamespaceArray                = ua.NewNumericNodeID(0, 2255)
	NodeServiceLevel                  = ua.NewNumericNodeID(0, 2267)
	NodeAuditing                      = ua.NewNumericNodeID(0, 2268)
	NodeServerDiagnosticsEnabledFlag  = ua.NewNumericNodeID(0, 2294)
	NodeRedundancySupport             = ua.NewNumericNodeID(0, 3704)
	NodeServerProfileArray            = ua.NewNumericNodeID(0, 2269)
	NodeLocaleIDArray                 = ua.NewNumericNodeID(0, 2271)
	NodeServerStatusStartTime         = ua.NewNumericNodeID(0, 2257)
	NodeServerStatusCurrentTime       = ua.NewNumericNodeID(0, 2258)
	NodeServerStatusState             = ua.NewNumericNodeID(0, 2259)
	NodeServerStatusSecondsTillShutdown = ua.NewNumericNodeID(0, 2992)
	NodeServerStatusShutdownReason    = ua.NewNumericNodeID(0, 2993)
	NodeServerStatusBuildInfo         = ua.NewNumericNodeID(0, 2260)
	NodeMaxBrowseContinuationPoints   = ua.NewNumericNodeID(0, 2277)
	NodeMaxArrayLength                = ua.NewNumericNodeID(0, 11549)
	NodeMaxStringLength               = ua.NewNumericNodeID(0, 11550)
	NodeMaxByteStringLength           = ua.NewNumericNodeID(0, 12911)
	NodeMinSupportedSampleRate        = ua.NewNumericNodeID(0, 2272)
	NodeOperationLimitsMaxNodesPerRead = ua.NewNumericNodeID(0, 11705)
)

// ServerState mirrors the OPC UA Part 5 ServerState enumeration that
// Server.ServerStatus.State carries.
type ServerState int32

const (
	ServerStateRunning ServerState = iota
	ServerStateFailed
	ServerStateNoConfiguration
	ServerStateSuspended
	ServerStateShutdown
	ServerStateTest
	ServerStateCommunicationFault
	ServerStateUnknown
)

// Reporter drives runtime-variable writes from scheduler lifecycle
// events: connection start/stop and subscriber state transitions.
type Reporter struct {
	dispatcher Dispatcher
}

// New returns a Reporter writing through dispatcher.
func New(dispatcher Dispatcher) *Reporter {
	return &Reporter{dispatcher: dispatcher}
}

// ReportStart writes ServerStatus.State=Running, a fresh StartTime and
// ServerDiagnostics.EnabledFlag=true, called once at publisher/
// subscriber start.
func (r *Reporter) ReportStart(ctx context.Context, startTime time.Time) error {
	return r.dispatcher.Write(ctx, []*ua.WriteValue{
		writeValue(NodeServerStatusState, mustVariant(int32(ServerStateRunning))),
		writeValue(NodeServerStatusStartTime, mustVariant(startTime)),
		writeValue(NodeServerDiagnosticsEnabledFlag, mustVariant(true)),
	})
}

// ReportShutdown writes ServerStatus.State=Shutdown with the given
// reason text and seconds-till-shutdown countdown.
func (r *Reporter) ReportShutdown(ctx context.Context, secondsTillShutdown uint32, reason string) error {
	return r.dispatcher.Write(ctx, []*ua.WriteValue{
		writeValue(NodeServerStatusState, mustVariant(int32(ServerStateShutdown))),
		writeValue(NodeServerStatusSecondsTillShutdown, mustVariant(secondsTillShutdown)),
		writeValue(NodeServerStatusShutdownReason, mustVariant(reason)),
	})
}

// OnSubscriberStateChanged adapts subscriber.StateChangedFunc to a
// ServerStatus.State write: Paused/Error map to ServerState values a
// monitoring client can alarm on, Operational maps back to Running.
func (r *Reporter) OnSubscriberStateChanged(ctx context.Context, conn string, newState subscriber.State) {
	var state ServerState
	switch newState {
	case subscriber.StateOperational:
		state = ServerStateRunning
	case subscriber.StatePaused:
		state = ServerStateSuspended
	case subscriber.StateError:
		state = ServerStateFailed
	case subscriber.StateDisabled:
		state = ServerStateNoConfiguration
	}
	_ = r.dispatcher.Write(ctx, []*ua.WriteValue{
		writeValue(NodeServerStatusState, mustVariant(int32(state))),
	})
}

func writeValue(nodeID *ua.NodeID, v *ua.Variant) *ua.WriteValue {
	return &ua.WriteValue{
		NodeID:      nodeID,
		AttributeID: ua.AttributeIDValue,
		Value: &ua.DataValue{
			EncodingMask: ua.DataValueValue,
			Value:        v,
		},
	}
}

func mustVariant(value interface{}) *ua.Variant {
	v, _ := ua.NewVariant(value)
	return v
}
