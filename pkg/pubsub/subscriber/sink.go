package subscriber

import (
	"context"

	"github.com/gopcua/opcua/ua"
)

// TargetVariableSink is the consumer-side contract §6 calls with one
// WriteValue per field with a configured target of a matched, decoded
// DataSetMessage. Ownership of
// the slice transfers to the sink; it returns true when every value was
// processed successfully.
type TargetVariableSink interface {
	Set(ctx context.Context, writeValues []*ua.WriteValue) bool
}

// TargetVariableSinkFunc adapts a function to a TargetVariableSink.
type TargetVariableSinkFunc func(ctx context.Context, writeValues []*ua.WriteValue) bool

func (f TargetVariableSinkFunc) Set(ctx context.Context, writeValues []*ua.WriteValue) bool {
	return f(ctx, writeValues)
}

// State is the subscriber connection lifecycle state reported to
// state_changed.
type State int

const (
	StateDisabled State = iota
	StateOperational
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateOperational:
		return "Operational"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StateChangedFunc is invoked on every connection state transition.
type StateChangedFunc func(ctx context.Context, conn string, newState State)
