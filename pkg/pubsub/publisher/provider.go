package publisher

import (
	"context"

	"github.com/gopcua/opcua/ua"
)

// SourceProvider is the consumer-side contract §6 calls the
// source-variable provider: total over its input, one DataValue per
// ReadValueID in order. Implementations may be slow; the scheduler
// guards each writer with a single-slot semaphore so a provider already
// servicing a request for that writer never receives a second concurrent
// call (observed as BUSY from the scheduler's perspective).
type SourceProvider interface {
	Get(ctx context.Context, nodes []*ua.ReadValueID) ([]*ua.DataValue, error)
}

// SourceProviderFunc adapts a function to a SourceProvider.
type SourceProviderFunc func(ctx context.Context, nodes []*ua.ReadValueID) ([]*ua.DataValue, error)

func (f SourceProviderFunc) Get(ctx context.Context, nodes []*ua.ReadValueID) ([]*ua.DataValue, error) {
	return f(ctx, nodes)
}
