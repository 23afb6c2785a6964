// Package transport defines the socket port the Publisher and Subscriber
// schedulers send/receive encoded NetworkMessages through, independent of
// whether the underlying connection is a UDP unicast/multicast socket or
// a broker (MQTT) topic. Concrete adapters live in subpackages, following
// the teacher's pkg/network port+adapter layout.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send/Recv once Close has been called.
var ErrClosed = errors.New("transport: socket closed")

// Socket is one open publisher- or subscriber-side connection endpoint.
type Socket interface {
	// Send writes one encoded NetworkMessage. Partial sends are reported
	// as an error; the caller abandons the tick.
	Send(ctx context.Context, payload []byte) error

	// Recv blocks until one datagram/message arrives or ctx is done,
	// copying it into buf and returning the number of bytes written.
	Recv(ctx context.Context, buf []byte) (int, error)

	// Close releases the underlying resource. Idempotent.
	Close() error
}

// Dialer opens a Socket for a PubSubConnection's configured address. The
// publisher argument selects send-only (true) vs receive-only setup.
type Dialer interface {
	Dial(address string, multicastInterface string, publisher bool) (Socket, error)
}
