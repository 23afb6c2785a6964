// Package channel gives the safety mapper's Request/Response SPDU
// exchange with its non-safe counterpart two concrete bindings: one
// riding directly over the same UDP/MQTT transport socket the
// Publisher/Subscriber schedulers use, and one over pkg/messaging
// (memory or Kafka) for bench/test use when a full PubSub round trip
// isn't needed.
package channel

import "context"

// Channel is the duplex byte-exchange contract a Provider or Consumer
// uses to hand its composed SPDU to, and receive the counterpart's
// SPDU from, the non-safe side. It deliberately mirrors
// pkg/pubsub/transport.Socket's shape so a transport.Socket can be
// used as a Channel with no adapter at all.
type Channel interface {
	Send(ctx context.Context, payload []byte) error
	Recv(ctx context.Context, buf []byte) (int, error)
	Close() error
}
