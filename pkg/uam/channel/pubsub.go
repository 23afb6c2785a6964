package channel

import "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"

// FromSocket adapts an already-dialed pkg/pubsub/transport.Socket (the
// same UDP unicast/multicast or MQTT socket the Publisher/Subscriber
// schedulers use) into a Channel. transport.Socket's Send/Recv/Close
// signatures already match Channel exactly, so this is a direct
// passthrough: the safety mapper's SPDU bytes ride the same wire
// connection a WriterGroup/ReaderGroup would, without going through
// NetworkMessage encoding at all.
func FromSocket(sock transport.Socket) Channel {
	return sock
}
