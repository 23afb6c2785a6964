// Package composite picks the udp or mqtt transport adapter for a
// PubSubConnection based on its Address scheme. It lives apart from
// pkg/pubsub/transport itself so that package can stay the shared
// Socket/Dialer port both adapters implement, without transport also
// depending on its own adapters.
package composite

import (
	"strings"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport/broker/mqtt"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport/udp"
)

// Dialer picks the udp or mqtt adapter based on a PubSubConnection's
// Address scheme. It satisfies both the publisher and subscriber
// packages' Dialer interfaces (DialPublisher/DialSubscriber).
type Dialer struct {
	UDP  *udp.Dialer
	MQTT *mqtt.Dialer
}

// New returns a Dialer with default adapters.
func New() *Dialer {
	return &Dialer{UDP: udp.New(), MQTT: mqtt.New()}
}

// DialPublisher opens a send-configured socket for conn.
func (d *Dialer) DialPublisher(conn *model.PubSubConnection) (transport.Socket, error) {
	return d.dial(conn, true)
}

// DialSubscriber opens a receive-configured socket for conn.
func (d *Dialer) DialSubscriber(conn *model.PubSubConnection) (transport.Socket, error) {
	return d.dial(conn, false)
}

func (d *Dialer) dial(conn *model.PubSubConnection, publisher bool) (transport.Socket, error) {
	switch {
	case strings.HasPrefix(conn.Address, udp.Scheme+"://"):
		return d.UDP.Dial(conn.Address, conn.NetworkInterface, publisher)
	case strings.HasPrefix(conn.Address, mqtt.SchemePlain+"://"), strings.HasPrefix(conn.Address, mqtt.SchemeTLS+"://"):
		return d.MQTT.DialTopic(conn.Address, topicFor(conn), publisher)
	default:
		return nil, pubsuberrors.Configuration("no transport adapter recognizes address "+conn.Address, nil)
	}
}

func topicFor(conn *model.PubSubConnection) string {
	for _, wg := range conn.WriterGroups {
		if wg.MQTTTopic != "" {
			return wg.MQTTTopic
		}
	}
	for _, rg := range conn.ReaderGroups {
		if rg.MQTTTopic != "" {
			return rg.MQTTTopic
		}
	}
	return ""
}
