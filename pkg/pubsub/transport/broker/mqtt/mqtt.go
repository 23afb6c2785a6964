// Package mqtt opens pkg/pubsub/transport.Socket values over an MQTT
// broker connection, the "optional broker URL" form of mqtt:// / mqtts://
// addresses. Its Dialer exposes DialTopic, which takes a topic argument,
// and does not implement the transport.Dialer interface. The content of the encoded NetworkMessage is unchanged; the
// topic carries it in place of a UDP datagram.
package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
)

// Schemes this adapter recognizes.
const (
	SchemePlain = "mqtt"
	SchemeTLS   = "mqtts"
)

// Dialer opens MQTT-backed sockets. The topic a WriterGroup/ReaderGroup
// publishes to or subscribes on is passed to DialTopic separately from
// the broker address.
type Dialer struct {
	ConnectTimeout time.Duration
}

// New returns a ready mqtt.Dialer.
func New() *Dialer {
	return &Dialer{ConnectTimeout: 5 * time.Second}
}

// DialTopic opens a broker connection to brokerAddress (mqtt://host:port
// or mqtts://host:port) and binds it to topic, publish-only when
// publisher is true, subscribe-only otherwise.
func (d *Dialer) DialTopic(brokerAddress, topic string, publisher bool) (transport.Socket, error) {
	if topic == "" {
		return nil, pubsuberrors.Configuration("mqtt transport requires a non-empty topic", nil)
	}
	if !strings.HasPrefix(brokerAddress, SchemePlain+"://") && !strings.HasPrefix(brokerAddress, SchemeTLS+"://") {
		return nil, pubsuberrors.Configuration("mqtt adapter cannot dial address "+brokerAddress, nil)
	}

	opts := paho.NewClientOptions().
		AddBroker(brokerAddress).
		SetConnectTimeout(d.ConnectTimeout).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	if tok := client.Connect(); tok.WaitTimeout(d.ConnectTimeout) && tok.Error() != nil {
		return nil, pubsuberrors.Transport("connecting to mqtt broker "+brokerAddress, tok.Error())
	}

	s := &socket{client: client, topic: topic, publisher: publisher, incoming: make(chan []byte, 64)}
	if !publisher {
		tok := client.Subscribe(topic, 1, s.onMessage)
		if tok.WaitTimeout(d.ConnectTimeout) && tok.Error() != nil {
			client.Disconnect(250)
			return nil, pubsuberrors.Transport("subscribing to mqtt topic "+topic, tok.Error())
		}
	}
	return s, nil
}

type socket struct {
	client    paho.Client
	topic     string
	publisher bool

	mu       sync.Mutex
	closed   bool
	incoming chan []byte
}

func (s *socket) onMessage(_ paho.Client, msg paho.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case s.incoming <- payload:
	default:
	}
}

func (s *socket) Send(ctx context.Context, payload []byte) error {
	if !s.publisher {
		return pubsuberrors.Transport("mqtt send on a subscribe-only socket", nil)
	}
	tok := s.client.Publish(s.topic, 1, false, payload)
	done := make(chan struct{})
	go func() { tok.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return pubsuberrors.Transport("mqtt publish canceled", ctx.Err())
	case <-done:
	}
	if tok.Error() != nil {
		return pubsuberrors.Transport("mqtt publish failed", tok.Error())
	}
	return nil
}

func (s *socket) Recv(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, pubsuberrors.Transport("mqtt receive canceled", ctx.Err())
	case payload, ok := <-s.incoming:
		if !ok {
			return 0, transport.ErrClosed
		}
		n := copy(buf, payload)
		return n, nil
	}
}

func (s *socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.publisher {
		s.client.Unsubscribe(s.topic)
	}
	s.client.Disconnect(250)
	close(s.incoming)
	return nil
}
