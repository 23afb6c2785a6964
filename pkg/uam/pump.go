package uam

import (
	"context"
	"sync"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/uam/channel"
)

// ChannelPump is the concrete non-safe side the Scheduler's doc
// comments describe without naming a transport: it binds a
// channel.Channel to a Provider or Consumer handle and drives the
// Request/Response hand-off the scheduler otherwise leaves to its
// caller. A bound channel may be channel.FromSocket (the same
// UDP/MQTT socket a WriterGroup/ReaderGroup dials) or a
// channel.MessagingChannel over pkg/messaging, so the safety mapper
// can run either against the live PubSub transport or, for benching
// and tests, against an in-process or Kafka broker.
type ChannelPump struct {
	sched *Scheduler

	mu        sync.Mutex
	providers map[ProviderHandle]channel.Channel
	consumers map[ConsumerHandle]channel.Channel
}

// NewChannelPump returns a pump with no bound handles.
func NewChannelPump(sched *Scheduler) *ChannelPump {
	return &ChannelPump{
		sched:     sched,
		providers: make(map[ProviderHandle]channel.Channel),
		consumers: make(map[ConsumerHandle]channel.Channel),
	}
}

// BindProvider associates h's Request intake with ch and starts a
// background goroutine that copies every Request SPDU ch delivers
// into the scheduler, ready for h's next Cycle. The goroutine exits
// when ctx is done or ch.Recv errors.
func (p *ChannelPump) BindProvider(ctx context.Context, h ProviderHandle, ch channel.Channel) error {
	size, err := p.sched.providerRequestSize(h)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.providers[h] = ch
	p.mu.Unlock()

	go p.pumpIn(ctx, ch, size, func(buf []byte) error {
		return p.sched.ReceiveRequest(h, buf)
	})
	return nil
}

// BindConsumer associates h's Response intake with ch, mirroring BindProvider.
func (p *ChannelPump) BindConsumer(ctx context.Context, h ConsumerHandle, ch channel.Channel) error {
	size, err := p.sched.consumerResponseSize(h)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.consumers[h] = ch
	p.mu.Unlock()

	go p.pumpIn(ctx, ch, size, func(buf []byte) error {
		return p.sched.ReceiveResponse(h, buf)
	})
	return nil
}

func (p *ChannelPump) pumpIn(ctx context.Context, ch channel.Channel, size int, deliver func([]byte) error) {
	buf := make([]byte, size)
	for {
		n, err := ch.Recv(ctx, buf)
		if err != nil {
			return
		}
		if n != size {
			continue
		}
		_ = deliver(buf)
	}
}

// Publish sends every bound Provider's last-composed Response SPDU
// and every bound Consumer's last-composed Request SPDU out over its
// channel. Call once after each Cycle.
func (p *ChannelPump) Publish(ctx context.Context) error {
	p.mu.Lock()
	providers := make(map[ProviderHandle]channel.Channel, len(p.providers))
	for h, ch := range p.providers {
		providers[h] = ch
	}
	consumers := make(map[ConsumerHandle]channel.Channel, len(p.consumers))
	for h, ch := range p.consumers {
		consumers[h] = ch
	}
	p.mu.Unlock()

	for h, ch := range providers {
		resp, err := p.sched.PendingResponse(h)
		if err != nil {
			return err
		}
		if err := ch.Send(ctx, resp); err != nil {
			return pubsuberrors.Transport("uam: publish provider response failed", err)
		}
	}
	for h, ch := range consumers {
		req, err := p.sched.PendingRequest(h)
		if err != nil {
			return err
		}
		if err := ch.Send(ctx, req); err != nil {
			return pubsuberrors.Transport("uam: publish consumer request failed", err)
		}
	}
	return nil
}
