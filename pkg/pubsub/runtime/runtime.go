// Package runtime is the composition root a process embeds to bring a
// model.Config online: it loads the ambient scheduler settings pkg/config
// reads from the environment, initializes pkg/logger from them, and
// starts/stops the Publisher and Subscriber schedulers as one unit.
package runtime

import (
	"context"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/config"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/events"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/logger"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/publisher"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/subscriber"
)

// Settings are the ambient, non-PubSub scheduler settings loaded from
// the environment. They sit outside the model.Config the caller
// supplies directly (spec.md §3/§4.1): logging, worker-pool sizing and
// the receive datagram buffer.
type Settings struct {
	logger.Config

	WorkerCount       int  `env:"PUBSUB_WORKER_COUNT" env-default:"4"`
	ReceiveBufferSize int  `env:"PUBSUB_RECEIVE_BUFFER_SIZE" env-default:"65536"`
	MetricsEnabled    bool `env:"PUBSUB_METRICS_ENABLED" env-default:"false"`
}

// LoadSettings reads Settings via pkg/config (environment variables,
// falling back from a missing .env file) and initializes the global
// logger from the result, so every scheduler log line that follows
// honors the configured level/format.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := config.Load(&s); err != nil {
		return Settings{}, err
	}
	logger.Init(s.Config)
	return s, nil
}

// Runtime owns a matched Publisher/Subscriber pair built against the
// same model.Config and Settings, and starts/stops them together.
type Runtime struct {
	settings Settings
	pub      *publisher.Scheduler
	sub      *subscriber.Scheduler
}

// New builds a Runtime. Any of km, crypto, bus, onState may be nil;
// omit a role's dialer/provider/sink (passing nil) when cfg carries no
// connections for that role.
func New(
	cfg *model.Config,
	settings Settings,
	provider publisher.SourceProvider,
	pubDialer publisher.Dialer,
	sink subscriber.TargetVariableSink,
	subDialer subscriber.Dialer,
	km *security.KeyManager,
	crypto security.CryptoProvider,
	bus events.Bus,
	onState subscriber.StateChangedFunc,
) *Runtime {
	r := &Runtime{settings: settings}
	if pubDialer != nil {
		r.pub = publisher.New(cfg, provider, pubDialer, km, crypto, bus, settings.WorkerCount)
	}
	if subDialer != nil {
		r.sub = subscriber.New(cfg, sink, subDialer, km, crypto, bus, onState, settings.ReceiveBufferSize)
	}
	return r
}

// Start starts the publisher scheduler, then the subscriber scheduler;
// a subscriber dial failure stops the publisher before returning.
func (r *Runtime) Start(ctx context.Context) error {
	if r.pub != nil {
		if err := r.pub.Start(ctx); err != nil {
			return err
		}
	}
	if r.sub != nil {
		if err := r.sub.Start(ctx); err != nil {
			if r.pub != nil {
				r.pub.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops both schedulers. Idempotent, safe to call on a Runtime
// whose Start failed partway through.
func (r *Runtime) Stop() {
	if r.pub != nil {
		r.pub.Stop()
	}
	if r.sub != nil {
		r.sub.Stop()
	}
}
