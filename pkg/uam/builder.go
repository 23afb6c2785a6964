package uam

import (
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// ProviderHandle and ConsumerHandle are dense, zero-based indices
// returned by InitProvider/InitConsumer. They replace the raw pointers
// into module-global Provider/Consumer arrays the original design
// used: once Start() succeeds, a handle addresses the same slot for
// the Scheduler's lifetime.
type (
	ProviderHandle int
	ConsumerHandle int
)

// Config declares the sizes and identity of one Provider or Consumer
// slot. SafetyDataLength and NonSafetyDataLength are frozen in the
// Scheduler once Start() copies the registration table.
type Config struct {
	SessionID           uint32
	SafetyDataLength    int
	NonSafetyDataLength int
}

// ProviderCycleFunc is invoked once per Provider per cycle with the
// Config it was registered under and the previous Request SPDU (nil
// before the first one arrives). It must fill safetyOut/nonSafetyOut
// with the application's current safe/non-safe payload.
type ProviderCycleFunc func(cfg Config, prevRequest *SPDU, safetyOut, nonSafetyOut []byte)

// ConsumerCycleFunc is invoked once per Consumer per cycle with the
// Config it was registered under and the payloads extracted from the
// latest validated Response (nil before the first one arrives).
type ConsumerCycleFunc func(cfg Config, resp *SPDU, safetyIn, nonSafetyIn []byte)

type providerRegistration struct {
	cfg Config
	spi []byte
	cb  ProviderCycleFunc
}

type consumerRegistration struct {
	cfg Config
	spi []byte
	cb  ConsumerCycleFunc
}

// Builder is the mutable, monotonic registration half of the safety
// mapper's two-phase API: InitProvider/InitConsumer only append, and
// Start() freezes the table into a running Scheduler. It mirrors
// pkg/pubsub/model.Builder's "allocate then populate, then lock" shape.
type Builder struct {
	maxProviders int
	maxConsumers int
	providers    []providerRegistration
	consumers    []consumerRegistration
}

// NewBuilder returns an empty Builder bounded by maxProviders/
// maxConsumers, mirroring the original MAX_SAFETY_PROVIDERS/
// MAX_SAFETY_CONSUMERS compile-time limits as runtime parameters.
func NewBuilder(maxProviders, maxConsumers int) *Builder {
	return &Builder{maxProviders: maxProviders, maxConsumers: maxConsumers}
}

// InitProvider registers a Provider slot and returns its dense handle.
func (b *Builder) InitProvider(cfg Config, spi []byte, cb ProviderCycleFunc) (ProviderHandle, error) {
	if len(b.providers) >= b.maxProviders {
		return 0, pubsuberrors.Allocation("uam: provider table full", nil)
	}
	if cfg.SafetyDataLength < 0 || cfg.NonSafetyDataLength < 0 {
		return 0, pubsuberrors.Configuration("uam: negative payload length", nil)
	}
	if cb == nil {
		return 0, pubsuberrors.Configuration("uam: provider requires a cycle callback", nil)
	}
	b.providers = append(b.providers, providerRegistration{cfg: cfg, spi: spi, cb: cb})
	return ProviderHandle(len(b.providers) - 1), nil
}

// InitConsumer registers a Consumer slot and returns its dense handle.
func (b *Builder) InitConsumer(cfg Config, spi []byte, cb ConsumerCycleFunc) (ConsumerHandle, error) {
	if len(b.consumers) >= b.maxConsumers {
		return 0, pubsuberrors.Allocation("uam: consumer table full", nil)
	}
	if cfg.SafetyDataLength < 0 || cfg.NonSafetyDataLength < 0 {
		return 0, pubsuberrors.Configuration("uam: negative payload length", nil)
	}
	if cb == nil {
		return 0, pubsuberrors.Configuration("uam: consumer requires a cycle callback", nil)
	}
	b.consumers = append(b.consumers, consumerRegistration{cfg: cfg, spi: spi, cb: cb})
	return ConsumerHandle(len(b.consumers) - 1), nil
}
