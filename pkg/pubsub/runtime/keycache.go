package runtime

import (
	"github.com/fieldbus-systems/opcua-pubsub/pkg/cache"
	cachememory "github.com/fieldbus-systems/opcua-pubsub/pkg/cache/adapters/memory"
	cacheredis "github.com/fieldbus-systems/opcua-pubsub/pkg/cache/adapters/redis"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
)

// NewKeyManager builds the security.KeyManager's distributed snapshot
// cache from cfg.Driver ("memory" or "redis"), wrapped with tracing
// (pkg/cache.InstrumentedCache) and circuit-breaker/retry resilience
// (pkg/cache.ResilientCache), so a publisher and a subscriber process
// fed by the same external SKS client can share key state without a
// direct RPC between them.
func NewKeyManager(cfg cache.Config, resilientCfg cache.ResilientConfig) (*security.KeyManager, error) {
	var backend cache.Cache
	if cfg.Driver == "redis" {
		rc, err := cacheredis.New(cfg)
		if err != nil {
			return nil, err
		}
		backend = rc
	} else {
		backend = cachememory.New()
	}

	wrapped := cache.NewResilientCache(cache.NewInstrumentedCache(backend), resilientCfg)
	return security.NewKeyManagerWithCache(wrapped), nil
}
