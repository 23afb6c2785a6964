// Package security owns the SecurityKeyManager snapshot reads the
// schedulers and codec consult, and the CryptoProvider port the core
// calls to sign and verify network messages without knowing the
// concrete cryptographic primitives (the port has no encryption
// operation).
package security

import (
	"context"
	"sync"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/cache"
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// snapshotCacheKeyPrefix namespaces KeyManager's entries in a shared
// cache.Cache from whatever else that cache instance stores.
const snapshotCacheKeyPrefix = "pubsub:sks:"

// Snapshot is the atomic read a worker takes of one security group's key
// state: the current token id, the key sequence (current key first, then
// any pre-fetched future keys), time-to-next-key and the key lifetime.
// It is a value type so callers never see a manager mutate mid-read.
type Snapshot struct {
	CurrentTokenID uint32
	Keys           [][]byte
	TimeToNextKey  time.Duration
	KeyLifetime    time.Duration
}

// KeyByTokenID returns the key for tokenID, or (nil, false) if unknown.
// Token ids are assigned sequentially starting at CurrentTokenID for the
// first key in Keys.
func (s Snapshot) KeyByTokenID(tokenID uint32) ([]byte, bool) {
	if tokenID < s.CurrentTokenID {
		return nil, false
	}
	idx := int(tokenID - s.CurrentTokenID)
	if idx >= len(s.Keys) {
		return nil, false
	}
	return s.Keys[idx], true
}

// KeyManager owns, per security group id, the current snapshot. An
// external SKS client updates entries between worker iterations; reads
// never block on a write and vice versa beyond the mutex's critical
// section, which covers only a map lookup/copy.
//
// An optional cache.Cache backs entries this process hasn't seen
// written locally yet: a publisher and a subscriber process fed by the
// same external SKS client can share key state through it instead of
// each requiring its own direct write.
type KeyManager struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	cache     cache.Cache
}

// NewKeyManager returns an empty, local-only KeyManager.
func NewKeyManager() *KeyManager {
	return &KeyManager{snapshots: make(map[string]Snapshot)}
}

// NewKeyManagerWithCache returns a KeyManager that also write-throughs
// SetSnapshot and read-throughs a local-miss Snapshot via c.
func NewKeyManagerWithCache(c cache.Cache) *KeyManager {
	return &KeyManager{snapshots: make(map[string]Snapshot), cache: c}
}

// Snapshot returns the current Snapshot for securityGroupID, consulting
// the distributed cache on a local miss.
func (m *KeyManager) Snapshot(securityGroupID string) (Snapshot, bool) {
	m.mu.RLock()
	snap, ok := m.snapshots[securityGroupID]
	m.mu.RUnlock()
	if ok || m.cache == nil {
		return snap, ok
	}

	var cached Snapshot
	if err := m.cache.Get(context.Background(), snapshotCacheKeyPrefix+securityGroupID, &cached); err != nil {
		return Snapshot{}, false
	}

	m.mu.Lock()
	m.snapshots[securityGroupID] = cached
	m.mu.Unlock()
	return cached, true
}

// SetSnapshot replaces the snapshot for securityGroupID. Called by the
// external SKS client, never by a scheduler worker. When a cache is
// configured, the snapshot is also written through it, keyed with a
// TTL of KeyLifetime (or one hour, absent a declared lifetime).
func (m *KeyManager) SetSnapshot(securityGroupID string, snap Snapshot) {
	m.mu.Lock()
	m.snapshots[securityGroupID] = snap
	m.mu.Unlock()

	if m.cache == nil {
		return
	}
	ttl := snap.KeyLifetime
	if ttl <= 0 {
		ttl = time.Hour
	}
	_ = m.cache.Set(context.Background(), snapshotCacheKeyPrefix+securityGroupID, snap, ttl)
}

// CurrentKey returns the active signing/encryption key for
// securityGroupID, or a Security error if none is available.
func (m *KeyManager) CurrentKey(securityGroupID string) ([]byte, uint32, error) {
	snap, ok := m.Snapshot(securityGroupID)
	if !ok || len(snap.Keys) == 0 {
		return nil, 0, pubsuberrors.Security("no usable key for security group "+securityGroupID, nil)
	}
	return snap.Keys[0], snap.CurrentTokenID, nil
}
