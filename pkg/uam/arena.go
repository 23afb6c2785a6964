// Package uam implements the safety mapper: a single-threaded
// cooperative scheduler multiplexing Providers and Consumers, each
// exchanging Request/Response SPDUs with its non-safe counterpart.
package uam

import (
	"sync"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

// arena is a fixed-size bump allocator. It never returns memory to the
// Go allocator: Reset rewinds the offset so the same backing slab is
// reused across initialize()/clear() cycles, matching the no-general-
// allocator-during-cycle invariant.
type arena struct {
	mu     sync.Mutex
	slab   []byte
	offset int
}

func newArena(capacity int) *arena {
	return &arena{slab: make([]byte, capacity)}
}

// alloc carves n bytes out of the slab. The returned slice is always
// zeroed, including when the region is reused after a reset.
func (a *arena) alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n < 0 {
		return nil, pubsuberrors.Allocation("arena: negative allocation size", nil)
	}
	if a.offset+n > len(a.slab) {
		return nil, pubsuberrors.Allocation("arena: out of space", nil)
	}
	b := a.slab[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	for i := range b {
		b[i] = 0
	}
	return b, nil
}

// reset rewinds the offset to zero without freeing the slab.
func (a *arena) reset() {
	a.mu.Lock()
	a.offset = 0
	a.mu.Unlock()
}

// used reports the number of bytes currently carved out, for tests.
func (a *arena) used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}
