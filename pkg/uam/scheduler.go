package uam

import (
	"sync"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
)

type providerState struct {
	cfg  Config
	spi  []byte
	cb   ProviderCycleFunc
	safetyData    []byte
	nonSafetyData []byte
	requestBuf    []byte // raw bytes of the latest Request SPDU received
	responseBuf   []byte // raw bytes of the Response SPDU this tick composes
	haveRequest   bool
	lastMonitoringNumber uint32
}

type consumerState struct {
	cfg  Config
	spi  []byte
	cb   ConsumerCycleFunc
	safetyData    []byte
	nonSafetyData []byte
	requestBuf    []byte // raw bytes of the Request SPDU this tick composes
	responseBuf   []byte // raw bytes of the latest Response SPDU received
	haveResponse  bool
	lastMonitoringNumber uint32
}

// Scheduler is the locked, running half of the safety mapper: the
// registration table from Builder is frozen, every Provider/Consumer's
// buffers are carved from a single arena, and Cycle() drives one tick
// of work for each. It is single-threaded cooperative: Cycle must be
// called from one goroutine at a time, matching the spec's "no
// internal timers" model.
type Scheduler struct {
	arena  *arena
	layer  SafetyLayer
	mu     sync.Mutex
	providers []*providerState
	consumers []*consumerState
	cleared   bool
}

// Start locks b's registration table, allocates every Provider/
// Consumer's four buffers from a capacity-parameterized arena, and
// returns the running Scheduler, which keeps its own copy of the
// registrations. b stays usable: InitProvider/InitConsumer calls on b
// after Start still succeed, and they do not affect the returned
// Scheduler.
func (b *Builder) Start(layer SafetyLayer, arenaCapacity int) (*Scheduler, error) {
	if layer == nil {
		return nil, pubsuberrors.Configuration("uam: start requires a SafetyLayer", nil)
	}

	a := newArena(arenaCapacity)
	s := &Scheduler{arena: a, layer: layer}

	for _, reg := range b.providers {
		ps, err := newProviderState(a, reg)
		if err != nil {
			return nil, err
		}
		s.providers = append(s.providers, ps)
	}
	for _, reg := range b.consumers {
		cs, err := newConsumerState(a, reg)
		if err != nil {
			return nil, err
		}
		s.consumers = append(s.consumers, cs)
	}
	return s, nil
}

func newProviderState(a *arena, reg providerRegistration) (*providerState, error) {
	safetyData, err := a.alloc(reg.cfg.SafetyDataLength)
	if err != nil {
		return nil, err
	}
	nonSafetyData, err := a.alloc(reg.cfg.NonSafetyDataLength)
	if err != nil {
		return nil, err
	}
	spduSize := spduHeaderSize + reg.cfg.SafetyDataLength + reg.cfg.NonSafetyDataLength
	requestBuf, err := a.alloc(spduSize)
	if err != nil {
		return nil, err
	}
	responseBuf, err := a.alloc(spduSize)
	if err != nil {
		return nil, err
	}
	return &providerState{
		cfg: reg.cfg, spi: reg.spi, cb: reg.cb,
		safetyData: safetyData, nonSafetyData: nonSafetyData,
		requestBuf: requestBuf, responseBuf: responseBuf,
	}, nil
}

func newConsumerState(a *arena, reg consumerRegistration) (*consumerState, error) {
	safetyData, err := a.alloc(reg.cfg.SafetyDataLength)
	if err != nil {
		return nil, err
	}
	nonSafetyData, err := a.alloc(reg.cfg.NonSafetyDataLength)
	if err != nil {
		return nil, err
	}
	spduSize := spduHeaderSize + reg.cfg.SafetyDataLength + reg.cfg.NonSafetyDataLength
	requestBuf, err := a.alloc(spduSize)
	if err != nil {
		return nil, err
	}
	responseBuf, err := a.alloc(spduSize)
	if err != nil {
		return nil, err
	}
	return &consumerState{
		cfg: reg.cfg, spi: reg.spi, cb: reg.cb,
		safetyData: safetyData, nonSafetyData: nonSafetyData,
		requestBuf: requestBuf, responseBuf: responseBuf,
	}, nil
}

// ReceiveRequest delivers the raw Request SPDU bytes arrived from the
// non-safe side for the given Provider, ahead of the next Cycle. It
// copies into the Provider's own requestBuf, so no reference to the
// caller's slice is retained.
func (s *Scheduler) ReceiveRequest(h ProviderHandle, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.provider(h)
	if err != nil {
		return err
	}
	if len(data) != len(ps.requestBuf) {
		return pubsuberrors.Decode("uam: request spdu size mismatch", nil)
	}
	copy(ps.requestBuf, data)
	ps.haveRequest = true
	return nil
}

// ReceiveResponse delivers the raw Response SPDU bytes arrived from
// the non-safe side for the given Consumer, ahead of the next Cycle.
func (s *Scheduler) ReceiveResponse(h ConsumerHandle, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, err := s.consumer(h)
	if err != nil {
		return err
	}
	if len(data) != len(cs.responseBuf) {
		return pubsuberrors.Decode("uam: response spdu size mismatch", nil)
	}
	copy(cs.responseBuf, data)
	cs.haveResponse = true
	return nil
}

// PendingResponse returns the raw bytes of the Response SPDU the
// Provider composed on its last Cycle, to hand to the non-safe side.
func (s *Scheduler) PendingResponse(h ProviderHandle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.provider(h)
	if err != nil {
		return nil, err
	}
	return ps.responseBuf, nil
}

// PendingRequest returns the raw bytes of the Request SPDU the
// Consumer composed on its last Cycle, to hand to the non-safe side.
func (s *Scheduler) PendingRequest(h ConsumerHandle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, err := s.consumer(h)
	if err != nil {
		return nil, err
	}
	return cs.requestBuf, nil
}

// providerRequestSize reports the exact byte length a Request SPDU for
// h must have, so a ChannelPump can size its receive buffer before any
// Cycle has run.
func (s *Scheduler) providerRequestSize(h ProviderHandle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.provider(h)
	if err != nil {
		return 0, err
	}
	return len(ps.requestBuf), nil
}

// consumerResponseSize mirrors providerRequestSize for a Consumer's
// Response SPDU.
func (s *Scheduler) consumerResponseSize(h ConsumerHandle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, err := s.consumer(h)
	if err != nil {
		return 0, err
	}
	return len(cs.responseBuf), nil
}

func (s *Scheduler) provider(h ProviderHandle) (*providerState, error) {
	if int(h) < 0 || int(h) >= len(s.providers) {
		return nil, pubsuberrors.Configuration("uam: invalid provider handle", nil)
	}
	return s.providers[h], nil
}

func (s *Scheduler) consumer(h ConsumerHandle) (*consumerState, error) {
	if int(h) < 0 || int(h) >= len(s.consumers) {
		return nil, pubsuberrors.Configuration("uam: invalid consumer handle", nil)
	}
	return s.consumers[h], nil
}

// Cycle runs one tick for every registered Provider and Consumer, in
// registration order. It must be called from a single thread; no
// internal timers or goroutines are spawned.
func (s *Scheduler) Cycle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ps := range s.providers {
		if err := s.cycleProvider(ps); err != nil {
			return err
		}
	}
	for _, cs := range s.consumers {
		if err := s.cycleConsumer(cs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) cycleProvider(ps *providerState) error {
	var prevRequest *SPDU
	if ps.haveRequest {
		req, err := DecodeSPDU(ps.requestBuf, SPDURequest, ps.cfg.SafetyDataLength, ps.cfg.NonSafetyDataLength)
		if err != nil {
			return err
		}
		prevRequest = req
	}

	ps.cb(ps.cfg, prevRequest, ps.safetyData, ps.nonSafetyData)

	resp := &SPDU{
		Kind: SPDUResponse, SafetyData: ps.safetyData, NonSafetyData: ps.nonSafetyData,
		MonitoringNumber: ps.lastMonitoringNumber,
	}
	if err := s.layer.ExecuteProvider(prevRequest, ps.safetyData, ps.nonSafetyData, resp); err != nil {
		return pubsuberrors.Safety("uam: execute_provider failed", err)
	}
	ps.lastMonitoringNumber = resp.MonitoringNumber
	if _, err := EncodeSPDU(ps.responseBuf, resp); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) cycleConsumer(cs *consumerState) error {
	var prevResponse *SPDU
	if cs.haveResponse {
		resp, err := DecodeSPDU(cs.responseBuf, SPDUResponse, cs.cfg.SafetyDataLength, cs.cfg.NonSafetyDataLength)
		if err != nil {
			return err
		}
		prevResponse = resp
	}

	req := &SPDU{
		Kind: SPDURequest, SafetyData: cs.safetyData, NonSafetyData: cs.nonSafetyData,
		MonitoringNumber: cs.lastMonitoringNumber,
	}
	if err := s.layer.ExecuteConsumer(prevResponse, req); err != nil {
		return pubsuberrors.Safety("uam: execute_consumer failed", err)
	}
	cs.lastMonitoringNumber = req.MonitoringNumber
	if _, err := EncodeSPDU(cs.requestBuf, req); err != nil {
		return err
	}

	var safetyIn, nonSafetyIn []byte
	if prevResponse != nil {
		safetyIn, nonSafetyIn = prevResponse.SafetyData, prevResponse.NonSafetyData
	}
	cs.cb(cs.cfg, prevResponse, safetyIn, nonSafetyIn)
	return nil
}

// Clear unlocks the scheduler's state and releases the arena: every
// Provider/Consumer buffer is invalidated and the slab is rewound
// without being returned to the Go allocator.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena.reset()
	s.providers = nil
	s.consumers = nil
	s.cleared = true
}
