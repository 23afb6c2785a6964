// Package publisher implements the §4.3 Publisher scheduler: one worker
// per publisher connection, producing one NetworkMessage per publishing
// interval per writer group.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/concurrency"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/events"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/logger"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/model"
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/uadp"
	"github.com/gopcua/opcua/ua"
	"golang.org/x/sync/errgroup"
)

const (
	signatureFailureTopic = "pubsub.publisher.signature_failed"

	// defaultWorkerCount bounds the provider-fetch worker pool when the
	// caller (or pkg/config's ambient settings) doesn't request a
	// specific size.
	defaultWorkerCount = 4
	workerQueueSize     = 256
)

// Dialer opens the per-connection socket, abstracting over the UDP and
// MQTT transport adapters so the scheduler doesn't need to know which
// one a connection's address selects.
type Dialer interface {
	DialPublisher(conn *model.PubSubConnection) (transport.Socket, error)
}

// Scheduler runs one worker goroutine per enabled publisher connection
// in a Config.
type Scheduler struct {
	cfg        *model.Config
	provider   SourceProvider
	dialer     Dialer
	km         *security.KeyManager
	crypto     security.CryptoProvider
	bus        events.Bus
	workerCount int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	pool    *concurrency.WorkerPool
}

// New returns a Scheduler. bus and crypto may be nil when no connection
// uses security or event notifications. workerCount bounds the pool
// that runs async provider fetches (see refreshWriterValues); a value
// <= 0 falls back to defaultWorkerCount, which is what pkg/config's
// ambient PUBSUB_WORKER_COUNT setting feeds in production.
func New(cfg *model.Config, provider SourceProvider, dialer Dialer, km *security.KeyManager, crypto security.CryptoProvider, bus events.Bus, workerCount int) *Scheduler {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &Scheduler{cfg: cfg, provider: provider, dialer: dialer, km: km, crypto: crypto, bus: bus, workerCount: workerCount}
}

// Start opens one socket per enabled publisher connection and launches
// its worker. It returns false (via a non-nil error) on any dial
// failure; no worker is left running in that case.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return pubsuberrors.Configuration("publisher scheduler already started", nil)
	}

	stopCtx, cancel := context.WithCancel(ctx)
	g, runCtx := errgroup.WithContext(stopCtx)

	type opened struct {
		conn *model.PubSubConnection
		sock transport.Socket
	}
	var sockets []opened

	for i := range s.cfg.PublisherConnections() {
		conn := &s.cfg.PublisherConnections()[i]
		if !conn.Enabled {
			continue
		}
		sock, err := s.dialer.DialPublisher(conn)
		if err != nil {
			for _, o := range sockets {
				_ = o.sock.Close()
			}
			cancel()
			return pubsuberrors.Transport("opening publisher socket for "+conn.Address, err)
		}
		sockets = append(sockets, opened{conn: conn, sock: sock})
	}

	pool := concurrency.NewWorkerPool(s.workerCount, workerQueueSize)
	pool.Start(runCtx)

	s.cancel = cancel
	s.group = g
	s.pool = pool
	s.running = true
	for _, o := range sockets {
		conn, sock := o.conn, o.sock
		g.Go(func() error {
			defer sock.Close()
			s.runConnection(runCtx, conn, sock)
			return nil
		})
	}
	return nil
}

// Stop cancels every worker and waits for them to exit (each closes its
// own socket), then stops the fetch pool. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	group := s.group
	pool := s.pool
	s.running = false
	s.mu.Unlock()

	cancel()
	_ = group.Wait()
	pool.Stop()
}

type writerState struct {
	sem        *concurrency.Semaphore
	mu         sync.Mutex
	lastValues []*ua.DataValue
	haveValues bool
}

type groupState struct {
	writers        map[uint16]*writerState
	seq            uint16
	nextDue        time.Time
	lastEmission   time.Time
	fixedBuffer    bool
	fixedBufferLen int
}

func (s *Scheduler) runConnection(ctx context.Context, conn *model.PubSubConnection, sock transport.Socket) {
	if len(conn.WriterGroups) == 0 {
		return
	}

	minInterval := conn.WriterGroups[0].PublishingInterval
	states := make([]*groupState, len(conn.WriterGroups))
	now := time.Now()
	for gi := range conn.WriterGroups {
		g := &conn.WriterGroups[gi]
		if g.PublishingInterval < minInterval {
			minInterval = g.PublishingInterval
		}
		gs := &groupState{writers: make(map[uint16]*writerState), nextDue: now, lastEmission: now}
		for _, w := range g.Writers {
			gs.writers[w.WriterID] = &writerState{sem: concurrency.NewSemaphore(1)}
		}
		states[gi] = gs
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}

	ticker := time.NewTicker(minInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for gi := range conn.WriterGroups {
				g := &conn.WriterGroups[gi]
				gs := states[gi]
				if now.Before(gs.nextDue) {
					continue
				}
				gs.nextDue = gs.nextDue.Add(g.PublishingInterval)
				s.tickGroup(ctx, conn, g, gs, sock, now)
			}
		}
	}
}

func (s *Scheduler) tickGroup(ctx context.Context, conn *model.PubSubConnection, g *model.WriterGroup, gs *groupState, sock transport.Socket, now time.Time) {
	var dueWriters []model.DataSetWriter
	if conn.Acyclic {
		for _, w := range g.Writers {
			if w.Options.EmitAtThisTick {
				dueWriters = append(dueWriters, w)
			}
		}
	} else {
		dueWriters = g.Writers
	}
	keepAliveDue := len(dueWriters) == 0

	if keepAliveDue {
		if g.KeepAliveTime <= 0 || now.Sub(gs.lastEmission) < g.KeepAliveTime {
			return
		}
	}

	nm, err := uadp.NetworkMessageFromWriterGroup(conn, g, keepAliveDue)
	if err != nil {
		logger.L().ErrorContext(ctx, "building network message failed", "error", err)
		return
	}

	if !keepAliveDue {
		dsmIndexByWriter := make(map[uint16]int, len(nm.WriterIDs))
		for i, id := range nm.WriterIDs {
			dsmIndexByWriter[id] = i
		}

		for _, w := range dueWriters {
			if w.DataSet == nil {
				continue
			}
			dsmIdx, ok := dsmIndexByWriter[w.WriterID]
			if !ok {
				continue
			}
			ws := gs.writers[w.WriterID]
			s.refreshWriterValues(ctx, w, ws)

			ws.mu.Lock()
			values := ws.lastValues
			have := ws.haveValues
			ws.mu.Unlock()
			if !have {
				continue
			}
			for fi, v := range values {
				if fi >= len(nm.DataSetMessages[dsmIdx].Fields) {
					break
				}
				variant, verr := ua.NewVariant(v.Value.Value())
				if verr != nil {
					continue
				}
				_ = uadp.NmSetVariantAt(nm, dsmIdx, fi, variant, v.SourceTimestamp, v.Status)
			}
		}
	}

	gs.seq++
	for i := range nm.DataSetMessages {
		nm.DataSetMessages[i].SequenceNumber = gs.seq
		nm.DataSetMessages[i].Timestamp = now
	}

	var opts *uadp.EncodeOptions
	if g.SecurityMode != model.SecurityModeNone {
		if s.km == nil || s.crypto == nil {
			s.signatureFailed(ctx, g, conn)
			return
		}
		if _, _, err := s.km.CurrentKey(g.SecurityGroupID); err != nil {
			s.signatureFailed(ctx, g, conn)
			return
		}
		opts = &uadp.EncodeOptions{SecurityGroupID: g.SecurityGroupID, KeyManager: s.km, Crypto: s.crypto}
	}

	data, err := uadp.Encode(nm, opts)
	if err != nil {
		logger.L().ErrorContext(ctx, "encoding network message failed", "error", err)
		return
	}

	if err := sock.Send(ctx, data); err != nil {
		logger.L().ErrorContext(ctx, "sending network message failed", "error", err)
		return
	}
	gs.lastEmission = now
}

func (s *Scheduler) refreshWriterValues(ctx context.Context, w model.DataSetWriter, ws *writerState) {
	if !ws.sem.TryAcquire(1) {
		return // BUSY: a request for this writer is already in flight.
	}

	reqs := make([]*ua.ReadValueID, 0, len(w.DataSet.Fields))
	for _, f := range w.DataSet.Fields {
		if f.Published == nil {
			continue
		}
		reqs = append(reqs, &ua.ReadValueID{
			NodeID:      f.Published.NodeID,
			AttributeID: f.Published.AttributeID,
			IndexRange:  f.Published.NumericRange,
		})
	}

	s.pool.Submit(func(taskCtx context.Context) {
		defer ws.sem.Release(1)
		values, err := s.provider.Get(taskCtx, reqs)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.lastValues = values
		ws.haveValues = true
		ws.mu.Unlock()
	})
}

func (s *Scheduler) signatureFailed(ctx context.Context, g *model.WriterGroup, conn *model.PubSubConnection) {
	logger.L().WarnContext(ctx, "no usable key for security group, skipping tick", "group_id", g.GroupID, "security_group_id", g.SecurityGroupID)
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, signatureFailureTopic, events.Event{
		Type:    "pubsub.signature_failed",
		Payload: map[string]any{"group_id": g.GroupID, "publisher_id": conn.PublisherID.String(), "security_group_id": g.SecurityGroupID},
	})
}
