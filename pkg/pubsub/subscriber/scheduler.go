// Package subscriber implements the §4.4 Subscriber scheduler: one
// worker per subscriber connection, decoding received datagrams,
// matching them to configured readers and dispatching into the
// target-variable sink.
package subscriber

import (
	"context"
	"sync"
	"time"

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
	signatureCheckFailureTopic = "pubsub.subscriber.signature_check_failed"
	stateChangedTopic          = "pubsub.subscriber.state_changed"
	defaultReceiveTimeout      = 5 * time.Second
	defaultReceiveDeadline     = 2 * defaultReceiveTimeout

	// defaultReceiveBufferSize is used when the caller (or pkg/config's
	// ambient PUBSUB_RECEIVE_BUFFER_SIZE setting) doesn't request a
	// specific datagram buffer size.
	defaultReceiveBufferSize = 65536

	// deadlinePollInterval bounds how late a receive-deadline breach is
	// noticed: a reader configured with a 100 ms ReceiveTimeout must
	// report Paused within 200 ms of its last datagram, so both the
	// deadline ticker and the per-iteration Recv timeout have to be a
	// small fraction of that, not the multi-second scale a deadline
	// itself is usually set to.
	deadlinePollInterval = 20 * time.Millisecond
)

// Dialer opens the per-connection receive socket.
type Dialer interface {
	DialSubscriber(conn *model.PubSubConnection) (transport.Socket, error)
}

// Scheduler runs one worker goroutine per enabled subscriber connection.
type Scheduler struct {
	cfg              *model.Config
	sink             TargetVariableSink
	dialer           Dialer
	km               *security.KeyManager
	crypto           security.CryptoProvider
	bus              events.Bus
	onState          StateChangedFunc
	receiveBufferSize int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New returns a Scheduler. crypto/bus/onState may be nil. receiveBufferSize
// sizes the per-connection datagram buffer; a value <= 0 falls back to
// defaultReceiveBufferSize, which is what pkg/config's ambient
// PUBSUB_RECEIVE_BUFFER_SIZE setting feeds in production.
func New(cfg *model.Config, sink TargetVariableSink, dialer Dialer, km *security.KeyManager, crypto security.CryptoProvider, bus events.Bus, onState StateChangedFunc, receiveBufferSize int) *Scheduler {
	if receiveBufferSize <= 0 {
		receiveBufferSize = defaultReceiveBufferSize
	}
	return &Scheduler{cfg: cfg, sink: sink, dialer: dialer, km: km, crypto: crypto, bus: bus, onState: onState, receiveBufferSize: receiveBufferSize}
}

// Start opens one socket per enabled subscriber connection and launches
// its receive worker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return pubsuberrors.Configuration("subscriber scheduler already started", nil)
	}

	stopCtx, cancel := context.WithCancel(ctx)
	g, runCtx := errgroup.WithContext(stopCtx)

	type opened struct {
		conn *model.PubSubConnection
		sock transport.Socket
	}
	var sockets []opened
	for i := range s.cfg.SubscriberConnections() {
		conn := &s.cfg.SubscriberConnections()[i]
		if !conn.Enabled {
			continue
		}
		sock, err := s.dialer.DialSubscriber(conn)
		if err != nil {
			for _, o := range sockets {
				_ = o.sock.Close()
			}
			cancel()
			return pubsuberrors.Transport("opening subscriber socket for "+conn.Address, err)
		}
		sockets = append(sockets, opened{conn: conn, sock: sock})
	}

	s.cancel = cancel
	s.group = g
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

// Stop cancels every worker and waits for them to exit; each worker
// closes its own socket.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	group := s.group
	s.running = false
	s.mu.Unlock()

	cancel()
	_ = group.Wait()
}

type readerRuntime struct {
	deadline time.Duration
	lastSeen time.Time
	state    State
}

func (s *Scheduler) runConnection(ctx context.Context, conn *model.PubSubConnection, sock transport.Socket) {
	runtimes := make(map[*model.DataSetReader]*readerRuntime)
	now := time.Now()
	for gi := range conn.ReaderGroups {
		rg := &conn.ReaderGroups[gi]
		for ri := range rg.Readers {
			r := &rg.Readers[ri]
			d := r.ReceiveTimeout
			if d <= 0 {
				d = defaultReceiveDeadline
			}
			runtimes[r] = &readerRuntime{deadline: d, lastSeen: now, state: StateDisabled}
		}
	}

	s.setState(ctx, conn, runtimes, StateOperational)

	buf := make([]byte, s.receiveBufferSize)
	checkTicker := time.NewTicker(deadlinePollInterval)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-checkTicker.C:
			s.checkDeadlines(ctx, conn, runtimes)
		default:
		}

		recvCtx, cancel := context.WithTimeout(ctx, deadlinePollInterval)
		n, err := sock.Recv(recvCtx, buf)
		cancel()
		if err != nil {
			continue
		}
		s.handleDatagram(ctx, conn, runtimes, buf[:n])
	}
}

func (s *Scheduler) checkDeadlines(ctx context.Context, conn *model.PubSubConnection, runtimes map[*model.DataSetReader]*readerRuntime) {
	now := time.Now()
	for r, rt := range runtimes {
		if rt.state == StateOperational && now.Sub(rt.lastSeen) > rt.deadline {
			rt.state = StatePaused
			s.notifyState(ctx, conn, StatePaused)
		}
		_ = r
	}
}

func (s *Scheduler) handleDatagram(ctx context.Context, conn *model.PubSubConnection, runtimes map[*model.DataSetReader]*readerRuntime, data []byte) {
	nm, matches, err := uadp.Decode(data, s.cfg)
	if err != nil {
		logger.L().DebugContext(ctx, "dropping undecodable network message", "error", err)
		return
	}

	for _, m := range matches {
		if m.ReaderGroup.SecurityMode != model.SecurityModeNone || nm.SecurityEnabled {
			if err := uadp.VerifySignature(nm, m.ReaderGroup.SecurityGroupID, s.km, s.crypto); err != nil {
				s.signatureCheckFailed(ctx, m.ReaderGroup)
				continue
			}
		}
		s.dispatch(ctx, conn, runtimes, &nm.DataSetMessages[m.DSMIndex], m.Reader)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, conn *model.PubSubConnection, runtimes map[*model.DataSetReader]*readerRuntime, dsm *uadp.DataSetMessage, reader *model.DataSetReader) {
	if len(dsm.Fields) != len(reader.Fields) {
		logger.L().DebugContext(ctx, "dropping dataset message: field count mismatch", "writer_id", dsm.WriterID)
		return
	}

	writeValues := make([]*ua.WriteValue, 0, len(dsm.Fields))
	for i, f := range dsm.Fields {
		meta := reader.Fields[i]
		if meta.Target == nil {
			continue
		}
		status := f.Status
		if f.Value != nil && !valueMatchesType(f.Value, meta.BuiltinType) {
			status = ua.StatusBadTypeMismatch
		}
		writeValues = append(writeValues, &ua.WriteValue{
			NodeID:      meta.Target.NodeID,
			AttributeID: meta.Target.AttributeID,
			IndexRange:  meta.Target.TargetRange,
			Value: &ua.DataValue{
				EncodingMask:    ua.DataValueValue | ua.DataValueStatusCode | ua.DataValueSourceTimestamp,
				Value:           f.Value,
				Status:          status,
				SourceTimestamp: f.SourceTimestamp,
			},
		})
	}

	if !s.sink.Set(ctx, writeValues) {
		logger.L().WarnContext(ctx, "target-variable sink reported failure", "writer_id", dsm.WriterID)
	}

	if rt, ok := runtimes[reader]; ok {
		rt.lastSeen = time.Now()
		if rt.state != StateOperational {
			rt.state = StateOperational
			s.notifyState(ctx, conn, StateOperational)
		}
	}
}

func valueMatchesType(v *ua.Variant, want ua.TypeID) bool {
	return v.Type() == want
}

func (s *Scheduler) setState(ctx context.Context, conn *model.PubSubConnection, runtimes map[*model.DataSetReader]*readerRuntime, state State) {
	for _, rt := range runtimes {
		rt.state = state
	}
	s.notifyState(ctx, conn, state)
}

func (s *Scheduler) notifyState(ctx context.Context, conn *model.PubSubConnection, state State) {
	if s.onState != nil {
		s.onState(ctx, conn.Address, state)
	}
}

func (s *Scheduler) signatureCheckFailed(ctx context.Context, rg *model.ReaderGroup) {
	logger.L().WarnContext(ctx, "signature check failed, dropping dataset message", "group_id", rg.GroupID, "security_group_id", rg.SecurityGroupID)
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, signatureCheckFailureTopic, events.Event{
		Type:    "pubsub.signature_check_failed",
		Payload: map[string]any{"group_id": rg.GroupID, "security_group_id": rg.SecurityGroupID},
	})
}
