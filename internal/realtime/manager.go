package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
)

const (
	defaultQueueSize  = 64
	controlBufferSize = 4
)

// Option customizes a Manager.
type Option func(*Manager)

// WithBackoff replaces the reconnection policy.
func WithBackoff(b Backoff) Option { return func(m *Manager) { m.backoff = b } }

// WithClock replaces the clock used for backoff sleeps.
func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithQueueSize sets the inbound envelope queue capacity.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithStatusHook registers fn to observe session status changes. fn must not block.
func WithStatusHook(fn func(model.SessionStatus)) Option {
	return func(m *Manager) { m.onStatus = fn }
}

// Manager owns the single live connection of a client process and keeps it
// joined to the user's room. Failures are logged and surface only as status.
//
// The backoff's attempt cap counts reconnection attempts: the first dial of a
// session is not one of them, so a server that is down from the start sees
// one initial dial plus MaxAttempts retries before the session gives up.
//
// Disconnect waits for the handler currently being dispatched, so handlers
// must not call Disconnect or Connect themselves.
type Manager struct {
	dialer     Dialer
	dispatcher *Dispatcher
	backoff    Backoff
	clock      clock.Clock
	logger     *slog.Logger
	queueSize  int
	onStatus   func(model.SessionStatus)

	// opMu serializes Connect and Disconnect.
	opMu sync.Mutex

	mu       sync.Mutex
	userID   string
	status   model.SessionStatus
	retries  int
	cancel   context.CancelFunc
	done     chan struct{}
	outbound chan model.ControlMessage
}

// NewManager creates a Manager in the DISCONNECTED state.
func NewManager(dialer Dialer, dispatcher *Dispatcher, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		dialer:     dialer,
		dispatcher: dispatcher,
		backoff:    DefaultBackoff(),
		clock:      clock.Real(),
		logger:     logger,
		queueSize:  defaultQueueSize,
		status:     model.SessionDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect starts a session for userID and returns without waiting for the
// network. It is a no-op while a session for the same user is live.
func (m *Manager) Connect(userID string) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	live := m.cancel != nil && m.status != model.SessionDisconnected
	if live && m.userID == userID {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.stop(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.userID = userID
	m.cancel = cancel
	m.done = done
	m.retries = 0
	m.mu.Unlock()
	m.update(ctx, func() { m.status = model.SessionConnecting })

	go m.run(ctx, userID, done)
}

// Disconnect leaves the room, tears down the transport, cancels any pending
// reconnection and clears all subscriptions. It returns once the session's
// reader, writer, retry and dispatch goroutines have exited.
func (m *Manager) Disconnect() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.stop(true)
}

// Status returns whether the session is connected and how many reconnection
// attempts have failed in a row.
func (m *Manager) Status() model.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Status{Connected: m.status == model.SessionConnected, RetryCount: m.retries}
}

// SessionStatus returns the detailed session state.
func (m *Manager) SessionStatus() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Dispatcher returns the registry inbound events are delivered to.
func (m *Manager) Dispatcher() *Dispatcher { return m.dispatcher }

func (m *Manager) stop(clearSubscriptions bool) {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	if cancel != nil && m.outbound != nil && m.status == model.SessionConnected {
		select {
		case m.outbound <- model.ControlMessage{Type: model.ControlLeave, UserID: m.userID}:
		default:
		}
	}
	prev := m.status
	if cancel != nil {
		cancel()
	}
	m.cancel = nil
	m.done = nil
	m.outbound = nil
	m.retries = 0
	m.status = model.SessionDisconnected
	hook := m.onStatus
	m.mu.Unlock()

	if done != nil {
		<-done
	}
	if clearSubscriptions {
		m.dispatcher.Clear()
	}
	if hook != nil && prev != model.SessionDisconnected {
		hook(model.SessionDisconnected)
	}
}

// update mutates session state unless ctx belongs to a session that was stopped.
func (m *Manager) update(ctx context.Context, fn func()) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	prev := m.status
	fn()
	cur := m.status
	hook := m.onStatus
	m.mu.Unlock()

	if hook != nil && prev != cur {
		hook(cur)
	}
}

func (m *Manager) run(ctx context.Context, userID string, done chan struct{}) {
	queue := make(chan model.Envelope, m.queueSize)
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		m.dispatchLoop(dispatchCtx, queue)
	}()
	defer func() {
		stopDispatch()
		<-dispatched
		close(done)
	}()

	failures := 0
	retrying := false
	for {
		conn, err := m.dialer.Dial(ctx)
		if err == nil {
			failures = 0
			err = m.serve(ctx, conn, userID, queue)
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("connection lost", slog.String("user", userID), slog.String("error", err.Error()))
		} else {
			if ctx.Err() != nil {
				return
			}
			err = &domainErrors.TransportError{Op: "dial", Err: err}
			m.logger.Warn("connect failed", slog.String("user", userID), slog.String("error", err.Error()))
			if retrying {
				failures++
				m.update(ctx, func() { m.retries = failures })
			}
		}
		retrying = true

		delay, ok := m.backoff.Delay(failures + 1)
		if !ok {
			m.update(ctx, func() { m.status = model.SessionDisconnected })
			m.logger.Error("giving up on live updates",
				slog.String("user", userID),
				slog.Int("attempts", failures),
				slog.String("error", domainErrors.ErrReconnectExhausted.Error()),
			)
			return
		}
		m.update(ctx, func() { m.status = model.SessionReconnecting })

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(delay):
		}
	}
}

// serve runs the reader/writer pair for one connection until either fails or
// ctx is cancelled. The join message is always the first frame written.
func (m *Manager) serve(ctx context.Context, conn Conn, userID string, queue chan<- model.Envelope) error {
	out := make(chan model.ControlMessage, controlBufferSize)
	out <- model.ControlMessage{Type: model.ControlJoin, UserID: userID}

	m.update(ctx, func() {
		m.outbound = out
		m.retries = 0
		m.status = model.SessionConnected
	})
	defer func() {
		m.mu.Lock()
		if m.outbound == out {
			m.outbound = nil
		}
		m.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer conn.Close()
		for {
			select {
			case msg := <-out:
				if err := conn.WriteJSON(msg); err != nil {
					return &domainErrors.TransportError{Op: "write", Err: err}
				}
			case <-gctx.Done():
				flush(conn, out)
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			var env model.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return &domainErrors.TransportError{Op: "read", Err: err}
			}
			select {
			case queue <- env:
			case <-gctx.Done():
				return nil
			}
		}
	})

	err := g.Wait()
	if err == nil {
		err = errors.New("connection closed")
	}
	return err
}

// flush writes control messages queued before shutdown, such as leave.
func flush(conn Conn, out <-chan model.ControlMessage) {
	for {
		select {
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (m *Manager) dispatchLoop(ctx context.Context, queue <-chan model.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-queue:
			if ctx.Err() != nil {
				return
			}
			m.dispatcher.Dispatch(env)
		}
	}
}
