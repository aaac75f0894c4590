package app

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/adapter/ordersapi"
	"github.com/polkiloo/pulperia/internal/config"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
	"github.com/polkiloo/pulperia/internal/realtime/notify"
)

// ListenerModule wires the headless live-updates client and its lifecycle.
var ListenerModule = fx.Options(
	fx.Provide(newListener),
	fx.Invoke(registerListener),
)

// Listener keeps one user's live session open, renders its events and
// refetches the order list whenever the session (re)connects.
type Listener struct {
	userID     string
	manager    *realtime.Manager
	dispatcher *realtime.Dispatcher
	pipeline   *notify.Pipeline
	stale      *realtime.StaleSet
	orders     ordersapi.Client
	clock      clock.Clock
	retry      realtime.Backoff
	logger     *slog.Logger

	refetch chan struct{}
	mu      sync.Mutex
	cancel  context.CancelFunc
	detach  func()
	wg      sync.WaitGroup
}

type listenerParams struct {
	fx.In

	Config  *config.ListenerConfig
	Dialer  realtime.Dialer
	Orders  ordersapi.Client
	Effects notify.Effects
	Clock   clock.Clock
	Logger  *slog.Logger
}

func newListener(p listenerParams) *Listener {
	return NewListener(p.Config, p.Dialer, p.Orders, p.Effects, p.Clock, p.Logger)
}

// NewListener builds the session manager, dispatcher and notification pipeline for cfg.
func NewListener(cfg *config.ListenerConfig, dialer realtime.Dialer, orders ordersapi.Client, effects notify.Effects, clk clock.Clock, logger *slog.Logger) *Listener {
	l := &Listener{
		userID:  cfg.UserID,
		orders:  orders,
		clock:   clk,
		logger:  logger,
		refetch: make(chan struct{}, 1),
	}
	l.retry = realtime.CappedExponential{
		Initial:     cfg.ReconnectMinDelay,
		Max:         cfg.ReconnectMaxDelay,
		MaxAttempts: math.MaxInt32,
	}
	l.stale = realtime.NewStaleSet(func(realtime.CacheKey) { l.requestRefetch() })
	l.dispatcher = realtime.NewDispatcher(l.stale, logger)
	l.manager = realtime.NewManager(dialer, l.dispatcher, logger,
		realtime.WithClock(clk),
		realtime.WithBackoff(realtime.CappedExponential{
			Initial:     cfg.ReconnectMinDelay,
			Max:         cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectAttempts,
		}),
		realtime.WithStatusHook(l.onStatus),
	)
	machine := orderstate.New(cfg.UrgencyThreshold, clk)
	l.pipeline = notify.New(cfg.Role, machine, clk, effects, logger,
		notify.WithOnTick(func(orderID string, elapsed time.Duration) {
			logger.Debug("pending order", slog.String("order", orderID), slog.Duration("elapsed", elapsed))
		}),
	)
	return l
}

// Start attaches the pipeline and connects in the background.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.detach = l.pipeline.Attach(l.dispatcher)

	l.wg.Add(1)
	go l.refetchLoop(ctx)
	l.manager.Connect(l.userID)
}

// Stop leaves the room, closes the session and discards countdowns.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, detach := l.cancel, l.detach
	l.cancel, l.detach = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}

	l.manager.Disconnect()
	cancel()
	l.wg.Wait()
	detach()
	l.pipeline.Stop()
}

// Status exposes the session state.
func (l *Listener) Status() model.Status { return l.manager.Status() }

// Pipeline returns the notification pipeline.
func (l *Listener) Pipeline() *notify.Pipeline { return l.pipeline }

// Dispatcher returns the event registry the pipeline is attached to.
func (l *Listener) Dispatcher() *realtime.Dispatcher { return l.dispatcher }

func (l *Listener) onStatus(s model.SessionStatus) {
	l.logger.Info("live session status", slog.String("user", l.userID), slog.String("status", string(s)))
	if s == model.SessionConnected {
		l.requestRefetch()
	}
}

// requestRefetch coalesces refetch requests; it never blocks.
func (l *Listener) requestRefetch() {
	select {
	case l.refetch <- struct{}{}:
	default:
	}
}

// refetchLoop runs one reconcile per request. A failed reconcile is retried
// on its own after a growing delay; new requests still run immediately.
func (l *Listener) refetchLoop(ctx context.Context) {
	defer l.wg.Done()
	var retry <-chan time.Time
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.refetch:
		case <-retry:
		}
		retry = nil

		if l.reconcile(ctx) {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}
		failures++
		delay, _ := l.retry.Delay(failures)
		retry = l.clock.After(delay)
	}
}

func (l *Listener) reconcile(ctx context.Context) bool {
	orders, err := l.orders.Orders(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Warn("refetch orders failed", slog.String("user", l.userID), slog.String("error", err.Error()))
		}
		return false
	}
	l.stale.Refreshed(realtime.OrdersKey(l.userID), realtime.DashboardKey(l.userID))
	l.pipeline.Reconcile(orders)
	l.logger.Info("orders reconciled", slog.String("user", l.userID), slog.Int("orders", len(orders)))
	return true
}

func registerListener(lc fx.Lifecycle, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			l.Stop()
			return nil
		},
	})
}
