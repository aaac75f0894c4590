package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
)

// ErrSourceDown is reported by HealthCheck while the relay has no live subscription.
var ErrSourceDown = errors.New("relay source down")

// Sink receives envelopes for local delivery.
type Sink interface {
	Deliver(env model.Envelope) int
}

// Source opens the stream of envelopes the relay forwards. The stream closes
// when the source loses its upstream; Envelopes may then be called again.
type Source interface {
	Envelopes(ctx context.Context) (<-chan model.Envelope, error)
}

// Option customizes a Relay.
type Option func(*Relay)

// WithBackoff sets the resubscription schedule.
func WithBackoff(b realtime.Backoff) Option { return func(r *Relay) { r.backoff = b } }

// WithClock replaces the clock used between resubscription attempts.
func WithClock(c clock.Clock) Option { return func(r *Relay) { r.clock = c } }

// WithGiveUp registers fn to run once resubscription attempts are exhausted.
func WithGiveUp(fn func(error)) Option { return func(r *Relay) { r.giveUp = fn } }

// Relay forwards broker envelopes to the local hub with a fixed worker pool.
// Envelopes for the same room always go through the same worker, so their
// order is preserved. A closed source is resubscribed with backoff.
type Relay struct {
	source    Source
	sink      Sink
	workers   int
	queueSize int
	logger    *slog.Logger
	backoff   realtime.Backoff
	clock     clock.Clock
	giveUp    func(error)

	shards []chan model.Envelope
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
	up     bool
}

// NewRelay constructs a relay with the given pool size.
func NewRelay(source Source, sink Sink, workers, queueSize int, logger *slog.Logger, opts ...Option) *Relay {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	r := &Relay{
		source:    source,
		sink:      sink,
		workers:   workers,
		queueSize: queueSize,
		logger:    logger,
		backoff:   realtime.DefaultBackoff(),
		clock:     clock.Real(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes to the source and launches the workers.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	in, err := r.source.Envelopes(runCtx)
	if err != nil {
		cancel()
		return err
	}
	r.cancel = cancel
	r.up = true

	r.shards = make([]chan model.Envelope, r.workers)
	for i := range r.shards {
		r.shards[i] = make(chan model.Envelope, r.queueSize)
		r.wg.Add(1)
		go r.worker(r.shards[i])
	}

	r.wg.Add(1)
	go r.dispatch(runCtx, in, r.shards)
	return nil
}

// Stop cancels the subscription and waits for queued envelopes to drain.
func (r *Relay) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.up = false
	r.mu.Unlock()

	r.wg.Wait()
}

// HealthCheck fails while the relay is not subscribed to its source.
func (r *Relay) HealthCheck(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up {
		return ErrSourceDown
	}
	return nil
}

func (r *Relay) setUp(up bool) {
	r.mu.Lock()
	r.up = up
	r.mu.Unlock()
}

func (r *Relay) dispatch(ctx context.Context, in <-chan model.Envelope, shards []chan model.Envelope) {
	defer r.wg.Done()
	defer func() {
		for _, shard := range shards {
			close(shard)
		}
	}()

	for {
		if !r.forward(ctx, in, shards) {
			return
		}
		r.setUp(false)
		r.logger.Warn("relay source closed")

		next, ok := r.resubscribe(ctx)
		if !ok {
			return
		}
		in = next
		r.setUp(true)
		r.logger.Info("relay source resubscribed")
	}
}

// forward copies envelopes into shards. It reports false when ctx ended and
// true when the source closed.
func (r *Relay) forward(ctx context.Context, in <-chan model.Envelope, shards []chan model.Envelope) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case env, ok := <-in:
			if !ok {
				return ctx.Err() == nil
			}
			select {
			case shards[shardFor(env.Room, len(shards))] <- env:
			case <-ctx.Done():
				return false
			}
		}
	}
}

func (r *Relay) resubscribe(ctx context.Context) (<-chan model.Envelope, bool) {
	var lastErr error = ErrSourceDown
	for attempt := 1; ; attempt++ {
		delay, ok := r.backoff.Delay(attempt)
		if !ok {
			r.logger.Error("giving up on relay source",
				slog.Int("attempts", attempt-1),
				slog.String("error", lastErr.Error()),
			)
			if r.giveUp != nil {
				r.giveUp(lastErr)
			}
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-r.clock.After(delay):
		}

		in, err := r.source.Envelopes(ctx)
		if err == nil {
			return in, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		lastErr = err
		r.logger.Warn("relay resubscribe failed",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Relay) worker(jobs <-chan model.Envelope) {
	defer r.wg.Done()
	for env := range jobs {
		if n := r.sink.Deliver(env); n == 0 {
			r.logger.Debug("no local sockets for room", slog.String("room", env.Room), slog.String("event", string(env.Name)))
		}
	}
}

func shardFor(room string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(room))
	return int(h.Sum32() % uint32(n))
}

