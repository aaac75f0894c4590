package test

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
)

// Emission is one recorded Emit call.
type Emission struct {
	Room    string
	Payload model.Payload
}

// EmitterRecorder records emitted events. Err, if set, is returned from every Emit.
type EmitterRecorder struct {
	Err error

	mu    sync.Mutex
	calls []Emission
}

// Emit records the call.
func (r *EmitterRecorder) Emit(_ context.Context, room string, payload model.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Emission{Room: room, Payload: payload})
	return r.Err
}

// Calls returns a copy of the recorded emissions.
func (r *EmitterRecorder) Calls() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emission(nil), r.calls...)
}

// SinkRecorder records envelopes handed to local delivery.
type SinkRecorder struct {
	mu        sync.Mutex
	envelopes []model.Envelope
}

// Deliver records env and reports one recipient.
func (s *SinkRecorder) Deliver(env model.Envelope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
	return 1
}

// Envelopes returns a copy of the delivered envelopes.
func (s *SinkRecorder) Envelopes() []model.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Envelope(nil), s.envelopes...)
}

// SourceStub serves envelopes pushed on C. When Streams is set, each call to
// Envelopes hands out the next stream instead; once they run out the call
// fails with Err, or ErrSourceExhausted.
type SourceStub struct {
	C       chan model.Envelope
	Err     error
	Streams []chan model.Envelope

	mu    sync.Mutex
	calls int
}

// ErrSourceExhausted is returned by SourceStub once Streams is used up.
var ErrSourceExhausted = errors.New("no more streams")

// Envelopes returns the next stream, C, or Err.
func (s *SourceStub) Envelopes(context.Context) (<-chan model.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Streams != nil {
		if s.calls <= len(s.Streams) {
			return s.Streams[s.calls-1], nil
		}
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, ErrSourceExhausted
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.C, nil
}

// Calls reports how many times Envelopes ran.
func (s *SourceStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// OrdersClientStub serves a fixed order list and counts calls.
type OrdersClientStub struct {
	OrdersFn func(context.Context) ([]model.Order, error)
	List     []model.Order

	mu    sync.Mutex
	calls int
}

// Orders returns List unless OrdersFn overrides it.
func (s *OrdersClientStub) Orders(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx)
	}
	return s.List, nil
}

// Calls reports how many times Orders ran.
func (s *OrdersClientStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	PlaceFn      func(context.Context, model.Actor, string) (*model.Order, error)
	TransitionFn func(context.Context, model.Actor, string, model.OrderStatus, string) (orderstate.Result, error)
	OrdersFn     func(context.Context, model.Actor) ([]model.Order, error)
}

// PlaceOrder delegates to PlaceFn or returns a pending order.
func (s OrderFacadeStub) PlaceOrder(ctx context.Context, actor model.Actor, vendorID string) (*model.Order, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, actor, vendorID)
	}
	return &model.Order{ID: "o1", VendorID: vendorID, CustomerID: actor.ID, Status: model.OrderStatusPending}, nil
}

// TransitionOrder delegates to TransitionFn or accepts the move.
func (s OrderFacadeStub) TransitionOrder(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, reason string) (orderstate.Result, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, actor, orderID, status, reason)
	}
	return orderstate.Result{Order: model.Order{ID: orderID, Status: status}}, nil
}

// Orders returns predefined orders for the actor.
func (s OrderFacadeStub) Orders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, actor)
	}
	return []model.Order{{ID: "o1", Status: model.OrderStatusPending}}, nil
}

// PulperiaFacadeStub simulates storefront operations.
type PulperiaFacadeStub struct {
	SetOpenFn func(context.Context, model.Actor, bool) (*model.Pulperia, error)
	StatusFn  func(context.Context, string) (*model.Pulperia, error)
}

// SetPulperiaOpen delegates to SetOpenFn or echoes the request.
func (s PulperiaFacadeStub) SetPulperiaOpen(ctx context.Context, actor model.Actor, open bool) (*model.Pulperia, error) {
	if s.SetOpenFn != nil {
		return s.SetOpenFn(ctx, actor, open)
	}
	return &model.Pulperia{VendorID: actor.ID, Open: open}, nil
}

// PulperiaStatus delegates to StatusFn or reports an open pulperia.
func (s PulperiaFacadeStub) PulperiaStatus(ctx context.Context, vendorID string) (*model.Pulperia, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, vendorID)
	}
	return &model.Pulperia{VendorID: vendorID, Open: true}, nil
}

// SessionFacadeStub answers upgrade requests.
type SessionFacadeStub struct {
	ServeFn func(http.ResponseWriter, *http.Request, pkgAuth.Principal) error
}

// ServeSession delegates to ServeFn or answers 200.
func (s SessionFacadeStub) ServeSession(w http.ResponseWriter, r *http.Request, p pkgAuth.Principal) error {
	if s.ServeFn != nil {
		return s.ServeFn(w, r, p)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// HealthFacadeStub reports Err.
type HealthFacadeStub struct {
	Err error
}

// HealthCheck returns Err.
func (s HealthFacadeStub) HealthCheck(context.Context) error { return s.Err }

// FacadeStub aggregates facade dependencies for HTTP layer tests.
type FacadeStub struct {
	StrategyStub
	OrderFacadeStub
	PulperiaFacadeStub
	SessionFacadeStub
	HealthFacadeStub
}
