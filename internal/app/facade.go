package app

import (
	"context"
	"net/http"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
	"github.com/polkiloo/pulperia/internal/usecase"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecks reports the first failing check.
type HealthChecks []HealthChecker

func (h HealthChecks) HealthCheck(ctx context.Context) error {
	for _, c := range h {
		if err := c.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SessionServer runs one live websocket session for an authenticated principal.
type SessionServer interface {
	Serve(w http.ResponseWriter, r *http.Request, principal pkgAuth.Principal) error
}

// Facade is the single entry point the HTTP layer talks to.
type Facade struct {
	orders    *usecase.OrderUseCase
	pulperias *usecase.PulperiaUseCase
	tokens    pkgAuth.Strategy
	sessions  SessionServer
	health    HealthChecker
}

func NewFacade(orders *usecase.OrderUseCase, pulperias *usecase.PulperiaUseCase, tokens pkgAuth.Strategy, sessions SessionServer, health HealthChecker) *Facade {
	return &Facade{orders: orders, pulperias: pulperias, tokens: tokens, sessions: sessions, health: health}
}

func (f *Facade) ParseToken(token string) (pkgAuth.Principal, error) {
	return f.tokens.ParseToken(token)
}

func (f *Facade) PlaceOrder(ctx context.Context, actor model.Actor, vendorID string) (*model.Order, error) {
	return f.orders.Place(ctx, actor, vendorID)
}

func (f *Facade) TransitionOrder(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, reason string) (orderstate.Result, error) {
	return f.orders.Transition(ctx, actor, orderID, status, reason)
}

func (f *Facade) Orders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	return f.orders.List(ctx, actor)
}

func (f *Facade) SetPulperiaOpen(ctx context.Context, actor model.Actor, open bool) (*model.Pulperia, error) {
	return f.pulperias.SetOpen(ctx, actor, open)
}

func (f *Facade) PulperiaStatus(ctx context.Context, vendorID string) (*model.Pulperia, error) {
	return f.pulperias.Status(ctx, vendorID)
}

func (f *Facade) ServeSession(w http.ResponseWriter, r *http.Request, principal pkgAuth.Principal) error {
	return f.sessions.Serve(w, r, principal)
}

func (f *Facade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
