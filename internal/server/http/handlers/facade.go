package handlers

import (
	"context"
	"net/http"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
)

// AuthFacade resolves bearer tokens to principals.
type AuthFacade interface {
	ParseToken(token string) (pkgAuth.Principal, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, actor model.Actor, vendorID string) (*model.Order, error)
	TransitionOrder(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, reason string) (orderstate.Result, error)
	Orders(ctx context.Context, actor model.Actor) ([]model.Order, error)
}

// PulperiaFacade manages storefront availability.
type PulperiaFacade interface {
	SetPulperiaOpen(ctx context.Context, actor model.Actor, open bool) (*model.Pulperia, error)
	PulperiaStatus(ctx context.Context, vendorID string) (*model.Pulperia, error)
}

// SessionFacade runs live websocket sessions.
type SessionFacade interface {
	ServeSession(w http.ResponseWriter, r *http.Request, principal pkgAuth.Principal) error
}

// HealthFacade reports backing storage health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// Facade aggregates the full set of operations used across handlers.
type Facade interface {
	AuthFacade
	OrderFacade
	PulperiaFacade
	SessionFacade
	HealthFacade
}
