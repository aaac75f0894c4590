package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polkiloo/pulperia/internal/broadcast"
	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/domain/repository"
	"github.com/polkiloo/pulperia/internal/orderstate"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
)

// OrderUseCase persists order changes and then announces them to both parties.
// A failed announcement is logged; the write it follows stays committed.
type OrderUseCase struct {
	orders  repository.OrderRepository
	machine *orderstate.Machine
	emitter broadcast.Emitter
	clock   clock.Clock
	logger  *slog.Logger
	newID   func() string
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, machine *orderstate.Machine, emitter broadcast.Emitter, clk clock.Clock, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{
		orders:  orders,
		machine: machine,
		emitter: emitter,
		clock:   clk,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Place creates a PENDING order from a customer to vendorID.
func (u *OrderUseCase) Place(ctx context.Context, actor model.Actor, vendorID string) (*model.Order, error) {
	if actor.Role != model.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers place orders", domainErrors.ErrForbidden)
	}

	now := u.clock.Now().UTC()
	order, err := u.orders.Create(ctx, model.Order{
		ID:         u.newID(),
		VendorID:   vendorID,
		CustomerID: actor.ID,
		Status:     model.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	u.emit(ctx, order.Rooms(), model.NewOrderPayload{
		OrderID:    order.ID,
		VendorID:   order.VendorID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		CreatedAt:  order.CreatedAt,
	})
	return order, nil
}

// Transition moves the order to status on behalf of actor. The write only
// lands if nobody else moved the order since it was read.
func (u *OrderUseCase) Transition(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, reason string) (orderstate.Result, error) {
	if _, ok := model.ParseOrderStatus(string(status)); !ok {
		return orderstate.Result{}, fmt.Errorf("%w: %q", domainErrors.ErrInvalidStatus, status)
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return orderstate.Result{}, err
	}
	if !actor.Participates(*order) {
		return orderstate.Result{}, fmt.Errorf("%w: %s %s is not part of order %s", domainErrors.ErrForbidden, actor.Role, actor.ID, orderID)
	}

	res, err := u.machine.Transition(*order, status, actor, reason)
	if err != nil {
		return orderstate.Result{}, err
	}

	updated, err := u.orders.UpdateStatus(ctx, repository.StatusUpdate{
		OrderID:      order.ID,
		From:         res.Previous,
		To:           res.Order.Status,
		CancelReason: res.Order.CancelReason,
		CancelledBy:  res.Order.CancelledBy,
	})
	if err != nil {
		return orderstate.Result{}, err
	}
	res.Order = *updated

	if res.MissingReason {
		u.logger.Info("order cancelled without reason",
			slog.String("order", order.ID),
			slog.String("actor", string(actor.Role)),
		)
	}

	u.emit(ctx, updated.Rooms(), model.OrderUpdatedPayload{
		OrderID:    updated.ID,
		VendorID:   updated.VendorID,
		CustomerID: updated.CustomerID,
		Previous:   res.Previous,
		Status:     updated.Status,
		Reason:     reason,
		Actor:      actor.Role,
		Urgent:     res.Urgent,
		CreatedAt:  updated.CreatedAt,
		UpdatedAt:  updated.UpdatedAt,
	})
	return res, nil
}

// List returns the orders the actor takes part in.
func (u *OrderUseCase) List(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	switch actor.Role {
	case model.RoleVendor:
		return u.orders.ListByVendor(ctx, actor.ID)
	case model.RoleCustomer:
		return u.orders.ListByCustomer(ctx, actor.ID)
	}
	return nil, domainErrors.ErrForbidden
}

func (u *OrderUseCase) emit(ctx context.Context, rooms []string, payload model.Payload) {
	if err := broadcast.EmitAll(ctx, u.emitter, rooms, payload); err != nil {
		u.logger.Error("emit event failed",
			slog.String("event", string(payload.EventName())),
			slog.String("error", err.Error()),
		)
	}
}
