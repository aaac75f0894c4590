// Package orderstate decides which order status transitions are legal and
// classifies them for notification urgency. It performs no I/O.
package orderstate

import (
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
)

// DefaultUrgencyThreshold is how long an order may sit in PENDING before it is urgent.
const DefaultUrgencyThreshold = 5 * time.Minute

var successors = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusAccepted, model.OrderStatusCancelled},
	model.OrderStatusAccepted:  {model.OrderStatusPreparing, model.OrderStatusCancelled},
	model.OrderStatusPreparing: {model.OrderStatusReady, model.OrderStatusCancelled},
	model.OrderStatusReady:     {model.OrderStatusDelivered, model.OrderStatusCancelled},
	model.OrderStatusDelivered: nil,
	model.OrderStatusCancelled: nil,
}

// Result describes an accepted transition.
type Result struct {
	Order    model.Order
	Previous model.OrderStatus
	Urgent   bool
	// MissingReason is set when an order was cancelled without a reason.
	MissingReason bool
}

// Machine applies the order transition table.
type Machine struct {
	threshold time.Duration
	clock     clock.Clock
}

// New creates a Machine. A non-positive threshold falls back to DefaultUrgencyThreshold.
func New(threshold time.Duration, clk clock.Clock) *Machine {
	if threshold <= 0 {
		threshold = DefaultUrgencyThreshold
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Machine{threshold: threshold, clock: clk}
}

// Threshold returns the configured urgency threshold.
func (m *Machine) Threshold() time.Duration { return m.threshold }

// Transition validates moving order to requested on behalf of actor. The input
// order is never modified; on success the returned snapshot carries the new status.
func (m *Machine) Transition(order model.Order, requested model.OrderStatus, actor model.Actor, reason string) (Result, error) {
	if !CanTransition(order.Status, requested, actor.Role) {
		return Result{}, fmt.Errorf("%w: %s -> %s by %s", domainErrors.ErrIllegalTransition, order.Status, requested, actor.Role)
	}

	now := m.clock.Now()
	next := order
	next.Status = requested
	next.UpdatedAt = now

	res := Result{Previous: order.Status}
	if requested == model.OrderStatusCancelled {
		next.CancelReason = reason
		next.CancelledBy = actor.Role
		res.MissingReason = reason == ""
	}
	res.Order = next
	res.Urgent = order.Status == model.OrderStatusPending && m.overdue(order.CreatedAt, now)
	return res, nil
}

// Overdue reports whether a PENDING order has waited past the threshold.
func (m *Machine) Overdue(order model.Order) bool {
	return order.Status == model.OrderStatusPending && m.overdue(order.CreatedAt, m.clock.Now())
}

func (m *Machine) overdue(createdAt, now time.Time) bool {
	return Elapsed(createdAt, now) >= m.threshold
}

// CanTransition reports whether role may move an order from one status to another.
func CanTransition(from, to model.OrderStatus, role model.Role) bool {
	if !isSuccessor(from, to) {
		return false
	}
	switch role {
	case model.RoleVendor:
		return true
	case model.RoleCustomer:
		return from == model.OrderStatusPending && to == model.OrderStatusCancelled
	}
	return false
}

// Next lists the statuses role may move an order to from status.
func Next(status model.OrderStatus, role model.Role) []model.OrderStatus {
	var out []model.OrderStatus
	for _, to := range successors[status] {
		if CanTransition(status, to, role) {
			out = append(out, to)
		}
	}
	return out
}

// IsTerminal reports whether no further transitions are possible from status.
func IsTerminal(status model.OrderStatus) bool {
	next, known := successors[status]
	return known && len(next) == 0
}

// Elapsed is the time an order has existed at now, never negative.
func Elapsed(createdAt, now time.Time) time.Duration {
	if d := now.Sub(createdAt); d > 0 {
		return d
	}
	return 0
}

func isSuccessor(from, to model.OrderStatus) bool {
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}
