package repository

import (
	"context"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// StatusUpdate describes a conditional status write.
type StatusUpdate struct {
	OrderID      string
	From         model.OrderStatus
	To           model.OrderStatus
	CancelReason string
	CancelledBy  model.Role
}

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error)
	// UpdateStatus applies the update only while the stored status still equals From.
	UpdateStatus(ctx context.Context, update StatusUpdate) (*model.Order, error)
}
