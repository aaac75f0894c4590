package model

import "time"

// OrderStatus describes order lifecycle stage.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus reports whether s names a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch status := OrderStatus(s); status {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return status, true
	}
	return "", false
}

// Order is the minimal order record needed to drive its lifecycle.
type Order struct {
	ID           string
	VendorID     string
	CustomerID   string
	Status       OrderStatus
	CancelReason string
	CancelledBy  Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rooms returns every room an event about the order is delivered to.
func (o Order) Rooms() []string {
	if o.VendorID == o.CustomerID {
		return []string{o.VendorID}
	}
	return []string{o.VendorID, o.CustomerID}
}
