package dto

import "time"

// CreateOrderRequest places an order with a vendor.
type CreateOrderRequest struct {
	VendorID string `json:"vendor_id" binding:"required"`
}

// TransitionRequest asks to move an order to another status.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// OrderResponse represents order information returned to clients.
type OrderResponse struct {
	ID           string    `json:"id"`
	VendorID     string    `json:"vendor_id"`
	CustomerID   string    `json:"customer_id"`
	Status       string    `json:"status"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CancelledBy  string    `json:"cancelled_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TransitionResponse carries the updated order and how the change was classified.
type TransitionResponse struct {
	Order         OrderResponse `json:"order"`
	Urgent        bool          `json:"urgent"`
	MissingReason bool          `json:"missing_reason"`
}
