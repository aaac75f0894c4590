package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventName identifies a business event. Names are only ever added, never repurposed.
type EventName string

const (
	EventNewOrder              EventName = "new-order"
	EventOrderUpdated          EventName = "order-updated"
	EventPulperiaStatusChanged EventName = "pulperia-status-changed"
)

// Envelope is the wire unit delivered to a room.
type Envelope struct {
	Name    EventName       `json:"name"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Payload is implemented by every typed event body.
type Payload interface {
	EventName() EventName
}

// NewOrderPayload announces an order that has just been placed.
type NewOrderPayload struct {
	OrderID    string      `json:"order_id"`
	VendorID   string      `json:"vendor_id"`
	CustomerID string      `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (NewOrderPayload) EventName() EventName { return EventNewOrder }

// Order rebuilds the order snapshot carried by the event.
func (p NewOrderPayload) Order() Order {
	return Order{
		ID:         p.OrderID,
		VendorID:   p.VendorID,
		CustomerID: p.CustomerID,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.CreatedAt,
	}
}

// OrderUpdatedPayload carries a committed status transition.
type OrderUpdatedPayload struct {
	OrderID    string      `json:"order_id"`
	VendorID   string      `json:"vendor_id"`
	CustomerID string      `json:"customer_id"`
	Previous   OrderStatus `json:"previous"`
	Status     OrderStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Actor      Role        `json:"actor"`
	Urgent     bool        `json:"urgent"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (OrderUpdatedPayload) EventName() EventName { return EventOrderUpdated }

// Order rebuilds the order snapshot after the transition.
func (p OrderUpdatedPayload) Order() Order {
	o := Order{
		ID:         p.OrderID,
		VendorID:   p.VendorID,
		CustomerID: p.CustomerID,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.Status == OrderStatusCancelled {
		o.CancelReason = p.Reason
		o.CancelledBy = p.Actor
	}
	return o
}

// PulperiaStatusPayload announces that a vendor opened or closed.
type PulperiaStatusPayload struct {
	VendorID  string    `json:"vendor_id"`
	Open      bool      `json:"open"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PulperiaStatusPayload) EventName() EventName { return EventPulperiaStatusChanged }

// RawPayload keeps the body of an event this build does not know about.
type RawPayload struct {
	Name EventName
	Data json.RawMessage
}

func (p RawPayload) EventName() EventName { return p.Name }

// NewEnvelope encodes payload for delivery to room.
func NewEnvelope(room string, payload Payload) (Envelope, error) {
	if raw, ok := payload.(RawPayload); ok {
		return Envelope{Name: raw.Name, Room: room, Payload: raw.Data}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", payload.EventName(), err)
	}
	return Envelope{Name: payload.EventName(), Room: room, Payload: data}, nil
}

// DecodePayload returns the typed payload of env. Unknown names decode to RawPayload.
func DecodePayload(env Envelope) (Payload, error) {
	var (
		payload Payload
		err     error
	)
	switch env.Name {
	case EventNewOrder:
		var p NewOrderPayload
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	case EventOrderUpdated:
		var p OrderUpdatedPayload
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	case EventPulperiaStatusChanged:
		var p PulperiaStatusPayload
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	default:
		return RawPayload{Name: env.Name, Data: env.Payload}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Name, err)
	}
	return payload, nil
}

// ControlType names a client to server control message.
type ControlType string

const (
	ControlJoin  ControlType = "join"
	ControlLeave ControlType = "leave"
)

// ControlMessage asks the server to add or remove the socket from a room.
type ControlMessage struct {
	Type   ControlType `json:"type"`
	UserID string      `json:"user_id"`
}
