package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOrderStatusValues(t *testing.T) {
	cases := []struct {
		name  string
		got   OrderStatus
		value string
	}{
		{"pending", OrderStatusPending, "PENDING"},
		{"accepted", OrderStatusAccepted, "ACCEPTED"},
		{"preparing", OrderStatusPreparing, "PREPARING"},
		{"ready", OrderStatusReady, "READY"},
		{"delivered", OrderStatusDelivered, "DELIVERED"},
		{"cancelled", OrderStatusCancelled, "CANCELLED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if string(tc.got) != tc.value {
				t.Fatalf("expected %s, got %s", tc.value, tc.got)
			}
			parsed, ok := ParseOrderStatus(tc.value)
			if !ok || parsed != tc.got {
				t.Fatalf("expected %s to parse, got %q ok=%v", tc.value, parsed, ok)
			}
		})
	}

	if _, ok := ParseOrderStatus("SHIPPED"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("vendor"); !ok || r != RoleVendor {
		t.Fatalf("expected vendor role, got %q ok=%v", r, ok)
	}
	if r, ok := ParseRole("customer"); !ok || r != RoleCustomer {
		t.Fatalf("expected customer role, got %q ok=%v", r, ok)
	}
	if _, ok := ParseRole("admin"); ok {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestActorParticipates(t *testing.T) {
	order := Order{VendorID: "v1", CustomerID: "c1"}
	cases := []struct {
		actor Actor
		want  bool
	}{
		{Actor{ID: "v1", Role: RoleVendor}, true},
		{Actor{ID: "c1", Role: RoleCustomer}, true},
		{Actor{ID: "c1", Role: RoleVendor}, false},
		{Actor{ID: "v2", Role: RoleVendor}, false},
		{Actor{ID: "v1", Role: "admin"}, false},
	}
	for _, tc := range cases {
		if got := tc.actor.Participates(order); got != tc.want {
			t.Fatalf("actor %+v: expected %v, got %v", tc.actor, tc.want, got)
		}
	}
}

func TestOrderRooms(t *testing.T) {
	rooms := Order{VendorID: "v1", CustomerID: "c1"}.Rooms()
	if len(rooms) != 2 || rooms[0] != "v1" || rooms[1] != "c1" {
		t.Fatalf("unexpected rooms %v", rooms)
	}
	rooms = Order{VendorID: "x", CustomerID: "x"}.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected single room for self order, got %v", rooms)
	}
}

func TestEnvelopeRoundTripTyped(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	payload := OrderUpdatedPayload{
		OrderID:    "o1",
		VendorID:   "v1",
		CustomerID: "c1",
		Previous:   OrderStatusPending,
		Status:     OrderStatusCancelled,
		Reason:     "closed early",
		Actor:      RoleVendor,
		Urgent:     true,
		CreatedAt:  created,
		UpdatedAt:  created.Add(time.Minute),
	}

	env, err := NewEnvelope("c1", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Name != EventOrderUpdated || env.Room != "c1" {
		t.Fatalf("unexpected envelope header %+v", env)
	}

	wire, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	var back Envelope
	if err := json.Unmarshal(wire, &back); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	decoded, err := DecodePayload(back)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	got, ok := decoded.(OrderUpdatedPayload)
	if !ok {
		t.Fatalf("expected OrderUpdatedPayload, got %T", decoded)
	}
	order := got.Order()
	if order.CancelReason != "closed early" || order.CancelledBy != RoleVendor {
		t.Fatalf("expected cancellation metadata, got %+v", order)
	}
	if !got.Urgent || got.Previous != OrderStatusPending {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestDecodePayloadUnknownAndMalformed(t *testing.T) {
	decoded, err := DecodePayload(Envelope{Name: "rating-posted", Payload: json.RawMessage(`{"stars":5}`)})
	if err != nil {
		t.Fatalf("unknown events must not fail: %v", err)
	}
	raw, ok := decoded.(RawPayload)
	if !ok || raw.EventName() != "rating-posted" {
		t.Fatalf("expected raw payload, got %#v", decoded)
	}

	env, err := NewEnvelope("room", raw)
	if err != nil || string(env.Payload) != `{"stars":5}` {
		t.Fatalf("expected raw payload passthrough, got %s err=%v", env.Payload, err)
	}

	if _, err := DecodePayload(Envelope{Name: EventNewOrder, Payload: json.RawMessage(`[`)}); err == nil {
		t.Fatal("expected malformed payload error")
	}
}

func TestNewOrderPayloadOrder(t *testing.T) {
	now := time.Now()
	order := NewOrderPayload{OrderID: "o", VendorID: "v", CustomerID: "c", Status: OrderStatusPending, CreatedAt: now}.Order()
	if order.ID != "o" || order.Status != OrderStatusPending || !order.CreatedAt.Equal(now) {
		t.Fatalf("unexpected order %+v", order)
	}
}
