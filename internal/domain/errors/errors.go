package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// TransportError wraps a connection level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SubscriberError reports a panic raised by an event subscriber.
type SubscriberError struct {
	Event     string
	Recovered any
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber for %s panicked: %v", e.Event, e.Recovered)
}
