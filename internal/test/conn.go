package test

import (
	"errors"
	"sync"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// ErrConnClosed is returned by ConnStub after Close.
var ErrConnClosed = errors.New("connection closed")

// ConnStub is an in-memory duplex connection. Tests push envelopes with Deliver
// and observe control messages on Writes.
type ConnStub struct {
	Writes chan model.ControlMessage

	inbound   chan model.Envelope
	fail      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

// NewConnStub creates a ConnStub with buffered channels.
func NewConnStub() *ConnStub {
	return &ConnStub{
		Writes:  make(chan model.ControlMessage, 16),
		inbound: make(chan model.Envelope, 16),
		fail:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

// Deliver queues an envelope for the next read.
func (c *ConnStub) Deliver(env model.Envelope) { c.inbound <- env }

// Drop makes the pending or next read fail with err.
func (c *ConnStub) Drop(err error) {
	select {
	case c.fail <- err:
	default:
	}
}

// Closed is closed once Close has been called.
func (c *ConnStub) Closed() <-chan struct{} { return c.closed }

// ReadJSON blocks until an envelope, a drop, or Close.
func (c *ConnStub) ReadJSON(v any) error {
	select {
	case env := <-c.inbound:
		if dst, ok := v.(*model.Envelope); ok {
			*dst = env
		}
		return nil
	case err := <-c.fail:
		return err
	case <-c.closed:
		return ErrConnClosed
	}
}

// WriteJSON records control messages.
func (c *ConnStub) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	if msg, ok := v.(model.ControlMessage); ok {
		c.Writes <- msg
	}
	return nil
}

// Close marks the connection closed.
func (c *ConnStub) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
