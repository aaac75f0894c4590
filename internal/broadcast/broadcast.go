package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// Emitter delivers an event to every live session joined to room. Delivery
// is best effort: clients reconcile by refetching after a reconnect.
type Emitter interface {
	Emit(ctx context.Context, room string, payload model.Payload) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, room string, payload model.Payload) error

func (f EmitterFunc) Emit(ctx context.Context, room string, payload model.Payload) error {
	return f(ctx, room, payload)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, model.Payload) error { return nil }

// EmitAll sends payload to each room and joins the failures.
func EmitAll(ctx context.Context, e Emitter, rooms []string, payload model.Payload) error {
	var errs []error
	for _, room := range rooms {
		if err := e.Emit(ctx, room, payload); err != nil {
			errs = append(errs, fmt.Errorf("emit %s to %s: %w", payload.EventName(), room, err))
		}
	}
	return errors.Join(errs...)
}
