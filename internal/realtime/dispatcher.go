package realtime

import (
	"log/slog"
	"sync"

	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
)

// Event is a decoded envelope handed to subscribers.
type Event struct {
	Name    model.EventName
	Room    string
	Payload model.Payload
}

// Handler receives dispatched events on the dispatch goroutine.
type Handler func(Event)

// Unsubscribe removes exactly the subscription it was returned for. Calling it
// more than once is harmless.
type Unsubscribe func()

type subscription struct {
	handler Handler
}

// Dispatcher fans inbound events out to registered handlers.
type Dispatcher struct {
	mu          sync.Mutex
	subs        map[model.EventName][]*subscription
	invalidator CacheInvalidator
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher. invalidator may be nil.
func NewDispatcher(invalidator CacheInvalidator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:        make(map[model.EventName][]*subscription),
		invalidator: invalidator,
		logger:      logger,
	}
}

// Subscribe registers handler for name.
func (d *Dispatcher) Subscribe(name model.EventName, handler Handler) Unsubscribe {
	sub := &subscription{handler: handler}
	d.mu.Lock()
	d.subs[name] = append(d.subs[name], sub)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(name, sub) })
	}
}

func (d *Dispatcher) remove(name model.EventName, sub *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.subs[name]
	for i, s := range current {
		if s != sub {
			continue
		}
		next := make([]*subscription, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(d.subs, name)
		} else {
			d.subs[name] = next
		}
		return
	}
}

// Clear drops every subscription.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.subs = make(map[model.EventName][]*subscription)
	d.mu.Unlock()
}

// Subscribers returns the number of handlers registered for name.
func (d *Dispatcher) Subscribers(name model.EventName) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[name])
}

// Dispatch delivers env to its subscribers in registration order. Order events
// invalidate the affected caches before any subscriber runs.
func (d *Dispatcher) Dispatch(env model.Envelope) {
	switch env.Name {
	case model.EventNewOrder, model.EventOrderUpdated:
		if d.invalidator != nil {
			d.invalidator.Invalidate(OrdersKey(env.Room), DashboardKey(env.Room))
		}
	}

	payload, err := model.DecodePayload(env)
	if err != nil {
		d.logger.Error("drop undecodable event",
			slog.String("event", string(env.Name)),
			slog.String("room", env.Room),
			slog.String("error", err.Error()),
		)
		return
	}

	d.mu.Lock()
	snapshot := append([]*subscription(nil), d.subs[env.Name]...)
	d.mu.Unlock()

	event := Event{Name: env.Name, Room: env.Room, Payload: payload}
	for _, sub := range snapshot {
		d.invoke(sub, event)
	}
}

func (d *Dispatcher) invoke(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			err := &domainErrors.SubscriberError{Event: string(event.Name), Recovered: r}
			d.logger.Error("subscriber failed", slog.String("error", err.Error()))
		}
	}()
	sub.handler(event)
}
