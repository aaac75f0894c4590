package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
)

const (
	// ToastDuration is the same for every order toast; urgency changes intensity only.
	ToastDuration = 6 * time.Second
	// TickInterval is how often a pending order's countdown is recomputed.
	TickInterval = time.Second
)

// Vibration patterns alternate on and off durations.
var (
	NewOrderPattern    = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	UrgentPattern      = []time.Duration{400 * time.Millisecond, 150 * time.Millisecond, 400 * time.Millisecond, 150 * time.Millisecond, 400 * time.Millisecond}
	PulsePattern       = []time.Duration{100 * time.Millisecond}
	UrgentPulsePattern = []time.Duration{250 * time.Millisecond}
)

// TickFunc receives the recomputed age of a pending order.
type TickFunc func(orderID string, elapsed time.Duration)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithOnTick registers fn for countdown ticks. It runs on the order's ticker goroutine.
func WithOnTick(fn TickFunc) Option { return func(p *Pipeline) { p.onTick = fn } }

// WithOpenOrder sets what a toast click does for an order.
func WithOpenOrder(fn func(orderID string)) Option { return func(p *Pipeline) { p.openOrder = fn } }

type countdown struct {
	createdAt time.Time
	elapsed   time.Duration
	escalated bool
	ticker    *clock.Ticker
	done      chan struct{}
}

// Pipeline turns dispatched events into effects for one side of the marketplace
// and keeps a countdown per pending order on the vendor side.
type Pipeline struct {
	side      model.Role
	machine   *orderstate.Machine
	clock     clock.Clock
	effects   Effects
	logger    *slog.Logger
	onTick    TickFunc
	openOrder func(orderID string)

	mu         sync.Mutex
	countdowns map[string]*countdown
	stopped    bool
	wg         sync.WaitGroup
}

// New creates a Pipeline. A nil clock means the real clock.
func New(side model.Role, machine *orderstate.Machine, clk clock.Clock, effects Effects, logger *slog.Logger, opts ...Option) *Pipeline {
	if clk == nil {
		clk = clock.Real()
	}
	p := &Pipeline{
		side:       side,
		machine:    machine,
		clock:      clk,
		effects:    effects,
		logger:     logger,
		countdowns: make(map[string]*countdown),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach subscribes the pipeline to d. The returned func detaches it.
func (p *Pipeline) Attach(d *realtime.Dispatcher) func() {
	unsubs := []realtime.Unsubscribe{
		d.Subscribe(model.EventNewOrder, p.Handle),
		d.Subscribe(model.EventOrderUpdated, p.Handle),
		d.Subscribe(model.EventPulperiaStatusChanged, p.Handle),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handle reacts to a single event.
func (p *Pipeline) Handle(e realtime.Event) {
	switch payload := e.Payload.(type) {
	case model.NewOrderPayload:
		if p.side == model.RoleVendor {
			p.vendorNewOrder(payload.Order())
		}
	case model.OrderUpdatedPayload:
		if p.side == model.RoleVendor {
			p.vendorOrderUpdated(payload)
		} else {
			p.customerOrderUpdated(payload)
		}
	case model.PulperiaStatusPayload:
		p.logger.Info("pulperia status changed",
			slog.String("vendor", payload.VendorID),
			slog.Bool("open", payload.Open),
		)
	}
}

func (p *Pipeline) vendorNewOrder(order model.Order) {
	sound, pattern := SoundNewOrder, NewOrderPattern
	overdue := p.machine.Overdue(order)
	if overdue {
		sound, pattern = SoundUrgent, UrgentPattern
	}
	p.effects.PlaySound(sound)
	p.effects.Vibrate(pattern)
	p.effects.ShowToast(Toast{
		Title:       "New order",
		Body:        fmt.Sprintf("Order %s is waiting for you", order.ID),
		Duration:    ToastDuration,
		Dismissible: true,
		OnClick:     p.clickHandler(order.ID),
	})
	if order.Status == model.OrderStatusPending {
		p.startCountdown(order, overdue)
	}
}

func (p *Pipeline) vendorOrderUpdated(u model.OrderUpdatedPayload) {
	if u.Status != model.OrderStatusPending {
		p.stopCountdown(u.OrderID)
	}
	if u.Status == model.OrderStatusCancelled && u.Actor == model.RoleCustomer {
		body := fmt.Sprintf("Order %s was cancelled by the customer", u.OrderID)
		if u.Reason != "" {
			body += ": " + u.Reason
		}
		p.effects.ShowToast(Toast{
			Title:       "Order cancelled",
			Body:        body,
			Duration:    ToastDuration,
			Dismissible: true,
			OnClick:     p.clickHandler(u.OrderID),
		})
	}
}

func (p *Pipeline) customerOrderUpdated(u model.OrderUpdatedPayload) {
	pattern := PulsePattern
	if u.Urgent {
		pattern = UrgentPulsePattern
	}
	p.effects.PlaySound(SoundUpdate)
	p.effects.Vibrate(pattern)
	p.effects.ShowToast(Toast{
		Title:       "Order " + statusLabel(u.Status),
		Body:        customerBody(u),
		Duration:    ToastDuration,
		Dismissible: true,
		OnClick:     p.clickHandler(u.OrderID),
	})

	if u.Status == model.OrderStatusDelivered {
		p.celebrate()
	}
}

// celebrate runs Celebrate off the dispatch goroutine. It is a no-op after Stop.
func (p *Pipeline) celebrate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.effects.Celebrate()
	}()
}

func (p *Pipeline) clickHandler(orderID string) func() {
	if p.openOrder == nil {
		return nil
	}
	return func() { p.openOrder(orderID) }
}

func (p *Pipeline) startCountdown(order model.Order, escalated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if _, ok := p.countdowns[order.ID]; ok {
		return
	}

	c := &countdown{
		createdAt: order.CreatedAt,
		elapsed:   orderstate.Elapsed(order.CreatedAt, p.clock.Now()),
		escalated: escalated,
		ticker:    p.clock.NewTicker(TickInterval),
		done:      make(chan struct{}),
	}
	p.countdowns[order.ID] = c
	p.wg.Add(1)
	go p.tick(order.ID, c)
}

func (p *Pipeline) tick(orderID string, c *countdown) {
	defer p.wg.Done()
	defer c.ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-c.ticker.C:
			elapsed := orderstate.Elapsed(c.createdAt, now)

			p.mu.Lock()
			c.elapsed = elapsed
			escalate := !c.escalated && elapsed >= p.machine.Threshold()
			if escalate {
				c.escalated = true
			}
			p.mu.Unlock()

			if escalate {
				p.logger.Warn("order waiting too long",
					slog.String("order", orderID),
					slog.Duration("elapsed", elapsed),
				)
				p.effects.PlaySound(SoundUrgent)
				p.effects.Vibrate(UrgentPattern)
			}
			if p.onTick != nil {
				p.onTick(orderID, elapsed)
			}
		}
	}
}

func (p *Pipeline) stopCountdown(orderID string) {
	p.mu.Lock()
	c, ok := p.countdowns[orderID]
	delete(p.countdowns, orderID)
	p.mu.Unlock()
	if ok {
		close(c.done)
	}
}

// Reconcile aligns countdowns with a freshly fetched order list without
// playing any effects. Only the vendor side keeps countdowns.
func (p *Pipeline) Reconcile(orders []model.Order) {
	if p.side != model.RoleVendor {
		return
	}
	pending := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if o.Status == model.OrderStatusPending {
			pending[o.ID] = struct{}{}
			p.startCountdown(o, p.machine.Overdue(o))
		}
	}

	p.mu.Lock()
	var gone []string
	for id := range p.countdowns {
		if _, ok := pending[id]; !ok {
			gone = append(gone, id)
		}
	}
	p.mu.Unlock()
	for _, id := range gone {
		p.stopCountdown(id)
	}
}

// Elapsed returns the last computed age of a pending order.
func (p *Pipeline) Elapsed(orderID string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.countdowns[orderID]
	if !ok {
		return 0, false
	}
	return c.elapsed, true
}

// Pending returns the number of running countdowns.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.countdowns)
}

// Stop discards every countdown and waits for effect goroutines to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.stopped = true
	countdowns := p.countdowns
	p.countdowns = make(map[string]*countdown)
	p.mu.Unlock()

	for _, c := range countdowns {
		close(c.done)
	}
	p.wg.Wait()
}

func statusLabel(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusAccepted:
		return "accepted"
	case model.OrderStatusPreparing:
		return "being prepared"
	case model.OrderStatusReady:
		return "ready"
	case model.OrderStatusDelivered:
		return "delivered"
	case model.OrderStatusCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}

func customerBody(u model.OrderUpdatedPayload) string {
	if u.Status == model.OrderStatusCancelled && u.Reason != "" {
		return fmt.Sprintf("Order %s: %s", u.OrderID, u.Reason)
	}
	return fmt.Sprintf("Order %s is %s", u.OrderID, statusLabel(u.Status))
}
