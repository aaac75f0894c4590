package notify

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/orderstate"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
)

type recorder struct {
	mu        sync.Mutex
	sounds    []Sound
	patterns  [][]time.Duration
	toasts    []Toast
	celebrate chan struct{}
}

func newRecorder() *recorder { return &recorder{celebrate: make(chan struct{}, 4)} }

func (r *recorder) PlaySound(kind Sound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, kind)
}

func (r *recorder) Vibrate(pattern []time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

func (r *recorder) ShowToast(toast Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast)
}

func (r *recorder) Celebrate() { r.celebrate <- struct{}{} }

func (r *recorder) snapshot() ([]Sound, [][]time.Duration, []Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sound(nil), r.sounds...), append([][]time.Duration(nil), r.patterns...), append([]Toast(nil), r.toasts...)
}

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newPipeline(side model.Role, fc *clock.FakeClock, effects Effects, opts ...Option) *Pipeline {
	machine := orderstate.New(orderstate.DefaultUrgencyThreshold, fc)
	return New(side, machine, fc, effects, discardLogger(), opts...)
}

func newOrderEvent(id string, createdAt time.Time) realtime.Event {
	return realtime.Event{
		Name: model.EventNewOrder,
		Room: "v1",
		Payload: model.NewOrderPayload{
			OrderID:    id,
			VendorID:   "v1",
			CustomerID: "c1",
			Status:     model.OrderStatusPending,
			CreatedAt:  createdAt,
		},
	}
}

func updatedEvent(id string, status model.OrderStatus, actor model.Role, reason string) realtime.Event {
	return realtime.Event{
		Name: model.EventOrderUpdated,
		Room: "c1",
		Payload: model.OrderUpdatedPayload{
			OrderID:    id,
			VendorID:   "v1",
			CustomerID: "c1",
			Previous:   model.OrderStatusPending,
			Status:     status,
			Reason:     reason,
			Actor:      actor,
			CreatedAt:  start,
			UpdatedAt:  start,
		},
	}
}

func samePattern(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVendorNewOrderEffects(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		sound   Sound
		pattern []time.Duration
	}{
		{"fresh", time.Minute, SoundNewOrder, NewOrderPattern},
		{"overdue", 6 * time.Minute, SoundUrgent, UrgentPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clock.Fake(start.Add(tt.age))
			rec := newRecorder()
			p := newPipeline(model.RoleVendor, fc, rec)
			defer p.Stop()

			p.Handle(newOrderEvent("o1", start))

			sounds, patterns, toasts := rec.snapshot()
			if len(sounds) != 1 || sounds[0] != tt.sound {
				t.Fatalf("expected sound %s, got %v", tt.sound, sounds)
			}
			if len(patterns) != 1 || !samePattern(patterns[0], tt.pattern) {
				t.Fatalf("expected pattern %v, got %v", tt.pattern, patterns)
			}
			if len(toasts) != 1 {
				t.Fatalf("expected one toast, got %d", len(toasts))
			}
			if toasts[0].Duration != ToastDuration || !toasts[0].Dismissible {
				t.Fatalf("expected dismissible %s toast, got %+v", ToastDuration, toasts[0])
			}
			if elapsed, ok := p.Elapsed("o1"); !ok || elapsed != tt.age {
				t.Fatalf("expected elapsed %s, got %s (%v)", tt.age, elapsed, ok)
			}
		})
	}
}

func TestCustomerIgnoresNewOrder(t *testing.T) {
	fc := clock.Fake(start)
	rec := newRecorder()
	p := newPipeline(model.RoleCustomer, fc, rec)
	defer p.Stop()

	p.Handle(newOrderEvent("o1", start))

	sounds, _, toasts := rec.snapshot()
	if len(sounds) != 0 || len(toasts) != 0 || p.Pending() != 0 {
		t.Fatalf("expected no effects on customer side, got %v %v", sounds, toasts)
	}
}

func TestCountdownTicksUntilOrderLeavesPending(t *testing.T) {
	fc := clock.Fake(start)
	rec := newRecorder()
	ticks := make(chan time.Duration, 8)
	p := newPipeline(model.RoleVendor, fc, rec, WithOnTick(func(id string, elapsed time.Duration) {
		if id == "o1" {
			ticks <- elapsed
		}
	}))
	defer p.Stop()

	p.Handle(newOrderEvent("o1", start))
	if p.Pending() != 1 {
		t.Fatalf("expected one countdown, got %d", p.Pending())
	}

	for i := 1; i <= 3; i++ {
		fc.BlockUntil(1)
		fc.Advance(TickInterval)
		select {
		case got := <-ticks:
			if want := time.Duration(i) * time.Second; got != want {
				t.Fatalf("expected elapsed %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected tick %d", i)
		}
	}

	p.Handle(updatedEvent("o1", model.OrderStatusAccepted, model.RoleVendor, ""))
	if p.Pending() != 0 {
		t.Fatalf("expected countdown discarded, got %d", p.Pending())
	}
	if _, ok := p.Elapsed("o1"); ok {
		t.Fatal("expected no elapsed value after accept")
	}

	deadline := time.After(2 * time.Second)
	for fc.Pending() != 0 {
		select {
		case <-deadline:
			t.Fatalf("expected ticker stopped, %d pending", fc.Pending())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCountdownEscalatesOnceAtThreshold(t *testing.T) {
	fc := clock.Fake(start.Add(orderstate.DefaultUrgencyThreshold - TickInterval))
	rec := newRecorder()
	ticks := make(chan time.Duration, 8)
	p := newPipeline(model.RoleVendor, fc, rec, WithOnTick(func(_ string, elapsed time.Duration) { ticks <- elapsed }))
	defer p.Stop()

	p.Handle(newOrderEvent("o1", start))
	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		fc.Advance(TickInterval)
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("expected tick")
		}
	}

	sounds, _, _ := rec.snapshot()
	want := []Sound{SoundNewOrder, SoundUrgent}
	if len(sounds) != len(want) || sounds[0] != want[0] || sounds[1] != want[1] {
		t.Fatalf("expected sounds %v, got %v", want, sounds)
	}
}

func TestVendorSeesCustomerCancellation(t *testing.T) {
	fc := clock.Fake(start)
	rec := newRecorder()
	p := newPipeline(model.RoleVendor, fc, rec)
	defer p.Stop()

	p.Handle(newOrderEvent("o1", start))
	p.Handle(updatedEvent("o1", model.OrderStatusCancelled, model.RoleCustomer, "changed my mind"))

	_, _, toasts := rec.snapshot()
	if len(toasts) != 2 {
		t.Fatalf("expected cancellation toast, got %d toasts", len(toasts))
	}
	if toasts[1].Title != "Order cancelled" || !strings.Contains(toasts[1].Body, "changed my mind") {
		t.Fatalf("unexpected toast %+v", toasts[1])
	}
	if p.Pending() != 0 {
		t.Fatal("expected countdown discarded after cancellation")
	}
}

func TestCustomerOrderUpdated(t *testing.T) {
	tests := []struct {
		name    string
		status  model.OrderStatus
		urgent  bool
		pattern []time.Duration
	}{
		{"accepted", model.OrderStatusAccepted, false, PulsePattern},
		{"urgent accept", model.OrderStatusAccepted, true, UrgentPulsePattern},
		{"ready", model.OrderStatusReady, false, PulsePattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			p := newPipeline(model.RoleCustomer, clock.Fake(start), rec)
			defer p.Stop()

			e := updatedEvent("o1", tt.status, model.RoleVendor, "")
			payload := e.Payload.(model.OrderUpdatedPayload)
			payload.Urgent = tt.urgent
			e.Payload = payload
			p.Handle(e)

			sounds, patterns, _ := rec.snapshot()
			if len(sounds) != 1 || sounds[0] != SoundUpdate {
				t.Fatalf("expected update sound, got %v", sounds)
			}
			if len(patterns) != 1 || !samePattern(patterns[0], tt.pattern) {
				t.Fatalf("expected pattern %v, got %v", tt.pattern, patterns)
			}
			select {
			case <-rec.celebrate:
				t.Fatal("unexpected celebration")
			default:
			}
		})
	}
}

func TestDeliveredCelebratesWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	rec := &blockingCelebration{recorder: newRecorder(), release: release}
	p := newPipeline(model.RoleCustomer, clock.Fake(start), rec)

	done := make(chan struct{})
	go func() {
		p.Handle(updatedEvent("o1", model.OrderStatusDelivered, model.RoleVendor, ""))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("celebration blocked dispatch")
	}

	close(release)
	p.Stop()
	select {
	case <-rec.celebrate:
	default:
		t.Fatal("expected celebration")
	}
}

type blockingCelebration struct {
	*recorder
	release chan struct{}
}

func (b *blockingCelebration) Celebrate() {
	<-b.release
	b.recorder.Celebrate()
}

func TestAttachAndDetach(t *testing.T) {
	fc := clock.Fake(start)
	rec := newRecorder()
	p := newPipeline(model.RoleVendor, fc, rec)
	defer p.Stop()

	d := realtime.NewDispatcher(nil, discardLogger())
	detach := p.Attach(d)

	env, err := model.NewEnvelope("v1", newOrderEvent("o1", start).Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Dispatch(env)
	if p.Pending() != 1 {
		t.Fatalf("expected countdown from dispatched event, got %d", p.Pending())
	}

	detach()
	if d.Subscribers(model.EventNewOrder) != 0 || d.Subscribers(model.EventOrderUpdated) != 0 {
		t.Fatal("expected detach to unsubscribe")
	}
}

func TestToastClickOpensOrder(t *testing.T) {
	opened := ""
	rec := newRecorder()
	p := newPipeline(model.RoleVendor, clock.Fake(start), rec, WithOpenOrder(func(id string) { opened = id }))
	defer p.Stop()

	p.Handle(newOrderEvent("o7", start))
	_, _, toasts := rec.snapshot()
	if len(toasts) != 1 || toasts[0].OnClick == nil {
		t.Fatal("expected clickable toast")
	}
	toasts[0].OnClick()
	if opened != "o7" {
		t.Fatalf("expected o7 opened, got %q", opened)
	}
}

func TestStopDiscardsCountdowns(t *testing.T) {
	fc := clock.Fake(start)
	p := newPipeline(model.RoleVendor, fc, newRecorder())

	p.Handle(newOrderEvent("o1", start))
	p.Handle(newOrderEvent("o2", start))
	p.Stop()

	if p.Pending() != 0 || fc.Pending() != 0 {
		t.Fatalf("expected no countdowns after stop, got %d/%d", p.Pending(), fc.Pending())
	}
	p.Handle(newOrderEvent("o3", start))
	if p.Pending() != 0 {
		t.Fatal("expected stopped pipeline to ignore new countdowns")
	}
}

func TestStoppedPipelineSkipsCelebration(t *testing.T) {
	rec := newRecorder()
	p := newPipeline(model.RoleCustomer, clock.Fake(start), rec)
	p.Stop()

	p.Handle(updatedEvent("o1", model.OrderStatusDelivered, model.RoleVendor, ""))
	p.Stop()
	select {
	case <-rec.celebrate:
		t.Fatal("expected no celebration after stop")
	default:
	}
}

func TestConcurrentDeliveredAndStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		rec := &recorder{celebrate: make(chan struct{}, 64)}
		p := newPipeline(model.RoleCustomer, clock.Fake(start), rec)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				p.Handle(updatedEvent("o1", model.OrderStatusDelivered, model.RoleVendor, ""))
			}
		}()
		go func() {
			defer wg.Done()
			p.Stop()
		}()
		wg.Wait()
		p.Stop()
	}
}

func TestReconcileSyncsCountdownsSilently(t *testing.T) {
	fc := clock.Fake(start)
	rec := newRecorder()
	p := newPipeline(model.RoleVendor, fc, rec)
	defer p.Stop()

	p.Handle(newOrderEvent("stale", start))
	rec = newRecorder()
	p.effects = rec

	p.Reconcile([]model.Order{
		{ID: "o1", VendorID: "v1", CustomerID: "c1", Status: model.OrderStatusPending, CreatedAt: start},
		{ID: "o2", VendorID: "v1", CustomerID: "c1", Status: model.OrderStatusReady, CreatedAt: start},
	})

	if p.Pending() != 1 {
		t.Fatalf("expected one countdown, got %d", p.Pending())
	}
	if _, ok := p.Elapsed("o1"); !ok {
		t.Fatal("expected countdown for pending order")
	}
	if _, ok := p.Elapsed("stale"); ok {
		t.Fatal("expected countdown for missing order to be discarded")
	}
	sounds, patterns, toasts := rec.snapshot()
	if len(sounds) != 0 || len(patterns) != 0 || len(toasts) != 0 {
		t.Fatalf("expected no effects, got %v %v %v", sounds, patterns, toasts)
	}

	customer := newPipeline(model.RoleCustomer, fc, newRecorder())
	customer.Reconcile([]model.Order{{ID: "o1", Status: model.OrderStatusPending, CreatedAt: start}})
	if customer.Pending() != 0 {
		t.Fatal("expected customer side to keep no countdowns")
	}
}

func TestLogEffects(t *testing.T) {
	var buf bytes.Buffer
	e := LogEffects{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	e.PlaySound(SoundUrgent)
	e.Vibrate(UrgentPattern)
	e.ShowToast(Toast{Title: "New order", Body: "o1", Duration: ToastDuration})
	e.Celebrate()

	out := buf.String()
	for _, want := range []string{`"kind":"urgent"`, `"pulses":3`, `"title":"New order"`, `"msg":"celebrate"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
