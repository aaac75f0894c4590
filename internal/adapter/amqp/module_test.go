package amqp

import (
	"context"
	"io"
	"testing"

	"github.com/polkiloo/pulperia/internal/config"
	testhelpers "github.com/polkiloo/pulperia/internal/test"
)

func TestModuleWithoutBrokerUsesLocalEmitter(t *testing.T) {
	local := &testhelpers.EmitterRecorder{}
	recorder := &testhelpers.LifecycleRecorder{}
	cfg := &config.Config{}

	emitter, err := newEmitter(emitterParams{Lifecycle: recorder, Config: cfg, Local: local, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emitter != local {
		t.Fatalf("expected local emitter, got %T", emitter)
	}

	source, err := newSource(sourceParams{Lifecycle: recorder, Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != nil {
		t.Fatalf("expected no source, got %T", source)
	}
	if len(recorder.Hooks) != 0 {
		t.Fatalf("expected no hooks, got %d", len(recorder.Hooks))
	}
}

func TestModuleWithBrokerDialsAndClosesOnStop(t *testing.T) {
	orig := dial
	t.Cleanup(func() { dial = orig })

	var channels []*fakeChannel
	dial = func(url string) (channel, io.Closer, error) {
		if url != "amqp://broker" {
			t.Fatalf("unexpected url %q", url)
		}
		ch := newFakeChannel()
		channels = append(channels, ch)
		return ch, nil, nil
	}

	recorder := &testhelpers.LifecycleRecorder{}
	cfg := &config.Config{AMQPURL: "amqp://broker", AMQPExchange: "pulperia.events"}

	emitter, err := newEmitter(emitterParams{Lifecycle: recorder, Config: cfg, Local: &testhelpers.EmitterRecorder{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := emitter.(*Publisher); !ok {
		t.Fatalf("expected publisher, got %T", emitter)
	}

	source, err := newSource(sourceParams{Lifecycle: recorder, Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := source.(*Consumer); !ok {
		t.Fatalf("expected consumer, got %T", source)
	}

	if len(recorder.Hooks) != 2 {
		t.Fatalf("expected two hooks, got %d", len(recorder.Hooks))
	}
	if err := recorder.Stop(context.Background()); err != nil {
		t.Fatalf("on stop failed: %v", err)
	}
	for i, ch := range channels {
		if !ch.closed {
			t.Fatalf("expected channel %d closed", i)
		}
	}
}
