package amqp

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/broadcast"
	"github.com/polkiloo/pulperia/internal/config"
	"github.com/polkiloo/pulperia/internal/worker"
)

// Module selects how events leave the use cases. With AMQP_URL set they are
// published to the fanout exchange and every instance relays them to its own
// hub; otherwise they go straight to the local emitter.
var Module = fx.Provide(newEmitter, newSource)

type emitterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Local     broadcast.Emitter `name:"local"`
	Logger    *slog.Logger
}

func newEmitter(p emitterParams) (broadcast.Emitter, error) {
	if p.Config.AMQPURL == "" {
		return p.Local, nil
	}
	pub, err := DialPublisher(p.Config.AMQPURL, p.Config.AMQPExchange, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return pub.Close() },
	})
	return pub, nil
}

type sourceParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newSource(p sourceParams) (worker.Source, error) {
	if p.Config.AMQPURL == "" {
		return nil, nil
	}
	consumer, err := DialConsumer(p.Config.AMQPURL, p.Config.AMQPExchange, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return consumer.Close() },
	})
	return consumer, nil
}
