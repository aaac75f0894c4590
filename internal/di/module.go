package di

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/adapter/amqp"
	"github.com/polkiloo/pulperia/internal/adapter/ordersapi"
	"github.com/polkiloo/pulperia/internal/app"
	"github.com/polkiloo/pulperia/internal/broadcast"
	"github.com/polkiloo/pulperia/internal/config"
	"github.com/polkiloo/pulperia/internal/logger"
	"github.com/polkiloo/pulperia/internal/pkg/auth"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
	"github.com/polkiloo/pulperia/internal/realtime/notify"
	"github.com/polkiloo/pulperia/internal/server/http/router"
	"github.com/polkiloo/pulperia/internal/server/ws"
	"github.com/polkiloo/pulperia/internal/storage/postgres"
	"github.com/polkiloo/pulperia/internal/usecase"
	"github.com/polkiloo/pulperia/internal/worker"
)

// Module composes the server graph.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		fx.Provide(clock.Real),
		auth.Module,
		postgres.Module,
		ws.Module,
		fx.Provide(
			fx.Annotate(func(h *ws.Hub) broadcast.Emitter { return h }, fx.ResultTags(`name:"local"`)),
			func(h *ws.Hub) worker.Sink { return h },
			func(h *ws.Hub) app.SessionServer { return h },
			newHealthChecker,
		),
		amqp.Module,
		worker.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

// newHealthChecker checks storage and, when broker fan-out is on, the relay.
func newHealthChecker(s *postgres.Storage, relay *worker.Relay) app.HealthChecker {
	checks := app.HealthChecks{s}
	if relay != nil {
		checks = append(checks, relay)
	}
	return checks
}

// ListenerModule composes the headless live-updates client graph.
func ListenerModule(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.ListenerModule,
		logger.Module,
		fx.Provide(clock.Real),
		ordersapi.Module,
		fx.Provide(
			newDialer,
			func(l *slog.Logger) notify.Effects { return notify.LogEffects{Logger: l} },
		),
		app.ListenerModule,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

func newDialer(cfg *config.ListenerConfig) (realtime.Dialer, error) {
	url, err := ordersapi.SessionURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	return realtime.NewWebsocketDialer(url, cfg.Token), nil
}
