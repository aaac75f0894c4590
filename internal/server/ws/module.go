package ws

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/config"
)

// Module provides the websocket hub and closes its sessions on shutdown.
var Module = fx.Options(
	fx.Provide(newHub),
	fx.Invoke(registerLifecycle),
)

func newHub(cfg *config.Config, logger *slog.Logger) *Hub {
	return NewHub(logger, WithSendBuffer(cfg.WSSendBuffer))
}

func registerLifecycle(lc fx.Lifecycle, hub *Hub) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})
}
