package ordersapi

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/config"
)

// Module exposes the orders API client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.ListenerConfig
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.ServerURL, p.Config.Token, p.Logger)
}
