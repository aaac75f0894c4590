package auth

import (
	"github.com/polkiloo/pulperia/internal/config"
	"go.uber.org/fx"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newTokenStrategy),
)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	if p.Config.AuthStrategy == config.AuthStrategyJWT {
		return NewJWTStrategy(p.Config.TokenSecret, Options{})
	}
	return NewHMACStrategy(p.Config.TokenSecret, Options{})
}
