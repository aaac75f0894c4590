package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/config"
	"github.com/polkiloo/pulperia/internal/orderstate"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newMachine,
	NewOrderUseCase,
	NewPulperiaUseCase,
)

func newMachine(cfg *config.Config, clk clock.Clock) *orderstate.Machine {
	return orderstate.New(cfg.UrgencyThreshold, clk)
}
