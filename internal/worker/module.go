package worker

import (
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/pulperia/internal/config"
	"github.com/polkiloo/pulperia/internal/pkg/clock"
	"github.com/polkiloo/pulperia/internal/realtime"
)

// Module provides the relay. Without a Source in the graph the relay is nil
// and events stay on the local hub.
var Module = fx.Provide(newRelay)

// Resubscription waits 1s doubling to 30s, for ten attempts, before the
// instance shuts itself down.
const (
	resubscribeInitial  = time.Second
	resubscribeMax      = 30 * time.Second
	resubscribeAttempts = 10
)

type relayParams struct {
	fx.In

	Config     *config.Config
	Source     Source `optional:"true"`
	Sink       Sink
	Clock      clock.Clock
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
}

func newRelay(p relayParams) *Relay {
	if p.Source == nil {
		return nil
	}
	return NewRelay(p.Source, p.Sink, p.Config.RelayWorkers, p.Config.WSSendBuffer, p.Logger,
		WithClock(p.Clock),
		WithBackoff(realtime.CappedExponential{
			Initial:     resubscribeInitial,
			Max:         resubscribeMax,
			MaxAttempts: resubscribeAttempts,
		}),
		WithGiveUp(func(error) { _ = p.Shutdowner.Shutdown(fx.ExitCode(1)) }),
	)
}
