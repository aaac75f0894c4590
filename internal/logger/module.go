package logger

import "go.uber.org/fx"

// Module wires slog logger for dependency injection and uses it for fx's own events.
var Module = fx.Options(
	fx.Provide(New),
	fx.WithLogger(FxLogger),
)
