package app

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// Params are the fx dependencies of an App. Options are collected from the
// "kwargs.options" group so modules can contribute providers and layered parameters.
type Params struct {
	fx.In

	Config  *Config
	Logger  *slog.Logger
	Options []Option `group:"kwargs.options"`
}

// Module provides Config (from the environment), a logger and the App
var Module = fx.Module("kwargs",
	fx.Provide(
		LoadConfig,
		NewLogger,
		NewFromParams,
	),
	fx.Invoke(func(lc fx.Lifecycle, a *App) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				a.logger.Info("kwargs app ready", slog.Int("routes", len(a.Routes())))
				return nil
			},
		})
	}),
)

// NewFromParams creates an App from fx-injected dependencies
func NewFromParams(p Params) *App {
	return New(p.Config, p.Logger, p.Options...)
}

// AsOption registers an Option in the group consumed by Module
func AsOption(opt Option) fx.Option {
	return fx.Provide(fx.Annotate(
		func() Option { return opt },
		fx.ResultTags(`group:"kwargs.options"`),
	))
}
