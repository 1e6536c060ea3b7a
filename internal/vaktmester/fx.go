package vaktmester

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("vaktmester",
	fx.Provide(New),
	fx.Invoke(runVaktmester),
)

func runVaktmester(lc fx.Lifecycle, v *Vaktmester) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go v.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
