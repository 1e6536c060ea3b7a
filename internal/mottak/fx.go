package mottak

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("mottak",
	fx.Provide(NyKjede),
	fx.Provide(NewSubsumsjonMottak),
	fx.Provide(NewBruktMottak),
	fx.Invoke(runConsumers),
)

func runConsumers(lc fx.Lifecycle, subsumsjoner *SubsumsjonMottak, brukte *BruktMottak) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go subsumsjoner.Run(ctx)
			go brukte.Run(ctx)

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
