package behov

import (
	"github.com/openytelse/regelport/internal/behov/repository"
	"github.com/openytelse/regelport/internal/behov/service"
	"go.uber.org/fx"
)

var Module = fx.Module("behov.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewProducer),
	fx.Provide(service.New),
)
