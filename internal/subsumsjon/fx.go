package subsumsjon

import (
	"github.com/openytelse/regelport/internal/subsumsjon/repository"
	"github.com/openytelse/regelport/internal/subsumsjon/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subsumsjon.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
