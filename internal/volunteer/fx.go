package volunteer

import (
	"github.com/careops/mealtrack/internal/volunteer/repository"
	"github.com/careops/mealtrack/internal/volunteer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("volunteer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
