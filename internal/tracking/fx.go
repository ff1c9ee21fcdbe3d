package tracking

import (
	"github.com/careops/mealtrack/internal/tracking/repository"
	"github.com/careops/mealtrack/internal/tracking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tracking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
