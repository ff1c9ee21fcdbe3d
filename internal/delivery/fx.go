package delivery

import (
	"github.com/careops/mealtrack/internal/delivery/repository"
	"github.com/careops/mealtrack/internal/delivery/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
