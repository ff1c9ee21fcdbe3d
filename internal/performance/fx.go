package performance

import (
	"github.com/careops/mealtrack/internal/performance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("performance.service",
	fx.Provide(service.New),
)
