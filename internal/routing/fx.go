package routing

import (
	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/routing/directions"
	"github.com/careops/mealtrack/internal/routing/domain"
	"github.com/careops/mealtrack/internal/routing/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("routing.service",
	fx.Provide(provideProvider),
	fx.Provide(service.New),
)

func provideProvider(cfg config.Config, log *zap.Logger) (domain.Provider, error) {
	client, err := directions.NewClient(cfg.Maps)
	if err != nil {
		log.Named("routing").Warn("maps api key absent, route optimization disabled", zap.Error(err))
		return unavailableProvider{}, nil
	}
	return client, nil
}
