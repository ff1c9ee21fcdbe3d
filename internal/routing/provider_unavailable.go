package routing

import (
	"context"

	"github.com/careops/mealtrack/internal/routing/domain"
)

// unavailableProvider stands in when no maps credentials are configured so
// the rest of the service can still start.
type unavailableProvider struct{}

func (unavailableProvider) GetDirections(context.Context, domain.DirectionsRequest) (domain.DirectionsResponse, error) {
	return domain.DirectionsResponse{}, &domain.ProviderStatusError{Status: "PROVIDER_NOT_CONFIGURED"}
}
