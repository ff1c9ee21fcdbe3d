package service

import (
	"context"
	"testing"

	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/routing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type providerStub struct {
	responses []domain.DirectionsResponse
	errs      []error
	calls     []domain.DirectionsRequest
}

func (p *providerStub) GetDirections(_ context.Context, req domain.DirectionsRequest) (domain.DirectionsResponse, error) {
	idx := len(p.calls)
	p.calls = append(p.calls, req)
	var err error
	if idx < len(p.errs) {
		err = p.errs[idx]
	}
	var resp domain.DirectionsResponse
	if idx < len(p.responses) {
		resp = p.responses[idx]
	}
	return resp, err
}

func okResponse(order []int, legs ...domain.Leg) domain.DirectionsResponse {
	return domain.DirectionsResponse{
		Status: "OK",
		Routes: []domain.Route{{
			Legs:             legs,
			OverviewPolyline: "encoded",
			WaypointOrder:    order,
		}},
	}
}

func newService(t *testing.T, provider domain.Provider, plan config.RoutePlanConfig) domain.Service {
	t.Helper()
	return New(Params{
		Log:      zaptest.NewLogger(t),
		Provider: provider,
		Holder:   config.NewStaticRoutePlanHolder(plan),
	})
}

func points(ids ...string) []domain.Point {
	out := make([]domain.Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Point{ID: id, Address: "台東市 " + id})
	}
	return out
}

var start = domain.Point{Address: "臺東縣消防局防災教育館"}

func TestOptimizeRouteEmpty(t *testing.T) {
	svc := newService(t, &providerStub{}, config.DefaultRoutePlanConfig())

	_, err := svc.OptimizeRoute(context.Background(), start, nil)
	assert.ErrorIs(t, err, domain.ErrNoPoints)
}

func TestOptimizeRouteSinglePoint(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			okResponse(nil, domain.Leg{DistanceMeters: 1500, DurationSeconds: 300}),
		},
	}
	svc := newService(t, provider, config.DefaultRoutePlanConfig())

	route, err := svc.OptimizeRoute(context.Background(), start, points("a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, route.Order)
	assert.Equal(t, int64(1500), route.TotalDistanceMeters)
	assert.Equal(t, int64(300), route.TotalDurationSeconds)

	// A single point is the destination, not a waypoint.
	require.Len(t, provider.calls, 1)
	assert.Empty(t, provider.calls[0].Waypoints)
	assert.False(t, provider.calls[0].OptimizeWaypoints)
	assert.Equal(t, "a", provider.calls[0].Destination.ID)
}

func TestOptimizeRoutePermutation(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			okResponse([]int{2, 0, 1},
				domain.Leg{DistanceMeters: 900, DurationSeconds: 120},
				domain.Leg{DistanceMeters: 1100, DurationSeconds: 180},
			),
		},
	}
	svc := newService(t, provider, config.DefaultRoutePlanConfig())

	route, err := svc.OptimizeRoute(context.Background(), start, points("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "b"}, route.Order)
	assert.Equal(t, int64(2000), route.TotalDistanceMeters)
	assert.Equal(t, int64(300), route.TotalDurationSeconds)
	assert.Equal(t, "encoded", route.Polyline)

	require.Len(t, provider.calls, 1)
	assert.True(t, provider.calls[0].OptimizeWaypoints)
	assert.Len(t, provider.calls[0].Waypoints, 3)
}

func TestOptimizeRouteBadPermutationKeepsInputOrder(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			okResponse([]int{5, 0}),
		},
	}
	svc := newService(t, provider, config.DefaultRoutePlanConfig())

	route, err := svc.OptimizeRoute(context.Background(), start, points("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, route.Order)
}

func TestOptimizeRouteRepeatedPermutationKeepsInputOrder(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			okResponse([]int{0, 0}),
		},
	}
	svc := newService(t, provider, config.DefaultRoutePlanConfig())

	// A repeated index would drop one stop and visit another twice.
	route, err := svc.OptimizeRoute(context.Background(), start, points("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, route.Order)
}

func TestOptimizeRouteProviderStatus(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{{Status: "ZERO_RESULTS"}},
	}
	svc := newService(t, provider, config.DefaultRoutePlanConfig())

	_, err := svc.OptimizeRoute(context.Background(), start, points("a"))
	var statusErr *domain.ProviderStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "ZERO_RESULTS", statusErr.Status)
}

func TestOptimizeMultipleRoutesChunks(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			okResponse([]int{1, 0}, domain.Leg{DistanceMeters: 500, DurationSeconds: 60}),
			okResponse(nil, domain.Leg{DistanceMeters: 700, DurationSeconds: 90}),
		},
	}
	plan := config.RoutePlanConfig{StartPoint: "台東市中山路全程", ChunkSize: 2, ChunkDelayMS: 0}
	svc := newService(t, provider, plan)

	routes, err := svc.OptimizeMultipleRoutes(context.Background(), start, points("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, []string{"b", "a"}, routes[0].Order)
	assert.False(t, routes[0].Degraded)
	assert.Equal(t, []string{"c"}, routes[1].Order)
}

func TestOptimizeMultipleRoutesDegradedChunk(t *testing.T) {
	provider := &providerStub{
		responses: []domain.DirectionsResponse{
			{Status: "OVER_QUERY_LIMIT"},
			okResponse(nil, domain.Leg{DistanceMeters: 700, DurationSeconds: 90}),
		},
	}
	plan := config.RoutePlanConfig{StartPoint: "台東市中山路全程", ChunkSize: 2, ChunkDelayMS: 0}
	svc := newService(t, provider, plan)

	routes, err := svc.OptimizeMultipleRoutes(context.Background(), start, points("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, routes, 2)

	// First chunk failed upstream; it keeps the original order and is flagged.
	assert.True(t, routes[0].Degraded)
	assert.Equal(t, []string{"a", "b"}, routes[0].Order)
	assert.Zero(t, routes[0].TotalDistanceMeters)

	assert.False(t, routes[1].Degraded)
	assert.Equal(t, []string{"c"}, routes[1].Order)
}

func TestOptimizeMultipleRoutesCancelled(t *testing.T) {
	provider := &providerStub{}
	plan := config.RoutePlanConfig{StartPoint: "台東市中山路全程", ChunkSize: 1, ChunkDelayMS: 50}
	svc := newService(t, provider, plan)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.OptimizeMultipleRoutes(ctx, start, points("a", "b"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "850 m", domain.FormatDistance(850))
	assert.Equal(t, "2.5 km", domain.FormatDistance(2500))
	assert.Equal(t, "45 分鐘", domain.FormatDuration(2700))
	assert.Equal(t, "1 小時 30 分鐘", domain.FormatDuration(5400))
}
