package service

import (
	"context"
	"time"

	"github.com/careops/mealtrack/internal/config"
	obsmetrics "github.com/careops/mealtrack/internal/observability/metrics"
	"github.com/careops/mealtrack/internal/routing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Provider domain.Provider
	Holder   *config.RoutePlanHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	provider domain.Provider
	holder   *config.RoutePlanHolder
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("routing.service"),
		provider: p.Provider,
		holder:   p.Holder,
		metrics:  p.Metrics,
	}
}

// OptimizeRoute plans a round trip from start through every point and back,
// letting the provider pick the visiting order.
func (s *Service) OptimizeRoute(ctx context.Context, start domain.Point, points []domain.Point) (domain.OptimizedRoute, error) {
	if len(points) == 0 {
		return domain.OptimizedRoute{}, domain.ErrNoPoints
	}

	req := domain.DirectionsRequest{
		Origin:      start,
		Destination: start,
	}
	if len(points) == 1 {
		req.Destination = points[0]
	} else {
		req.Waypoints = points
		req.OptimizeWaypoints = true
	}

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.metrics.RecordRouteOptimization(ctx, "error")
		return domain.OptimizedRoute{}, err
	}
	if resp.Status != "OK" || len(resp.Routes) == 0 {
		s.metrics.RecordRouteOptimization(ctx, "error")
		return domain.OptimizedRoute{}, &domain.ProviderStatusError{Status: resp.Status}
	}

	route := resp.Routes[0]
	out := domain.OptimizedRoute{
		Order:    orderedIDs(points, route.WaypointOrder),
		Polyline: route.OverviewPolyline,
	}
	for _, leg := range route.Legs {
		out.TotalDistanceMeters += leg.DistanceMeters
		out.TotalDurationSeconds += leg.DurationSeconds
	}

	s.metrics.RecordRouteOptimization(ctx, "ok")
	return out, nil
}

// OptimizeMultipleRoutes splits points into consecutive chunks and optimizes
// each independently. A failing chunk degrades to its original order instead
// of failing the whole plan.
func (s *Service) OptimizeMultipleRoutes(ctx context.Context, start domain.Point, points []domain.Point) ([]domain.OptimizedRoute, error) {
	if len(points) == 0 {
		return nil, domain.ErrNoPoints
	}

	plan := s.holder.Get()
	chunkSize := plan.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 7
	}

	routes := make([]domain.OptimizedRoute, 0, (len(points)+chunkSize-1)/chunkSize)
	for offset := 0; offset < len(points); offset += chunkSize {
		if offset > 0 {
			if err := sleepCtx(ctx, plan.ChunkDelay()); err != nil {
				return nil, err
			}
		}

		end := offset + chunkSize
		if end > len(points) {
			end = len(points)
		}
		chunk := points[offset:end]

		route, err := s.OptimizeRoute(ctx, start, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("chunk optimization failed, keeping original order",
				zap.Int("offset", offset),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			route = domain.OptimizedRoute{
				Order:    orderedIDs(chunk, nil),
				Degraded: true,
			}
		}
		routes = append(routes, route)
	}

	return routes, nil
}

// orderedIDs applies the provider's waypoint permutation; a missing or
// malformed permutation keeps the input order.
func orderedIDs(points []domain.Point, waypointOrder []int) []string {
	ids := make([]string, 0, len(points))
	if len(waypointOrder) == len(points) {
		valid := true
		seen := make(map[int]struct{}, len(waypointOrder))
		for _, idx := range waypointOrder {
			if idx < 0 || idx >= len(points) {
				valid = false
				break
			}
			if _, dup := seen[idx]; dup {
				valid = false
				break
			}
			seen[idx] = struct{}{}
		}
		if valid {
			for _, idx := range waypointOrder {
				ids = append(ids, points[idx].ID)
			}
			return ids
		}
	}
	for _, p := range points {
		ids = append(ids, p.ID)
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
