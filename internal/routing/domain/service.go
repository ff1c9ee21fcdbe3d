package domain

import "context"

type Service interface {
	OptimizeRoute(ctx context.Context, start Point, points []Point) (OptimizedRoute, error)
	OptimizeMultipleRoutes(ctx context.Context, start Point, points []Point) ([]OptimizedRoute, error)
}
