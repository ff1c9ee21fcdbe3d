package domain

import (
	"context"
	"errors"
	"fmt"
)

// Point is a routing stop. Address takes precedence over coordinates when
// both are set, matching what directions providers accept.
type Point struct {
	ID        string  `json:"id"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Location renders the point the way the directions API expects.
func (p Point) Location() string {
	if p.Address != "" {
		return p.Address
	}
	return fmt.Sprintf("%f,%f", p.Latitude, p.Longitude)
}

type DirectionsRequest struct {
	Origin            Point
	Destination       Point
	Waypoints         []Point
	OptimizeWaypoints bool
}

type Leg struct {
	DistanceMeters  int64
	DurationSeconds int64
}

type Route struct {
	Legs             []Leg
	OverviewPolyline string
	WaypointOrder    []int
}

type DirectionsResponse struct {
	Status string
	Routes []Route
}

// Provider fetches directions from an external service.
type Provider interface {
	GetDirections(ctx context.Context, req DirectionsRequest) (DirectionsResponse, error)
}

// OptimizedRoute is the result of a single optimization pass.
type OptimizedRoute struct {
	Order                []string `json:"order"`
	TotalDistanceMeters  int64    `json:"total_distance_meters"`
	TotalDurationSeconds int64    `json:"total_duration_seconds"`
	Polyline             string   `json:"polyline,omitempty"`
	Degraded             bool     `json:"degraded,omitempty"`
}

var ErrNoPoints = errors.New("no_points")

// ProviderStatusError reports a non-OK directions response.
type ProviderStatusError struct {
	Status string
}

func (e *ProviderStatusError) Error() string {
	return fmt.Sprintf("directions provider returned status %q", e.Status)
}
