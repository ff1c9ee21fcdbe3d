package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	routingdomain "github.com/careops/mealtrack/internal/routing/domain"
)

type optimizeRouteRequest struct {
	StartPoint  string   `json:"start_point"`
	DeliveryIDs []string `json:"delivery_ids"`
}

type optimizedRouteView struct {
	Order                []string `json:"order"`
	TotalDistanceMeters  int64    `json:"total_distance_meters"`
	TotalDurationSeconds int64    `json:"total_duration_seconds"`
	DistanceText         string   `json:"distance_text"`
	DurationText         string   `json:"duration_text"`
	Polyline             string   `json:"polyline,omitempty"`
	Degraded             bool     `json:"degraded,omitempty"`
}

type optimizeRouteResponse struct {
	StartPoint string               `json:"start_point"`
	Routes     []optimizedRouteView `json:"routes"`
}

// OptimizeRoute resolves the requested deliveries to waypoints and asks
// the directions provider for the best visiting order. Requests larger
// than the configured chunk size are split into multiple routes.
func (s *Server) OptimizeRoute(c *gin.Context) {
	var req optimizeRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.DeliveryIDs) == 0 {
		AbortWithError(c, routingdomain.ErrNoPoints)
		return
	}

	ctx := c.Request.Context()

	points := make([]routingdomain.Point, 0, len(req.DeliveryIDs))
	for _, id := range req.DeliveryIDs {
		delivery, err := s.deliverySvc.GetByID(ctx, deliverydomain.GetDeliveryRequest{ID: strings.TrimSpace(id)})
		if err != nil {
			if errors.Is(err, deliverydomain.ErrNotFound) || errors.Is(err, deliverydomain.ErrInvalidID) {
				continue
			}
			AbortWithError(c, err)
			return
		}
		points = append(points, routingdomain.Point{
			ID:      delivery.ID.String(),
			Address: delivery.Address,
		})
	}
	if len(points) == 0 {
		AbortWithError(c, deliverydomain.ErrNotFound)
		return
	}

	plan := s.routePlan.Get()
	startPoint := strings.TrimSpace(req.StartPoint)
	if startPoint == "" {
		startPoint = plan.StartPoint
	}
	start := routingdomain.Point{Address: startPoint}

	var routes []routingdomain.OptimizedRoute
	if len(points) > plan.ChunkSize {
		chunked, err := s.routingSvc.OptimizeMultipleRoutes(ctx, start, points)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		routes = chunked
	} else {
		route, err := s.routingSvc.OptimizeRoute(ctx, start, points)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		routes = []routingdomain.OptimizedRoute{route}
	}

	resp := optimizeRouteResponse{
		StartPoint: startPoint,
		Routes:     make([]optimizedRouteView, 0, len(routes)),
	}
	for _, route := range routes {
		resp.Routes = append(resp.Routes, optimizedRouteView{
			Order:                route.Order,
			TotalDistanceMeters:  route.TotalDistanceMeters,
			TotalDurationSeconds: route.TotalDurationSeconds,
			DistanceText:         routingdomain.FormatDistance(route.TotalDistanceMeters),
			DurationText:         routingdomain.FormatDuration(route.TotalDurationSeconds),
			Polyline:             route.Polyline,
			Degraded:             route.Degraded,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
