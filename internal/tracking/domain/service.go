package domain

import (
	"context"
	"errors"
)

type AppendPointRequest struct {
	DeliveryID string
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Speed      *float64 `json:"speed"`
	Accuracy   *float64 `json:"accuracy"`
}

type TrailRequest struct {
	DeliveryID string
}

type TrailResponse struct {
	Points []TrackingPoint `json:"points"`
}

type Service interface {
	Append(context.Context, AppendPointRequest) (TrackingPoint, error)
	Trail(context.Context, TrailRequest) (TrailResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrDeliveryNotFound   = errors.New("delivery_not_found")
	ErrInvalidCoordinates = errors.New("invalid_coordinates")
)
