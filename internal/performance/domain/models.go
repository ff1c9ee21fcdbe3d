package domain

import (
	"context"
	"errors"
)

// Snapshot summarizes one volunteer's delivery record. Rates are whole
// percents; durations whole minutes.
type Snapshot struct {
	VolunteerID            string `json:"volunteer_id"`
	VolunteerName          string `json:"volunteer_name,omitempty"`
	VolunteerEmail         string `json:"volunteer_email,omitempty"`
	TotalDeliveries        int    `json:"total_deliveries"`
	CompletedDeliveries    int    `json:"completed_deliveries"`
	AvgDeliveryTimeMinutes int    `json:"avg_delivery_time_minutes"`
	OnTimeCount            int    `json:"on_time_count"`
	OnTimeRate             int    `json:"on_time_rate"`
}

type ComputeVolunteerRequest struct {
	VolunteerID string
}

type Service interface {
	ComputeVolunteer(context.Context, ComputeVolunteerRequest) (Snapshot, error)
	ComputeAll(context.Context) ([]Snapshot, error)
}

var (
	ErrInvalidVolunteer = errors.New("invalid_volunteer")
	ErrNotFound         = errors.New("not_found")
)
