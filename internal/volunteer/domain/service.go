package domain

import (
	"context"
	"errors"
)

type ListVolunteerRequest struct {
	ActiveOnly bool
}

type ListVolunteerFilter struct {
	ActiveOnly bool
}

type ListVolunteerResponse struct {
	Volunteers []Volunteer `json:"volunteers"`
}

type GetVolunteerRequest struct {
	ID string
}

type Service interface {
	List(context.Context, ListVolunteerRequest) (ListVolunteerResponse, error)
	GetByID(context.Context, GetVolunteerRequest) (Volunteer, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
