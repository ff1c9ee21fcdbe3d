package domain

import (
	"context"
	"errors"
	"time"

	"github.com/careops/mealtrack/pkg/db/pagination"
)

type CreateDeliveryRequest struct {
	RecipientName       string `json:"recipient_name"`
	RecipientPhone      string `json:"recipient_phone"`
	Address             string `json:"address"`
	MealType            string `json:"meal_type"`
	DeliveryDate        string `json:"delivery_date"`
	DeliveryTime        string `json:"delivery_time"`
	SpecialInstructions string `json:"special_instructions"`
	Notes               string `json:"notes"`
}

type CreateDeliveryBatchRequest struct {
	Deliveries []CreateDeliveryRequest `json:"deliveries"`
}

type BatchItem struct {
	DeliveryNumber   string `json:"delivery_number"`
	VerificationCode string `json:"verification_code"`
}

type CreateDeliveryBatchResponse struct {
	Created []BatchItem `json:"created"`
}

type ListDeliveryRequest struct {
	PageToken   string
	PageSize    int32
	Status      string
	VolunteerID string
	DateFrom    *time.Time
	DateTo      *time.Time
}

type ListDeliveryFilter struct {
	Status      Status
	VolunteerID string
	DateFrom    *time.Time
	DateTo      *time.Time
}

type ListDeliveryResponse struct {
	pagination.PageInfo
	Deliveries []Delivery `json:"deliveries"`
}

type GetDeliveryRequest struct {
	ID string
}

type ListByVolunteerRequest struct {
	VolunteerID string
	Status      string
}

type AssignVolunteerRequest struct {
	ID          string
	VolunteerID string `json:"volunteer_id"`
}

type StartDeliveryRequest struct {
	ID string
}

type CompleteDeliveryRequest struct {
	ID                 string
	Photo              string `json:"photo"`
	RecipientSignature string `json:"recipient_signature"`
}

type CancelDeliveryRequest struct {
	ID     string
	Reason string `json:"reason"`
}

type VerifyCodeRequest struct {
	ID   string
	Code string
}

type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}

type ConfirmReceiptRequest struct {
	ID        string
	Code      string   `json:"verification_code"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type Service interface {
	Create(context.Context, CreateDeliveryRequest) (Delivery, error)
	CreateBatch(context.Context, CreateDeliveryBatchRequest) (CreateDeliveryBatchResponse, error)
	List(context.Context, ListDeliveryRequest) (ListDeliveryResponse, error)
	GetByID(context.Context, GetDeliveryRequest) (Delivery, error)
	ListByVolunteer(context.Context, ListByVolunteerRequest) (ListDeliveryResponse, error)
	AssignVolunteer(context.Context, AssignVolunteerRequest) (Delivery, error)
	Start(context.Context, StartDeliveryRequest) (Delivery, error)
	Complete(context.Context, CompleteDeliveryRequest) (Delivery, error)
	Cancel(context.Context, CancelDeliveryRequest) (Delivery, error)
	Verify(context.Context, VerifyCodeRequest) (VerifyCodeResponse, error)
	ConfirmReceipt(context.Context, ConfirmReceiptRequest) (Delivery, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidRecipient  = errors.New("invalid_recipient")
	ErrInvalidPhone      = errors.New("invalid_phone")
	ErrInvalidAddress    = errors.New("invalid_address")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrInvalidTimeWindow = errors.New("invalid_time_window")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidVolunteer  = errors.New("invalid_volunteer")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrAlreadyDelivered  = errors.New("already_delivered")
	ErrCodeMismatch      = errors.New("code_mismatch")
	ErrEmptyBatch        = errors.New("empty_batch")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrVolunteerInactive = errors.New("volunteer_inactive")
)
