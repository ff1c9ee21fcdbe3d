package domain

import (
	"context"
	"errors"
)

// Artifact is everything a recipient-facing surface needs to confirm a
// delivery: the confirm URL and its QR rendering.
type Artifact struct {
	DeliveryID     string `json:"delivery_id"`
	DeliveryNumber string `json:"delivery_number"`
	ConfirmURL     string `json:"confirm_url"`
	QRCodePNG      string `json:"qr_code_png"`
}

type ArtifactRequest struct {
	ID string
}

type Service interface {
	Artifact(context.Context, ArtifactRequest) (Artifact, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
