package sms

import (
	"context"
	"time"
)

// Notification carries everything needed to render the delivery SMS.
type Notification struct {
	To               string
	RecipientName    string
	DeliveryNumber   string
	DeliveryDate     time.Time
	DeliveryTime     string
	VerificationCode string
	ConfirmURL       string
}

type Provider interface {
	SendDeliveryNotification(ctx context.Context, n Notification) error
}
