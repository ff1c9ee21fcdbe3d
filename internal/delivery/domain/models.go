package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the delivery lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle permits moving from s to
// next. Delivered and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAssigned || next == StatusCancelled
	case StatusAssigned:
		return next == StatusInTransit || next == StatusCancelled
	case StatusInTransit:
		return next == StatusDelivered
	default:
		return false
	}
}

type Delivery struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	DeliveryNumber      string            `gorm:"uniqueIndex;not null" json:"delivery_number"`
	RecipientName       string            `gorm:"not null" json:"recipient_name"`
	RecipientPhone      string            `gorm:"not null" json:"recipient_phone,omitempty"`
	Address             string            `gorm:"not null" json:"address"`
	MealType            string            `gorm:"not null" json:"meal_type,omitempty"`
	DeliveryDate        time.Time         `gorm:"not null;index" json:"delivery_date"`
	DeliveryTime        string            `gorm:"not null" json:"delivery_time,omitempty"`
	SpecialInstructions string            `gorm:"not null" json:"special_instructions,omitempty"`
	Notes               string            `gorm:"not null" json:"notes,omitempty"`
	VerificationCode    string            `gorm:"uniqueIndex;not null" json:"-"`
	QRPayload           string            `gorm:"column:qr_payload;not null" json:"qr_payload,omitempty"`
	Status              Status            `gorm:"not null;index;default:pending" json:"status"`
	VolunteerID         *snowflake.ID     `gorm:"index" json:"volunteer_id,omitempty"`
	StartTime           *time.Time        `json:"start_time,omitempty"`
	DeliveredTime       *time.Time        `json:"delivered_time,omitempty"`
	Photo               string            `gorm:"not null" json:"photo,omitempty"`
	RecipientSignature  string            `gorm:"not null" json:"recipient_signature,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Delivery) TableName() string {
	return "meal_deliveries"
}

// NewDeliveryNumber derives the human-facing delivery number from the
// snowflake id, keeping numbers unique and roughly time-sortable.
func NewDeliveryNumber(id snowflake.ID) string {
	return "MD" + id.String()
}
