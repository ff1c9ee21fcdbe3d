package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TrackingPoint struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	DeliveryID snowflake.ID `gorm:"not null;index" json:"delivery_id"`
	Latitude   float64      `gorm:"not null" json:"latitude"`
	Longitude  float64      `gorm:"not null" json:"longitude"`
	Speed      *float64     `json:"speed,omitempty"`
	Accuracy   *float64     `json:"accuracy,omitempty"`
	Timestamp  time.Time    `gorm:"column:captured_at;not null" json:"timestamp"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TrackingPoint) TableName() string {
	return "delivery_tracking"
}
