package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Volunteer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null" json:"email,omitempty"`
	Phone     string       `gorm:"not null" json:"phone,omitempty"`
	Active    bool         `gorm:"not null" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Volunteer) TableName() string {
	return "volunteers"
}
