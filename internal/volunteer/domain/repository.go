package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, volunteer *Volunteer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Volunteer, error)
	List(ctx context.Context, db *gorm.DB, filter ListVolunteerFilter) ([]*Volunteer, error)
}
