package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is append-only; points are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, db *gorm.DB, point *TrackingPoint) error
	Trail(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) ([]*TrackingPoint, error)
}
