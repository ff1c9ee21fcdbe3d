package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository persists deliveries. Every status transition is a guarded
// conditional update returning the number of affected rows so the caller
// can detect lost races without locking.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, delivery *Delivery) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Delivery, error)
	List(ctx context.Context, db *gorm.DB, filter ListDeliveryFilter, page pagination.Pagination) ([]*Delivery, error)
	ListByVolunteer(ctx context.Context, db *gorm.DB, volunteerID snowflake.ID, filter ListDeliveryFilter) ([]*Delivery, error)

	Assign(ctx context.Context, db *gorm.DB, id, volunteerID snowflake.ID, now time.Time) (int64, error)
	MarkInTransit(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, photo, signature string) (int64, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error)
	ConfirmDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
}
