package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/tracking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, point *domain.TrackingPoint) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO delivery_tracking (id, delivery_id, latitude, longitude, speed, accuracy, captured_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		point.ID,
		point.DeliveryID,
		point.Latitude,
		point.Longitude,
		point.Speed,
		point.Accuracy,
		point.Timestamp,
		point.CreatedAt,
	).Error
}

func (r *repo) Trail(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) ([]*domain.TrackingPoint, error) {
	var points []*domain.TrackingPoint
	err := db.WithContext(ctx).
		Model(&domain.TrackingPoint{}).
		Where("delivery_id = ?", deliveryID).
		Order("captured_at asc, id asc").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}
