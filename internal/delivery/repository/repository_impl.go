package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/delivery/domain"
	pkgdb "github.com/careops/mealtrack/pkg/db"
	"github.com/careops/mealtrack/pkg/db/option"
	"github.com/careops/mealtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, delivery *domain.Delivery) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO meal_deliveries (
		    id, delivery_number, recipient_name, recipient_phone, address,
		    meal_type, delivery_date, delivery_time, special_instructions, notes,
		    verification_code, qr_payload, status, volunteer_id, start_time,
		    delivered_time, photo, recipient_signature, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID,
		delivery.DeliveryNumber,
		delivery.RecipientName,
		delivery.RecipientPhone,
		delivery.Address,
		delivery.MealType,
		delivery.DeliveryDate,
		delivery.DeliveryTime,
		delivery.SpecialInstructions,
		delivery.Notes,
		delivery.VerificationCode,
		delivery.QRPayload,
		delivery.Status,
		delivery.VolunteerID,
		delivery.StartTime,
		delivery.DeliveredTime,
		delivery.Photo,
		delivery.RecipientSignature,
		delivery.Metadata,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateCode
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("id = ?", id).
		Scan(&delivery).Error
	if err != nil {
		return nil, err
	}
	if delivery.ID == 0 {
		return nil, nil
	}
	return &delivery, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListDeliveryFilter, page pagination.Pagination) ([]*domain.Delivery, error) {
	var deliveries []*domain.Delivery
	stmt := db.WithContext(ctx).Model(&domain.Delivery{})
	stmt = applyFilter(stmt, filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repo) ListByVolunteer(ctx context.Context, db *gorm.DB, volunteerID snowflake.ID, filter domain.ListDeliveryFilter) ([]*domain.Delivery, error) {
	var deliveries []*domain.Delivery
	stmt := db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("volunteer_id = ?", volunteerID)
	stmt = applyFilter(stmt, filter)
	err := stmt.
		Order("delivery_date asc, id asc").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListDeliveryFilter) *gorm.DB {
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.VolunteerID != "" {
		stmt = stmt.Where("volunteer_id = ?", filter.VolunteerID)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("delivery_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("delivery_date <= ?", *filter.DateTo)
	}
	return stmt
}

func (r *repo) Assign(ctx context.Context, db *gorm.DB, id, volunteerID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meal_deliveries
		 SET status = ?, volunteer_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusAssigned, volunteerID, now, id, domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkInTransit(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meal_deliveries
		 SET status = ?, start_time = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusInTransit, now, now, id, domain.StatusAssigned,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time, photo, signature string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meal_deliveries
		 SET status = ?, delivered_time = ?, photo = ?, recipient_signature = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusDelivered, now, photo, signature, now, id, domain.StatusInTransit,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meal_deliveries
		 SET status = ?, notes = CASE WHEN ? = '' THEN notes ELSE ? END, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.StatusCancelled, reason, reason, now, id, domain.StatusPending, domain.StatusAssigned,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ConfirmDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE meal_deliveries
		 SET status = ?, delivered_time = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?, ?)`,
		domain.StatusDelivered, now, now, id,
		domain.StatusPending, domain.StatusAssigned, domain.StatusInTransit,
	)
	return res.RowsAffected, res.Error
}
