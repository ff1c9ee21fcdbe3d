package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/volunteer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, volunteer *domain.Volunteer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO volunteers (id, name, email, phone, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		volunteer.ID,
		volunteer.Name,
		volunteer.Email,
		volunteer.Phone,
		volunteer.Active,
		volunteer.CreatedAt,
		volunteer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Volunteer, error) {
	var volunteer domain.Volunteer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, active, created_at, updated_at
		 FROM volunteers WHERE id = ?`,
		id,
	).Scan(&volunteer).Error
	if err != nil {
		return nil, err
	}
	if volunteer.ID == 0 {
		return nil, nil
	}
	return &volunteer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListVolunteerFilter) ([]*domain.Volunteer, error) {
	var volunteers []*domain.Volunteer
	stmt := db.WithContext(ctx).Model(&domain.Volunteer{})
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	err := stmt.Order("name asc, id asc").Find(&volunteers).Error
	if err != nil {
		return nil, err
	}
	return volunteers, nil
}
