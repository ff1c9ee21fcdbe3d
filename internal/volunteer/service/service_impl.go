package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/volunteer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("volunteer.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListVolunteerRequest) (domain.ListVolunteerResponse, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListVolunteerFilter{ActiveOnly: req.ActiveOnly})
	if err != nil {
		return domain.ListVolunteerResponse{}, err
	}

	volunteers := make([]domain.Volunteer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		volunteers = append(volunteers, *item)
	}

	return domain.ListVolunteerResponse{Volunteers: volunteers}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetVolunteerRequest) (domain.Volunteer, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Volunteer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Volunteer{}, err
	}
	if item == nil {
		return domain.Volunteer{}, domain.ErrNotFound
	}

	return *item, nil
}
