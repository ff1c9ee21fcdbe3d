package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/clock"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	obsmetrics "github.com/careops/mealtrack/internal/observability/metrics"
	"github.com/careops/mealtrack/internal/tracking/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	DeliveryRepo deliverydomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	deliveryRepo deliverydomain.Repository
	metrics      *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("tracking.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		deliveryRepo: p.DeliveryRepo,
		metrics:      p.Metrics,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendPointRequest) (domain.TrackingPoint, error) {
	deliveryID, err := parseID(req.DeliveryID)
	if err != nil {
		return domain.TrackingPoint{}, err
	}

	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return domain.TrackingPoint{}, domain.ErrInvalidCoordinates
	}

	delivery, err := s.deliveryRepo.FindByID(ctx, s.db, deliveryID)
	if err != nil {
		return domain.TrackingPoint{}, err
	}
	if delivery == nil {
		return domain.TrackingPoint{}, domain.ErrDeliveryNotFound
	}

	now := s.clock.Now()
	point := domain.TrackingPoint{
		ID:         s.genID.Generate(),
		DeliveryID: deliveryID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Speed:      req.Speed,
		Accuracy:   req.Accuracy,
		Timestamp:  now,
		CreatedAt:  now,
	}

	if err := s.repo.Append(ctx, s.db, &point); err != nil {
		return domain.TrackingPoint{}, err
	}

	s.metrics.RecordTrackingPoint(ctx)
	return point, nil
}

func (s *Service) Trail(ctx context.Context, req domain.TrailRequest) (domain.TrailResponse, error) {
	deliveryID, err := parseID(req.DeliveryID)
	if err != nil {
		return domain.TrailResponse{}, err
	}

	delivery, err := s.deliveryRepo.FindByID(ctx, s.db, deliveryID)
	if err != nil {
		return domain.TrailResponse{}, err
	}
	if delivery == nil {
		return domain.TrailResponse{}, domain.ErrDeliveryNotFound
	}

	items, err := s.repo.Trail(ctx, s.db, deliveryID)
	if err != nil {
		return domain.TrailResponse{}, err
	}

	points := make([]domain.TrackingPoint, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		points = append(points, *item)
	}

	return domain.TrailResponse{Points: points}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
