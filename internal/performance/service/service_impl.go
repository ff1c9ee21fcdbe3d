package service

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	"github.com/careops/mealtrack/internal/performance/domain"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var windowPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	DeliveryRepo  deliverydomain.Repository
	VolunteerRepo volunteerdomain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	deliveryRepo  deliverydomain.Repository
	volunteerRepo volunteerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("performance.service"),
		deliveryRepo:  p.DeliveryRepo,
		volunteerRepo: p.VolunteerRepo,
	}
}

func (s *Service) ComputeVolunteer(ctx context.Context, req domain.ComputeVolunteerRequest) (domain.Snapshot, error) {
	volunteerID, err := snowflake.ParseString(strings.TrimSpace(req.VolunteerID))
	if err != nil || volunteerID == 0 {
		return domain.Snapshot{}, domain.ErrInvalidVolunteer
	}

	volunteer, err := s.volunteerRepo.FindByID(ctx, s.db, volunteerID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if volunteer == nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}

	return s.compute(ctx, volunteer)
}

func (s *Service) ComputeAll(ctx context.Context) ([]domain.Snapshot, error) {
	volunteers, err := s.volunteerRepo.List(ctx, s.db, volunteerdomain.ListVolunteerFilter{})
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.Snapshot, 0, len(volunteers))
	for _, volunteer := range volunteers {
		if volunteer == nil {
			continue
		}
		snapshot, err := s.compute(ctx, volunteer)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (s *Service) compute(ctx context.Context, volunteer *volunteerdomain.Volunteer) (domain.Snapshot, error) {
	deliveries, err := s.deliveryRepo.ListByVolunteer(ctx, s.db, volunteer.ID, deliverydomain.ListDeliveryFilter{})
	if err != nil {
		return domain.Snapshot{}, err
	}

	snapshot := domain.Snapshot{
		VolunteerID:    volunteer.ID.String(),
		VolunteerName:  volunteer.Name,
		VolunteerEmail: volunteer.Email,
	}

	var totalMinutes float64
	var timedCompletions int
	var windowedCompletions int

	for _, delivery := range deliveries {
		if delivery == nil {
			continue
		}
		snapshot.TotalDeliveries++

		if delivery.Status != deliverydomain.StatusDelivered || delivery.DeliveredTime == nil {
			continue
		}
		snapshot.CompletedDeliveries++

		if delivery.StartTime != nil && !delivery.DeliveredTime.Before(*delivery.StartTime) {
			totalMinutes += delivery.DeliveredTime.Sub(*delivery.StartTime).Minutes()
			timedCompletions++
		}

		deadline, ok := windowDeadline(delivery.DeliveryDate, delivery.DeliveryTime)
		if !ok {
			continue
		}
		windowedCompletions++
		if !delivery.DeliveredTime.After(deadline) {
			snapshot.OnTimeCount++
		}
	}

	if timedCompletions > 0 {
		snapshot.AvgDeliveryTimeMinutes = int(math.Round(totalMinutes / float64(timedCompletions)))
	}
	if windowedCompletions > 0 {
		snapshot.OnTimeRate = int(math.Round(float64(snapshot.OnTimeCount) / float64(windowedCompletions) * 100))
	}

	return snapshot, nil
}

// windowDeadline resolves the scheduled date plus the end of the HH:MM-HH:MM
// window. Unparseable windows are excluded from the on-time calculation.
func windowDeadline(date time.Time, window string) (time.Time, bool) {
	match := windowPattern.FindStringSubmatch(strings.TrimSpace(window))
	if match == nil {
		return time.Time{}, false
	}

	hour, _ := strconv.Atoi(match[3])
	minute, _ := strconv.Atoi(match[4])
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC), true
}
