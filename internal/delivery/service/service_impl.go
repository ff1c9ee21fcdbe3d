package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/clock"
	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/delivery/domain"
	obsmetrics "github.com/careops/mealtrack/internal/observability/metrics"
	"github.com/careops/mealtrack/internal/providers/sms"
	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	"github.com/careops/mealtrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var timeWindowPattern = regexp.MustCompile(`^\d{1,2}:\d{2}-\d{1,2}:\d{2}$`)

const maxCodeAttempts = 5

type Params struct {
	fx.In

	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	VolunteerRepo volunteerdomain.Repository
	TrackingRepo  trackingdomain.Repository
	Notifier      sms.Provider
	Metrics       *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	volunteerRepo volunteerdomain.Repository
	trackingRepo  trackingdomain.Repository
	notifier      sms.Provider
	metrics       *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("delivery.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		volunteerRepo: p.VolunteerRepo,
		trackingRepo:  p.TrackingRepo,
		notifier:      p.Notifier,
		metrics:       p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeliveryRequest) (domain.Delivery, error) {
	code, err := domain.GenerateCode()
	if err != nil {
		return domain.Delivery{}, err
	}
	delivery, err := s.create(ctx, req, code)
	if err != nil {
		return domain.Delivery{}, err
	}

	s.notify(ctx, delivery)
	s.metrics.RecordDeliveryCreated(ctx, "single")
	return delivery, nil
}

func (s *Service) CreateBatch(ctx context.Context, req domain.CreateDeliveryBatchRequest) (domain.CreateDeliveryBatchResponse, error) {
	if len(req.Deliveries) == 0 {
		return domain.CreateDeliveryBatchResponse{}, domain.ErrEmptyBatch
	}

	codes, err := domain.GenerateBatchCodes(len(req.Deliveries))
	if err != nil {
		return domain.CreateDeliveryBatchResponse{}, err
	}

	created := make([]domain.BatchItem, 0, len(req.Deliveries))
	for i, item := range req.Deliveries {
		delivery, err := s.create(ctx, item, codes[i])
		if err != nil {
			return domain.CreateDeliveryBatchResponse{}, fmt.Errorf("delivery %d: %w", i, err)
		}

		s.notify(ctx, delivery)
		s.metrics.RecordDeliveryCreated(ctx, "batch")
		created = append(created, domain.BatchItem{
			DeliveryNumber:   delivery.DeliveryNumber,
			VerificationCode: delivery.VerificationCode,
		})
	}

	return domain.CreateDeliveryBatchResponse{Created: created}, nil
}

func (s *Service) create(ctx context.Context, req domain.CreateDeliveryRequest, code string) (domain.Delivery, error) {
	name := strings.TrimSpace(req.RecipientName)
	if name == "" {
		return domain.Delivery{}, domain.ErrInvalidRecipient
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.Delivery{}, domain.ErrInvalidAddress
	}

	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.DeliveryDate), time.UTC)
	if err != nil {
		return domain.Delivery{}, domain.ErrInvalidDate
	}

	window := strings.TrimSpace(req.DeliveryTime)
	if window != "" && !timeWindowPattern.MatchString(window) {
		return domain.Delivery{}, domain.ErrInvalidTimeWindow
	}

	id := s.genID.Generate()
	number := domain.NewDeliveryNumber(id)

	// The verification code carries a unique index; on a collision with a
	// concurrently created delivery, draw a fresh code and retry.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		payload, err := json.Marshal(map[string]string{
			"deliveryNumber":   number,
			"verificationCode": code,
		})
		if err != nil {
			return domain.Delivery{}, err
		}

		now := s.clock.Now()
		delivery := domain.Delivery{
			ID:                  id,
			DeliveryNumber:      number,
			RecipientName:       name,
			RecipientPhone:      strings.TrimSpace(req.RecipientPhone),
			Address:             address,
			MealType:            strings.TrimSpace(req.MealType),
			DeliveryDate:        date,
			DeliveryTime:        window,
			SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
			Notes:               strings.TrimSpace(req.Notes),
			VerificationCode:    code,
			QRPayload:           string(payload),
			Status:              domain.StatusPending,
			Metadata:            datatypes.JSONMap{},
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		err = s.repo.Insert(ctx, s.db, &delivery)
		if err == nil {
			return delivery, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return domain.Delivery{}, err
		}

		code, err = domain.GenerateCode()
		if err != nil {
			return domain.Delivery{}, err
		}
	}

	return domain.Delivery{}, domain.ErrDuplicateCode
}

// notify is best-effort; a failed SMS never fails the delivery operation.
func (s *Service) notify(ctx context.Context, delivery domain.Delivery) {
	if s.notifier == nil || delivery.RecipientPhone == "" {
		return
	}

	err := s.notifier.SendDeliveryNotification(ctx, sms.Notification{
		To:               delivery.RecipientPhone,
		RecipientName:    delivery.RecipientName,
		DeliveryNumber:   delivery.DeliveryNumber,
		DeliveryDate:     delivery.DeliveryDate,
		DeliveryTime:     delivery.DeliveryTime,
		VerificationCode: delivery.VerificationCode,
		ConfirmURL:       fmt.Sprintf("%s/confirm-receipt/%s", s.cfg.BaseURL, delivery.ID),
	})
	if err != nil {
		s.metrics.RecordNotificationSent(ctx, "sms", "error")
		s.log.Warn("delivery notification failed",
			zap.String("delivery_number", delivery.DeliveryNumber),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordNotificationSent(ctx, "sms", "ok")
}

func (s *Service) List(ctx context.Context, req domain.ListDeliveryRequest) (domain.ListDeliveryResponse, error) {
	filter := domain.ListDeliveryFilter{
		VolunteerID: strings.TrimSpace(req.VolunteerID),
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.Status(status).Valid() {
			return domain.ListDeliveryResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = domain.Status(status)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListDeliveryResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(delivery *domain.Delivery) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        delivery.ID.String(),
			CreatedAt: delivery.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	resp := domain.ListDeliveryResponse{Deliveries: collect(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDeliveryRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}
	return s.mustFind(ctx, id)
}

func (s *Service) ListByVolunteer(ctx context.Context, req domain.ListByVolunteerRequest) (domain.ListDeliveryResponse, error) {
	volunteerID, err := snowflake.ParseString(strings.TrimSpace(req.VolunteerID))
	if err != nil || volunteerID == 0 {
		return domain.ListDeliveryResponse{}, domain.ErrInvalidVolunteer
	}

	filter := domain.ListDeliveryFilter{}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.Status(status).Valid() {
			return domain.ListDeliveryResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = domain.Status(status)
	}

	items, err := s.repo.ListByVolunteer(ctx, s.db, volunteerID, filter)
	if err != nil {
		return domain.ListDeliveryResponse{}, err
	}

	return domain.ListDeliveryResponse{Deliveries: collect(items)}, nil
}

func (s *Service) AssignVolunteer(ctx context.Context, req domain.AssignVolunteerRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}

	volunteerID, err := snowflake.ParseString(strings.TrimSpace(req.VolunteerID))
	if err != nil || volunteerID == 0 {
		return domain.Delivery{}, domain.ErrInvalidVolunteer
	}

	volunteer, err := s.volunteerRepo.FindByID(ctx, s.db, volunteerID)
	if err != nil {
		return domain.Delivery{}, err
	}
	if volunteer == nil {
		return domain.Delivery{}, domain.ErrInvalidVolunteer
	}
	if !volunteer.Active {
		return domain.Delivery{}, domain.ErrVolunteerInactive
	}

	rows, err := s.repo.Assign(ctx, s.db, id, volunteerID, s.clock.Now())
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		return domain.Delivery{}, s.transitionError(ctx, id)
	}

	s.metrics.RecordDeliveryTransition(ctx, string(domain.StatusAssigned))
	return s.mustFind(ctx, id)
}

func (s *Service) Start(ctx context.Context, req domain.StartDeliveryRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}

	rows, err := s.repo.MarkInTransit(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		return domain.Delivery{}, s.transitionError(ctx, id)
	}

	s.metrics.RecordDeliveryTransition(ctx, string(domain.StatusInTransit))
	return s.mustFind(ctx, id)
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteDeliveryRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}

	rows, err := s.repo.MarkDelivered(ctx, s.db, id, s.clock.Now(), strings.TrimSpace(req.Photo), strings.TrimSpace(req.RecipientSignature))
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		return domain.Delivery{}, s.transitionError(ctx, id)
	}

	s.metrics.RecordDeliveryTransition(ctx, string(domain.StatusDelivered))
	return s.mustFind(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelDeliveryRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}

	rows, err := s.repo.MarkCancelled(ctx, s.db, id, strings.TrimSpace(req.Reason), s.clock.Now())
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		return domain.Delivery{}, s.transitionError(ctx, id)
	}

	s.metrics.RecordDeliveryTransition(ctx, string(domain.StatusCancelled))
	return s.mustFind(ctx, id)
}

func (s *Service) Verify(ctx context.Context, req domain.VerifyCodeRequest) (domain.VerifyCodeResponse, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.VerifyCodeResponse{}, err
	}

	delivery, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.VerifyCodeResponse{}, err
	}

	return domain.VerifyCodeResponse{
		Valid: codeEqual(delivery.VerificationCode, req.Code),
	}, nil
}

func (s *Service) ConfirmReceipt(ctx context.Context, req domain.ConfirmReceiptRequest) (domain.Delivery, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Delivery{}, err
	}

	delivery, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Delivery{}, err
	}
	if delivery.Status == domain.StatusDelivered {
		s.metrics.RecordReceiptConfirm(ctx, "already_delivered")
		return domain.Delivery{}, domain.ErrAlreadyDelivered
	}
	if delivery.Status == domain.StatusCancelled {
		s.metrics.RecordReceiptConfirm(ctx, "cancelled")
		return domain.Delivery{}, domain.ErrInvalidTransition
	}
	if !codeEqual(delivery.VerificationCode, req.Code) {
		s.metrics.RecordReceiptConfirm(ctx, "code_mismatch")
		return domain.Delivery{}, domain.ErrCodeMismatch
	}

	rows, err := s.repo.ConfirmDelivered(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		// Lost the race against a concurrent confirm.
		s.metrics.RecordReceiptConfirm(ctx, "already_delivered")
		return domain.Delivery{}, domain.ErrAlreadyDelivered
	}

	if req.Latitude != nil && req.Longitude != nil {
		s.appendConfirmPoint(ctx, id, *req.Latitude, *req.Longitude)
	}

	s.metrics.RecordReceiptConfirm(ctx, "confirmed")
	s.metrics.RecordDeliveryTransition(ctx, string(domain.StatusDelivered))
	return s.mustFind(ctx, id)
}

// appendConfirmPoint is best-effort; confirmation has already committed.
func (s *Service) appendConfirmPoint(ctx context.Context, id snowflake.ID, lat, lon float64) {
	now := s.clock.Now()
	point := trackingdomain.TrackingPoint{
		ID:         s.genID.Generate(),
		DeliveryID: id,
		Latitude:   lat,
		Longitude:  lon,
		Timestamp:  now,
		CreatedAt:  now,
	}
	if err := s.trackingRepo.Append(ctx, s.db, &point); err != nil {
		s.log.Warn("confirm tracking point failed",
			zap.String("delivery_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (domain.Delivery, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Delivery{}, err
	}
	if item == nil {
		return domain.Delivery{}, domain.ErrNotFound
	}
	return *item, nil
}

// transitionError distinguishes a missing delivery from an illegal source
// status after a guarded update touched zero rows.
func (s *Service) transitionError(ctx context.Context, id snowflake.ID) error {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func codeEqual(expected, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(provided))) == 1
}

func collect(items []*domain.Delivery) []domain.Delivery {
	deliveries := make([]domain.Delivery, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		deliveries = append(deliveries, *item)
	}
	return deliveries
}
