package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/confirmation/domain"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	"github.com/skip2/go-qrcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const qrSize = 256

type Params struct {
	fx.In

	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	DeliveryRepo deliverydomain.Repository
}

type Service struct {
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	deliveryRepo deliverydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("confirmation.service"),
		deliveryRepo: p.DeliveryRepo,
	}
}

func (s *Service) Artifact(ctx context.Context, req domain.ArtifactRequest) (domain.Artifact, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Artifact{}, domain.ErrInvalidID
	}

	delivery, err := s.deliveryRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Artifact{}, err
	}
	if delivery == nil {
		return domain.Artifact{}, domain.ErrNotFound
	}

	confirmURL := fmt.Sprintf("%s/confirm-receipt/%s", s.cfg.BaseURL, delivery.ID)
	png, err := qrcode.Encode(confirmURL, qrcode.Medium, qrSize)
	if err != nil {
		return domain.Artifact{}, err
	}

	return domain.Artifact{
		DeliveryID:     delivery.ID.String(),
		DeliveryNumber: delivery.DeliveryNumber,
		ConfirmURL:     confirmURL,
		QRCodePNG:      base64.StdEncoding.EncodeToString(png),
	}, nil
}
