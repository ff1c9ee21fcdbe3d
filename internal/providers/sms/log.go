package sms

import (
	"context"

	"go.uber.org/zap"
)

// LogProvider records outbound notifications instead of sending them. Used
// when SMS credentials are not configured.
type LogProvider struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("sms.log")}
}

func (p *LogProvider) SendDeliveryNotification(_ context.Context, n Notification) error {
	p.log.Info("simulated delivery notification",
		zap.String("to", FormatPhoneNumber(n.To)),
		zap.String("delivery_number", n.DeliveryNumber),
		zap.String("confirm_url", n.ConfirmURL),
	)
	return nil
}
