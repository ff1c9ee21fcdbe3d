package sms

import (
	"github.com/careops/mealtrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

// NewFromConfig builds the HTTP provider when credentials are present and
// falls back to the logging provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	provider, err := NewHTTP(Config{
		BaseURL:    cfg.SMS.BaseURL,
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		FromNumber: cfg.SMS.FromNumber,
	})
	if err != nil {
		log.Named("providers.sms").Info("sms credentials absent, using log provider")
		return NewLog(log)
	}
	return provider
}
