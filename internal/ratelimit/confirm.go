package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/careops/mealtrack/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyConfirmClient = "confirm:client:%s"

// ConfirmLimiter guards the public confirm-receipt endpoint. A nil limiter
// (rate limiting disabled) allows everything.
type ConfirmLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewConfirmLimiter(cfg config.Config) (*ConfirmLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ConfirmRate <= 0 || limitCfg.ConfirmBurst <= 0 {
		return nil, errors.New("confirm rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ConfirmLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.ConfirmRate,
		burst:  limitCfg.ConfirmBurst,
	}, nil
}

func (l *ConfirmLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for the calling client, typically keyed by
// remote IP.
func (l *ConfirmLimiter) Allow(ctx context.Context, clientKey string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyConfirmClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}
