package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	confirmationdomain "github.com/careops/mealtrack/internal/confirmation/domain"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	"github.com/careops/mealtrack/internal/observability/logger"
)

const rateLimitReasonConfirmClient = "confirm-client"

func (s *Server) GetConfirmationArtifact(c *gin.Context) {
	resp, err := s.confirmationSvc.Artifact(c.Request.Context(), confirmationdomain.ArtifactRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmReceipt(c *gin.Context) {
	var req deliverydomain.ConfirmReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.deliverySvc.ConfirmReceipt(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ConfirmRateLimit throttles the public confirm endpoint per client IP.
// The endpoint is unauthenticated so this is the only brake on code
// guessing.
func (s *Server) ConfirmRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.confirmLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.confirmLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("confirm rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("confirm rate limit exceeded",
				zap.String("endpoint", endpoint),
				zap.String("client_ip", c.ClientIP()),
			)
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonConfirmClient)
			}
			c.Header("Retry-After", retryAfterSeconds(result.RetryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(wait time.Duration) string {
	seconds := int(wait / time.Second)
	if wait%time.Second != 0 || seconds < 1 {
		seconds++
	}
	return strconv.Itoa(seconds)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
