package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	confirmationdomain "github.com/careops/mealtrack/internal/confirmation/domain"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	performancedomain "github.com/careops/mealtrack/internal/performance/domain"
	routingdomain "github.com/careops/mealtrack/internal/routing/domain"
	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, deliverydomain.ErrAlreadyDelivered):
		return http.StatusConflict, errorPayload{
			Type:    "already_delivered",
			Message: "delivery already confirmed",
		}
	case errors.Is(err, deliverydomain.ErrCodeMismatch):
		return http.StatusConflict, errorPayload{
			Type:    "code_mismatch",
			Message: "verification code mismatch",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, deliverydomain.ErrInvalidTransition),
		errors.Is(err, deliverydomain.ErrDuplicateCode):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isUpstreamError(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "upstream provider error",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isDeliveryValidationError(err),
		isTrackingValidationError(err),
		isRoutingValidationError(err),
		errors.Is(err, volunteerdomain.ErrInvalidID),
		errors.Is(err, performancedomain.ErrInvalidVolunteer),
		errors.Is(err, confirmationdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isDeliveryValidationError(err error) bool {
	switch {
	case errors.Is(err, deliverydomain.ErrInvalidID),
		errors.Is(err, deliverydomain.ErrInvalidRecipient),
		errors.Is(err, deliverydomain.ErrInvalidPhone),
		errors.Is(err, deliverydomain.ErrInvalidAddress),
		errors.Is(err, deliverydomain.ErrInvalidDate),
		errors.Is(err, deliverydomain.ErrInvalidTimeWindow),
		errors.Is(err, deliverydomain.ErrInvalidStatus),
		errors.Is(err, deliverydomain.ErrInvalidVolunteer),
		errors.Is(err, deliverydomain.ErrEmptyBatch),
		errors.Is(err, deliverydomain.ErrVolunteerInactive):
		return true
	default:
		return false
	}
}

func isTrackingValidationError(err error) bool {
	switch {
	case errors.Is(err, trackingdomain.ErrInvalidID),
		errors.Is(err, trackingdomain.ErrInvalidCoordinates):
		return true
	default:
		return false
	}
}

func isRoutingValidationError(err error) bool {
	return errors.Is(err, routingdomain.ErrNoPoints)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, deliverydomain.ErrNotFound),
		errors.Is(err, trackingdomain.ErrDeliveryNotFound),
		errors.Is(err, volunteerdomain.ErrNotFound),
		errors.Is(err, performancedomain.ErrNotFound),
		errors.Is(err, confirmationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isUpstreamError(err error) bool {
	var statusErr *routingdomain.ProviderStatusError
	return errors.As(err, &statusErr)
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "empty_batch":
		return "batch must contain at least one delivery"
	case "no_points":
		return "at least one delivery point is required"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog gives the request logger a stable (type, code) pair
// without rendering the full response payload.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status == http.StatusBadGateway:
		return "upstream_error", payload.Type
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Type
	default:
		return "client_error", payload.Type
	}
}
