package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/mealtrack/internal/config"
	confirmationdomain "github.com/careops/mealtrack/internal/confirmation/domain"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	performancedomain "github.com/careops/mealtrack/internal/performance/domain"
	routingdomain "github.com/careops/mealtrack/internal/routing/domain"
	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
)

// -- Fakes --

type fakeDeliveryService struct {
	deliverydomain.Service

	createFn  func(context.Context, deliverydomain.CreateDeliveryRequest) (deliverydomain.Delivery, error)
	getFn     func(context.Context, deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error)
	verifyFn  func(context.Context, deliverydomain.VerifyCodeRequest) (deliverydomain.VerifyCodeResponse, error)
	confirmFn func(context.Context, deliverydomain.ConfirmReceiptRequest) (deliverydomain.Delivery, error)
}

func (f *fakeDeliveryService) Create(ctx context.Context, req deliverydomain.CreateDeliveryRequest) (deliverydomain.Delivery, error) {
	return f.createFn(ctx, req)
}

func (f *fakeDeliveryService) GetByID(ctx context.Context, req deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error) {
	return f.getFn(ctx, req)
}

func (f *fakeDeliveryService) Verify(ctx context.Context, req deliverydomain.VerifyCodeRequest) (deliverydomain.VerifyCodeResponse, error) {
	return f.verifyFn(ctx, req)
}

func (f *fakeDeliveryService) ConfirmReceipt(ctx context.Context, req deliverydomain.ConfirmReceiptRequest) (deliverydomain.Delivery, error) {
	return f.confirmFn(ctx, req)
}

type fakeRoutingService struct {
	routingdomain.Service

	optimizeFn func(context.Context, routingdomain.Point, []routingdomain.Point) (routingdomain.OptimizedRoute, error)
}

func (f *fakeRoutingService) OptimizeRoute(ctx context.Context, start routingdomain.Point, points []routingdomain.Point) (routingdomain.OptimizedRoute, error) {
	return f.optimizeFn(ctx, start, points)
}

type fakeTrackingService struct{ trackingdomain.Service }
type fakeVolunteerService struct{ volunteerdomain.Service }
type fakePerformanceService struct{ performancedomain.Service }
type fakeConfirmationService struct {
	confirmationdomain.Service

	artifactFn func(context.Context, confirmationdomain.ArtifactRequest) (confirmationdomain.Artifact, error)
}

func (f *fakeConfirmationService) Artifact(ctx context.Context, req confirmationdomain.ArtifactRequest) (confirmationdomain.Artifact, error) {
	return f.artifactFn(ctx, req)
}

type serverOverrides struct {
	delivery     *fakeDeliveryService
	routing      *fakeRoutingService
	confirmation *fakeConfirmationService
}

func newTestServer(t *testing.T, overrides serverOverrides) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	delivery := overrides.delivery
	if delivery == nil {
		delivery = &fakeDeliveryService{}
	}
	routing := overrides.routing
	if routing == nil {
		routing = &fakeRoutingService{}
	}
	confirmation := overrides.confirmation
	if confirmation == nil {
		confirmation = &fakeConfirmationService{}
	}

	NewServer(ServerParams{
		Gin:             r,
		Cfg:             config.Config{BaseURL: "https://meals.example.org"},
		DeliverySvc:     delivery,
		TrackingSvc:     &fakeTrackingService{},
		RoutingSvc:      routing,
		PerformanceSvc:  &fakePerformanceService{},
		ConfirmationSvc: confirmation,
		VolunteerSvc:    &fakeVolunteerService{},
		RoutePlan:       config.NewStaticRoutePlanHolder(config.DefaultRoutePlanConfig()),
	})

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// -- Tests --

func TestCreateDeliveryHandler(t *testing.T) {
	delivery := &fakeDeliveryService{
		createFn: func(_ context.Context, req deliverydomain.CreateDeliveryRequest) (deliverydomain.Delivery, error) {
			assert.Equal(t, "王小明", req.RecipientName)
			return deliverydomain.Delivery{
				DeliveryNumber: "MD100",
				RecipientName:  req.RecipientName,
				Status:         deliverydomain.StatusPending,
			}, nil
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodPost, "/api/v1/deliveries", gin.H{
		"recipient_name": "王小明",
		"address":        "台東市中華路一段100號",
		"delivery_date":  "2024-12-01",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data deliverydomain.Delivery `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "MD100", resp.Data.DeliveryNumber)
	assert.Equal(t, deliverydomain.StatusPending, resp.Data.Status)
}

func TestCreateDeliveryHandlerValidationError(t *testing.T) {
	delivery := &fakeDeliveryService{
		createFn: func(context.Context, deliverydomain.CreateDeliveryRequest) (deliverydomain.Delivery, error) {
			return deliverydomain.Delivery{}, deliverydomain.ErrInvalidRecipient
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodPost, "/api/v1/deliveries", gin.H{})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "invalid_recipient", resp.Error.Errors[0].Code)
	assert.Equal(t, "recipient", resp.Error.Errors[0].Field)
}

func TestGetDeliveryHandlerNotFound(t *testing.T) {
	delivery := &fakeDeliveryService{
		getFn: func(context.Context, deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error) {
			return deliverydomain.Delivery{}, deliverydomain.ErrNotFound
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodGet, "/api/v1/deliveries/12345", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestVerifyCodeHandler(t *testing.T) {
	delivery := &fakeDeliveryService{
		verifyFn: func(_ context.Context, req deliverydomain.VerifyCodeRequest) (deliverydomain.VerifyCodeResponse, error) {
			return deliverydomain.VerifyCodeResponse{Valid: req.Code == "123456"}, nil
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodGet, "/api/v1/deliveries/12345/verify?code=123456", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = doJSON(t, r, http.MethodGet, "/api/v1/deliveries/12345/verify?code=000000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}

func TestConfirmReceiptHandler(t *testing.T) {
	delivery := &fakeDeliveryService{
		confirmFn: func(_ context.Context, req deliverydomain.ConfirmReceiptRequest) (deliverydomain.Delivery, error) {
			switch req.Code {
			case "123456":
				require.NotNil(t, req.Latitude)
				return deliverydomain.Delivery{Status: deliverydomain.StatusDelivered}, nil
			case "111111":
				return deliverydomain.Delivery{}, deliverydomain.ErrAlreadyDelivered
			default:
				return deliverydomain.Delivery{}, deliverydomain.ErrCodeMismatch
			}
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodPost, "/public/deliveries/12345/confirm", gin.H{
		"verification_code": "123456",
		"latitude":          22.7583,
		"longitude":         121.1444,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/public/deliveries/12345/confirm", gin.H{
		"verification_code": "111111",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "already_delivered", resp.Error.Type)

	w = doJSON(t, r, http.MethodPost, "/public/deliveries/12345/confirm", gin.H{
		"verification_code": "999999",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "code_mismatch", resp.Error.Type)
}

func TestConfirmationArtifactHandler(t *testing.T) {
	confirmation := &fakeConfirmationService{
		artifactFn: func(_ context.Context, req confirmationdomain.ArtifactRequest) (confirmationdomain.Artifact, error) {
			return confirmationdomain.Artifact{
				DeliveryID: req.ID,
				ConfirmURL: "https://meals.example.org/confirm-receipt/" + req.ID,
				QRCodePNG:  "aGVsbG8=",
			}, nil
		},
	}
	r := newTestServer(t, serverOverrides{confirmation: confirmation})

	w := doJSON(t, r, http.MethodGet, "/public/deliveries/12345/qrcode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "confirm-receipt/12345")
}

func TestOptimizeRouteHandler(t *testing.T) {
	delivery := &fakeDeliveryService{
		getFn: func(_ context.Context, req deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error) {
			if req.ID == "3" {
				return deliverydomain.Delivery{}, deliverydomain.ErrNotFound
			}
			return deliverydomain.Delivery{Address: "台東市中華路一段100號"}, nil
		},
	}
	routing := &fakeRoutingService{
		optimizeFn: func(_ context.Context, start routingdomain.Point, points []routingdomain.Point) (routingdomain.OptimizedRoute, error) {
			assert.Equal(t, config.DefaultRoutePlanConfig().StartPoint, start.Address)
			assert.Len(t, points, 2)
			return routingdomain.OptimizedRoute{
				Order:                []string{"0", "0"},
				TotalDistanceMeters:  2500,
				TotalDurationSeconds: 600,
			}, nil
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery, routing: routing})

	w := doJSON(t, r, http.MethodPost, "/api/v1/routes/optimize", gin.H{
		"delivery_ids": []string{"1", "2", "3"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"distance_text":"2.5 km"`)
	assert.Contains(t, w.Body.String(), `"duration_text":"10 分鐘"`)
}

func TestOptimizeRouteHandlerNoResolvableDeliveries(t *testing.T) {
	delivery := &fakeDeliveryService{
		getFn: func(context.Context, deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error) {
			return deliverydomain.Delivery{}, deliverydomain.ErrNotFound
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery})

	w := doJSON(t, r, http.MethodPost, "/api/v1/routes/optimize", gin.H{
		"delivery_ids": []string{"1"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptimizeRouteHandlerEmpty(t *testing.T) {
	r := newTestServer(t, serverOverrides{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/routes/optimize", gin.H{"delivery_ids": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpstreamErrorMapsToBadGateway(t *testing.T) {
	delivery := &fakeDeliveryService{
		getFn: func(context.Context, deliverydomain.GetDeliveryRequest) (deliverydomain.Delivery, error) {
			return deliverydomain.Delivery{Address: "台東市中華路一段100號"}, nil
		},
	}
	routing := &fakeRoutingService{
		optimizeFn: func(context.Context, routingdomain.Point, []routingdomain.Point) (routingdomain.OptimizedRoute, error) {
			return routingdomain.OptimizedRoute{}, &routingdomain.ProviderStatusError{Status: "OVER_QUERY_LIMIT"}
		},
	}
	r := newTestServer(t, serverOverrides{delivery: delivery, routing: routing})

	w := doJSON(t, r, http.MethodPost, "/api/v1/routes/optimize", gin.H{
		"delivery_ids": []string{"1"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "upstream_error", resp.Error.Type)
}
