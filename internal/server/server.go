package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/confirmation"
	confirmationdomain "github.com/careops/mealtrack/internal/confirmation/domain"
	"github.com/careops/mealtrack/internal/delivery"
	deliverydomain "github.com/careops/mealtrack/internal/delivery/domain"
	"github.com/careops/mealtrack/internal/observability"
	obsmiddleware "github.com/careops/mealtrack/internal/observability/logger"
	obsmetrics "github.com/careops/mealtrack/internal/observability/metrics"
	obstracing "github.com/careops/mealtrack/internal/observability/tracing"
	"github.com/careops/mealtrack/internal/performance"
	performancedomain "github.com/careops/mealtrack/internal/performance/domain"
	"github.com/careops/mealtrack/internal/providers/sms"
	"github.com/careops/mealtrack/internal/ratelimit"
	"github.com/careops/mealtrack/internal/routing"
	routingdomain "github.com/careops/mealtrack/internal/routing/domain"
	"github.com/careops/mealtrack/internal/tracking"
	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
	"github.com/careops/mealtrack/internal/volunteer"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	volunteer.Module,
	sms.Module,
	ratelimit.Module,
	delivery.Module,
	tracking.Module,
	routing.Module,
	performance.Module,
	confirmation.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	deliverySvc     deliverydomain.Service
	trackingSvc     trackingdomain.Service
	routingSvc      routingdomain.Service
	performanceSvc  performancedomain.Service
	confirmationSvc confirmationdomain.Service
	volunteerSvc    volunteerdomain.Service
	routePlan       *config.RoutePlanHolder
	confirmLimiter  *ratelimit.ConfirmLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DeliverySvc     deliverydomain.Service
	TrackingSvc     trackingdomain.Service
	RoutingSvc      routingdomain.Service
	PerformanceSvc  performancedomain.Service
	ConfirmationSvc confirmationdomain.Service
	VolunteerSvc    volunteerdomain.Service
	RoutePlan       *config.RoutePlanHolder
	ConfirmLimiter  *ratelimit.ConfirmLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		deliverySvc:     p.DeliverySvc,
		trackingSvc:     p.TrackingSvc,
		routingSvc:      p.RoutingSvc,
		performanceSvc:  p.PerformanceSvc,
		confirmationSvc: p.ConfirmationSvc,
		volunteerSvc:    p.VolunteerSvc,
		routePlan:       p.RoutePlan,
		confirmLimiter:  p.ConfirmLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Deliveries --------
	api.POST("/deliveries", s.CreateDelivery)
	api.POST("/deliveries/batch", s.CreateDeliveryBatch)
	api.GET("/deliveries", s.ListDeliveries)
	api.GET("/deliveries/:id", s.GetDeliveryByID)
	api.POST("/deliveries/:id/assign", s.AssignVolunteer)
	api.POST("/deliveries/:id/start", s.StartDelivery)
	api.POST("/deliveries/:id/complete", s.CompleteDelivery)
	api.POST("/deliveries/:id/cancel", s.CancelDelivery)
	api.GET("/deliveries/:id/verify", s.VerifyCode)

	// -------- Tracking --------
	api.POST("/deliveries/:id/tracking", s.AddTrackingPoint)
	api.GET("/deliveries/:id/tracking", s.GetTrackingTrail)

	// -------- Routing --------
	api.POST("/routes/optimize", s.OptimizeRoute)

	// -------- Volunteers --------
	api.GET("/volunteers", s.ListVolunteers)
	api.GET("/volunteers/:id", s.GetVolunteerByID)
	api.GET("/volunteers/:id/deliveries", s.ListVolunteerDeliveries)
	api.GET("/volunteers/:id/performance", s.GetVolunteerPerformance)
	api.GET("/volunteers/performance", s.GetAllVolunteersPerformance)
}

// registerPublicRoutes exposes the unauthenticated confirm-receipt surface.
// Knowledge of the verification code, not the delivery id, is the
// authorization token here.
func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/deliveries/:id/qrcode", s.GetConfirmationArtifact)
	public.POST("/deliveries/:id/confirm", s.ConfirmRateLimit(), s.ConfirmReceipt)
}
