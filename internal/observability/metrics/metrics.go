package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	deliveriesCreated   metric.Int64Counter
	deliveryTransitions metric.Int64Counter
	receiptConfirms     metric.Int64Counter
	trackingPoints      metric.Int64Counter
	routeOptimizations  metric.Int64Counter
	notificationsSent   metric.Int64Counter
	rateLimitDenied     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mealtrack"
	}
	meter := provider.Meter(name)

	deliveriesCreated, err := meter.Int64Counter("mealtrack_deliveries_created_total")
	if err != nil {
		return nil, err
	}
	deliveryTransitions, err := meter.Int64Counter("mealtrack_delivery_transitions_total")
	if err != nil {
		return nil, err
	}
	receiptConfirms, err := meter.Int64Counter("mealtrack_receipt_confirms_total")
	if err != nil {
		return nil, err
	}
	trackingPoints, err := meter.Int64Counter("mealtrack_tracking_points_total")
	if err != nil {
		return nil, err
	}
	routeOptimizations, err := meter.Int64Counter("mealtrack_route_optimizations_total")
	if err != nil {
		return nil, err
	}
	notificationsSent, err := meter.Int64Counter("mealtrack_notifications_sent_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("mealtrack_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		deliveriesCreated:   deliveriesCreated,
		deliveryTransitions: deliveryTransitions,
		receiptConfirms:     receiptConfirms,
		trackingPoints:      trackingPoints,
		routeOptimizations:  routeOptimizations,
		notificationsSent:   notificationsSent,
		rateLimitDenied:     rateLimitDenied,
	}, nil
}

// RecordDeliveryCreated increments delivery creation counts.
func (m *Metrics) RecordDeliveryCreated(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.deliveriesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDeliveryTransition increments status transition counts.
func (m *Metrics) RecordDeliveryTransition(ctx context.Context, toStatus string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("to_status", strings.TrimSpace(toStatus)))
	m.deliveryTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReceiptConfirm increments receipt confirmation counts.
func (m *Metrics) RecordReceiptConfirm(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.receiptConfirms.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTrackingPoint increments tracking point ingest counts.
func (m *Metrics) RecordTrackingPoint(ctx context.Context) {
	if m == nil {
		return
	}
	m.trackingPoints.Add(ctx, 1)
}

// RecordRouteOptimization increments route optimization counts.
func (m *Metrics) RecordRouteOptimization(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.routeOptimizations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationSent increments outbound notification counts.
func (m *Metrics) RecordNotificationSent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":      {},
	"to_status":   {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
	"provider":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
