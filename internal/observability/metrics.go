package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go-session-auth-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "session-auth-service"

type appMetrics struct {
	authOps        metric.Int64Counter
	sessionEvents  metric.Int64Counter
	csrfChecks     metric.Int64Counter
	attemptChecks  metric.Int64Counter
	rateLimits     metric.Int64Counter
	repositoryOps  metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *appMetrics
)

func instruments() *appMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		m := &appMetrics{}
		var err error
		if m.authOps, err = meter.Int64Counter("auth.operations"); err != nil {
			return
		}
		if m.sessionEvents, err = meter.Int64Counter("auth.session.events"); err != nil {
			return
		}
		if m.csrfChecks, err = meter.Int64Counter("auth.csrf.validations"); err != nil {
			return
		}
		if m.attemptChecks, err = meter.Int64Counter("auth.attempt_tracker.decisions"); err != nil {
			return
		}
		if m.rateLimits, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
			return
		}
		if m.repositoryOps, err = meter.Int64Counter("repository.operations"); err != nil {
			return
		}
		metrics = m
	})
	return metrics
}

// RecordAuthOperation counts register/login/profile/logout outcomes.
func RecordAuthOperation(ctx context.Context, operation, outcome string) {
	m := instruments()
	if m == nil {
		return
	}
	m.authOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionEvent(ctx context.Context, event string) {
	m := instruments()
	if m == nil {
		return
	}
	m.sessionEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func RecordCSRFValidation(ctx context.Context, outcome string) {
	m := instruments()
	if m == nil {
		return
	}
	m.csrfChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordAttemptDecision(ctx context.Context, decision string) {
	m := instruments()
	if m == nil {
		return
	}
	m.attemptChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	m := instruments()
	if m == nil {
		return
	}
	m.rateLimits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("decision", decision),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := instruments()
	if m == nil {
		return
	}
	m.repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	logger.Info("otel metrics enabled", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}
