package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/logger"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/metrics"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/tracing"
)

const serviceName = "beacon-l2c"

var Module = fx.Module("observability",
	fx.Provide(newLogger),
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(newMetricsConfig),
	fx.Provide(newMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(newSyncMetrics),
	fx.Invoke(initTracing),
)

// initTracing forces the tracer provider to be built even though no
// constructor depends on it directly.
func initTracing(_ *sdktrace.TracerProvider) {}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Environment)
}

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      serviceName,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
		ExporterProtocol: cfg.Tracing.ExporterProtocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func newMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
	}
}

func newMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

func newSyncMetrics(cfg metrics.Config) *metrics.SyncMetrics {
	return metrics.SyncWithConfig(cfg)
}
