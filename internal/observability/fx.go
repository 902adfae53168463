package observability

import (
	"github.com/smallbiznis/receptionist/internal/observability/logger"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	"github.com/smallbiznis/receptionist/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the zap logger, the OTel tracer and meter providers and the
// Prometheus HTTP collectors from a single Config.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Split,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(announce),
)

// Parts is Config fanned out to the per-signal packages.
type Parts struct {
	fx.Out

	Logger  logger.Config
	Tracing tracing.Config
	Metrics metrics.Config
}

func Split(cfg Config) Parts {
	debug := cfg.Debug()
	return Parts{
		Logger: logger.Config{
			ServiceName:         cfg.ServiceName,
			Environment:         cfg.Environment,
			Version:             cfg.Version,
			Level:               cfg.LogLevel,
			Format:              cfg.LogFormat,
			Debug:               debug,
			IncludeCaller:       true,
			IncludeStackOnError: debug,
		},
		Tracing: tracing.Config{
			Enabled:          cfg.OtelEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.OtelExporterEndpoint,
			ExporterProtocol: cfg.OtelExporterProtocol,
			SamplingRatio:    cfg.OtelSamplingRatio,
		},
		Metrics: metrics.Config{
			Enabled:          cfg.OtelEnabled,
			ExporterEndpoint: cfg.OtelExporterEndpoint,
			ExporterProtocol: cfg.OtelExporterProtocol,
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
		},
	}
}

// announce forces the tracer provider to be built even when no handler asks
// for it, so the global propagator is installed before the first request.
func announce(cfg Config, log *zap.Logger, _ *sdktrace.TracerProvider) {
	log.Info("observability ready",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.Bool("otel_enabled", cfg.OtelEnabled),
		zap.Bool("debug", cfg.Debug()),
	)
}
