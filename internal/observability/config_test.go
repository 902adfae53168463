package observability

import (
	"testing"

	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:     " ",
		Environment: "production",
		AppVersion:  "1.4.0",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			OtelEnabled:   true,
			OTLPEndpoint:  "collector:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 0.25,
		},
	})

	assert.Equal(t, "receptionist", cfg.ServiceName)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.False(t, cfg.Debug())

	parts := Split(cfg)
	assert.Equal(t, 0.25, parts.Tracing.SamplingRatio)
	assert.Equal(t, "grpc", parts.Metrics.ExporterProtocol)
	assert.False(t, parts.Logger.IncludeStackOnError)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "DEBUG", Environment: "production"}.Debug())
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}
