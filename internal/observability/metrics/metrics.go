package metrics

import (
	"cmp"
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
	businessesCreated   metric.Int64Counter
	numbersPurchased    metric.Int64Counter
	numbersReleased     metric.Int64Counter
	numberSearches      metric.Int64Counter
	checkoutSessions    metric.Int64Counter
	calendarConnections metric.Int64Counter
	receptionistToggles metric.Int64Counter
	rateLimitDenied     metric.Int64Counter
	callsCompleted      metric.Int64Counter
	callMinutes         metric.Int64Counter
}

// NewProvider installs the global meter provider. Disabled telemetry gets a
// noop provider so instruments stay valid.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		noopProvider := noop.NewMeterProvider()
		otel.SetMeterProvider(noopProvider)
		return noopProvider, nil
	}

	exporter, err := cfg.exporter(context.Background())
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval)),
	))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("otlp metrics enabled",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

const exportInterval = 10 * time.Second

// New creates the onboarding counters on the service's meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cmp.Or(strings.TrimSpace(cfg.ServiceName), "receptionist"))

	m := &Metrics{}
	instruments := []struct {
		name   string
		desc   string
		target *metric.Int64Counter
	}{
		{"receptionist_businesses_created_total", "Businesses created through onboarding.", &m.businessesCreated},
		{"receptionist_numbers_purchased_total", "Phone number purchase attempts by outcome.", &m.numbersPurchased},
		{"receptionist_numbers_released_total", "Phone numbers released back to the provider.", &m.numbersReleased},
		{"receptionist_number_searches_total", "Available number searches.", &m.numberSearches},
		{"receptionist_checkout_sessions_total", "Stripe checkout sessions created.", &m.checkoutSessions},
		{"receptionist_calendar_connections_total", "Google Calendar authorization results.", &m.calendarConnections},
		{"receptionist_toggles_total", "Receptionist enable and disable requests.", &m.receptionistToggles},
		{"receptionist_rate_limit_denied_total", "Requests refused by the rate limiter.", &m.rateLimitDenied},
		{"receptionist_calls_completed_total", "Inbound calls that reached a terminal status.", &m.callsCompleted},
		{"receptionist_call_minutes_total", "Call minutes billed against plan allowances.", &m.callMinutes},
	}
	for _, inst := range instruments {
		counter, err := meter.Int64Counter(inst.name, metric.WithDescription(inst.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", inst.name, err)
		}
		*inst.target = counter
	}
	return m, nil
}

// RecordBusinessCreated increments business creation counts.
func (m *Metrics) RecordBusinessCreated(ctx context.Context, industry string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("industry", strings.ToLower(strings.TrimSpace(industry))))
	m.businessesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNumberPurchased increments number purchase outcomes.
func (m *Metrics) RecordNumberPurchased(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.numbersPurchased.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNumberReleased increments number release counts.
func (m *Metrics) RecordNumberReleased(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("provider", strings.TrimSpace(provider)))
	m.numbersReleased.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNumberSearch increments number searches, tagging whether the
// provider was bypassed in favour of generated numbers.
func (m *Metrics) RecordNumberSearch(ctx context.Context, provider, queryType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("query_type", strings.TrimSpace(queryType)),
	)
	m.numberSearches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckoutSession increments hosted checkout sessions created.
func (m *Metrics) RecordCheckoutSession(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.TrimSpace(plan)))
	m.checkoutSessions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCalendarConnection increments calendar authorization outcomes.
func (m *Metrics) RecordCalendarConnection(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.calendarConnections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReceptionistToggle increments activation changes.
func (m *Metrics) RecordReceptionistToggle(ctx context.Context, enabled bool) {
	if m == nil {
		return
	}
	state := "off"
	if enabled {
		state = "on"
	}
	attrs := FilterAttributes(attribute.String("state", state))
	m.receptionistToggles.Add(ctx, 1, metric.WithAttributes(attrs...))
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

// RecordCallCompleted counts a finished call and the minutes it consumed.
func (m *Metrics) RecordCallCompleted(ctx context.Context, status string, minutes int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.callsCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
	if minutes > 0 {
		m.callMinutes.Add(ctx, int64(minutes))
	}
}

// exporter speaks OTLP over grpc unless the protocol asks for http.
func (cfg Config) exporter(ctx context.Context) (sdkmetric.Exporter, error) {
	switch protocol := strings.ToLower(strings.TrimSpace(cfg.ExporterProtocol)); protocol {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if cfg.ExporterEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.ExporterEndpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if cfg.ExporterEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.ExporterEndpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"industry":    {},
	"provider":    {},
	"outcome":     {},
	"query_type":  {},
	"plan":        {},
	"state":       {},
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
