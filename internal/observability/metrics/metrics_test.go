package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("provider", "twilio"),
		attribute.String("business_id", "456"),
		attribute.String("phone_number", "+12125551234"),
		attribute.String("outcome", "purchased"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "provider" && attrs[1].Key != "provider" {
		t.Fatalf("expected provider to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordBusinessCreated(ctx, "dental")
	m.RecordNumberPurchased(ctx, "twilio", "purchased")
	m.RecordNumberReleased(ctx, "twilio")
	m.RecordReceptionistToggle(ctx, true)
}

func TestNewRegistersInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "receptionist-test"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	if m.numbersPurchased == nil || m.rateLimitDenied == nil {
		t.Fatalf("expected instruments to be initialized")
	}
	m.RecordCheckoutSession(context.Background(), "Starter")
}
