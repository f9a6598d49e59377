package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewCheckoutMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetricsWithRegisterer(reg)

	if m.eligibilityDecisions == nil || m.ordersPlaced == nil || m.orderFailures == nil {
		t.Fatal("counter vectors should not be nil")
	}
	if m.placeOrderDuration == nil {
		t.Fatal("duration histogram should not be nil")
	}
	if m.outboxEvents == nil {
		t.Fatal("outbox counter should not be nil")
	}
}

func TestNewCheckoutMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCheckoutMetricsWithRegisterer(reg)
	second := NewCheckoutMetricsWithRegisterer(reg)

	first.RecordOrderPlaced("pix")
	second.RecordOrderPlaced("pix")

	if got := counterValue(t, first.ordersPlaced.WithLabelValues("pix")); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordEligibility(t *testing.T) {
	m := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordEligibility(ResultEligible, "")
	m.RecordEligibility(ResultIneligible, "weekend")
	m.RecordEligibility(ResultIneligible, "weekend")

	if got := counterValue(t, m.eligibilityDecisions.WithLabelValues(ResultEligible, "none")); got != 1 {
		t.Fatalf("expected 1 eligible decision, got %v", got)
	}
	if got := counterValue(t, m.eligibilityDecisions.WithLabelValues(ResultIneligible, "weekend")); got != 2 {
		t.Fatalf("expected 2 weekend decisions, got %v", got)
	}
}

func TestRecordOrderFailureAndOutbox(t *testing.T) {
	m := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderFailure("paypal", "unsupported_method")
	m.RecordOutboxEvent()
	m.RecordPlaceOrderDuration("paypal", 15*time.Millisecond)

	if got := counterValue(t, m.orderFailures.WithLabelValues("paypal", "unsupported_method")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := counterValue(t, m.outboxEvents); got != 1 {
		t.Fatalf("expected 1 outbox event, got %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *CheckoutMetrics

	m.RecordEligibility(ResultError, "")
	m.RecordOrderPlaced("pix")
	m.RecordOrderFailure("pix", "payment_failed")
	m.RecordPlaceOrderDuration("pix", time.Second)
	m.RecordOutboxEvent()
}
