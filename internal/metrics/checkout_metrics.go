package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label result для решений о допуске к покупке.
const (
	ResultEligible   = "eligible"
	ResultIneligible = "ineligible"
	ResultError      = "error"
)

// CheckoutMetrics содержит метрики проверки допуска и оформления заказов.
type CheckoutMetrics struct {
	eligibilityDecisions *prometheus.CounterVec
	ordersPlaced         *prometheus.CounterVec
	orderFailures        *prometheus.CounterVec
	placeOrderDuration   *prometheus.HistogramVec
	outboxEvents         prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в указанном registerer (удобно для тестов).
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		eligibilityDecisions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_eligibility_decisions_total",
			Help: "Total number of purchase eligibility checks grouped by result and reason",
		}, []string{"result", "reason"}),
		ordersPlaced: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_placed_total",
			Help: "Total number of orders persisted grouped by payment method",
		}, []string{"method"}),
		orderFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_order_failures_total",
			Help: "Total number of rejected or failed order placements grouped by payment method and reason",
		}, []string{"method", "reason"}),
		placeOrderDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "checkout_place_order_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_outbox_events_total",
			Help: "Total number of order events enqueued to the outbox",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordEligibility учитывает решение о допуске. reason пуст для успешной проверки.
// Методы безопасны для nil-получателя, чтобы сервисы работали без метрик.
func (m *CheckoutMetrics) RecordEligibility(result, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.eligibilityDecisions.WithLabelValues(result, reason).Inc()
}

// RecordOrderPlaced увеличивает счётчик сохранённых заказов.
func (m *CheckoutMetrics) RecordOrderPlaced(method string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(method).Inc()
}

// RecordOrderFailure учитывает отклонённое или неуспешное оформление заказа.
func (m *CheckoutMetrics) RecordOrderFailure(method, reason string) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(method, reason).Inc()
}

// RecordPlaceOrderDuration записывает время оформления заказа.
func (m *CheckoutMetrics) RecordPlaceOrderDuration(method string, duration time.Duration) {
	if m == nil {
		return
	}
	m.placeOrderDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
