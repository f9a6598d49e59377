package checkout_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
)

func TestPlaceOrder_UnregisteredMethodsShareOneMetricLabel(t *testing.T) {
	e := newEnv()
	reg := prometheus.NewRegistry()
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock,
		checkout.WithMetrics(metrics.NewCheckoutMetricsWithRegisterer(reg)))

	for _, raw := range []string{"boleto", "cash", "crypto-42"} {
		_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethod(raw), decimal.NewFromInt(10), 1)
		require.ErrorIs(t, err, domain.ErrUnsupportedPaymentMethod)
	}
	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, decimal.NewFromInt(10), 1)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	methods := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "checkout_order_failures_total" && family.GetName() != "checkout_orders_placed_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "method" {
					methods[pair.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	require.Equal(t, map[string]float64{"unknown": 3, domain.PaymentMethodPix.String(): 1}, methods)
}
