package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
)

func TestDefaultExecutors_PayBuildsUnsavedUTCOrder(t *testing.T) {
	now := time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC)
	executors := payment.DefaultExecutors(clock.Fixed(now))
	require.Len(t, executors, 3)

	for _, executor := range executors {
		t.Run(executor.Method().String(), func(t *testing.T) {
			order, err := executor.Pay(context.Background(), decimal.RequireFromString("49.90"), 3)
			require.NoError(t, err)
			require.Zero(t, order.ID)
			require.Equal(t, int64(3), order.CustomerID)
			require.True(t, order.Value.Equal(decimal.RequireFromString("49.90")))
			require.Equal(t, now, order.OrderDate)
			require.Equal(t, time.UTC, order.OrderDate.Location())
		})
	}
}

func TestExecutorPay_RejectsInvalidArguments(t *testing.T) {
	executor := payment.NewCreditCardExecutor(clock.System())

	_, err := executor.Pay(context.Background(), decimal.Zero, 1)
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = executor.Pay(context.Background(), decimal.NewFromInt(1), 0)
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestExecutorPay_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := payment.NewPixExecutor(clock.System()).Pay(ctx, decimal.NewFromInt(1), 1)
	require.ErrorIs(t, err, context.Canceled)
}
