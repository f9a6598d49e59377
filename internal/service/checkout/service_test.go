package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/service/eligibility"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

var tuesdayMorning = time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC)

type env struct {
	clock     domain.Clock
	orders    *memory.OrderRepository
	customers *memory.CustomerRepository
	products  *memory.ProductRepository
	outbox    *memory.OutboxRepository
}

func newEnv() env {
	orders := memory.NewOrderRepository()
	return env{
		clock:     clock.Fixed(tuesdayMorning),
		orders:    orders,
		customers: memory.NewCustomerRepository(orders, memory.DemoCustomers(3)...),
		products:  memory.NewProductRepository(memory.DemoProducts(12)...),
		outbox:    memory.NewOutboxRepository(),
	}
}

func (e env) repos() checkout.Repositories {
	return checkout.Repositories{Customers: e.customers, Orders: e.orders, Products: e.products}
}

func (e env) registry(t *testing.T, executors ...domain.PaymentExecutor) *payment.Registry {
	t.Helper()
	if len(executors) == 0 {
		executors = payment.DefaultExecutors(e.clock)
	}
	registry, err := payment.NewRegistry(executors...)
	require.NoError(t, err)
	return registry
}

func (e env) storedOrders(t *testing.T) int {
	t.Helper()
	page, err := e.orders.List(context.Background(), domain.OrderFilter{}, domain.NewPageRequest(1))
	require.NoError(t, err)
	return page.TotalCount
}

func money(v string) domain.Money {
	return decimal.RequireFromString(v)
}

func TestPlaceOrder_PersistsOrder(t *testing.T) {
	e := newEnv()
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock)

	order, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodCreditCard, money("99.90"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), order.ID)
	require.Equal(t, int64(1), order.CustomerID)
	require.True(t, order.Value.Equal(money("99.9")))
	require.True(t, order.OrderDate.Equal(tuesdayMorning))
	require.Equal(t, time.UTC, order.OrderDate.Location())
	require.Equal(t, 1, e.storedOrders(t))
}

func TestPlaceOrder_UnsupportedMethodPersistsNothing(t *testing.T) {
	e := newEnv()
	svc := checkout.NewService(e.registry(t, payment.NewPixExecutor(e.clock)), e.repos(), e.clock)

	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPayPal, money("10"), 1)
	require.True(t, errors.Is(err, domain.ErrUnsupportedPaymentMethod))

	_, err = svc.PlaceOrder(context.Background(), domain.PaymentMethod("boleto"), money("10"), 1)
	require.True(t, errors.Is(err, domain.ErrUnsupportedPaymentMethod))

	require.Zero(t, e.storedOrders(t))
}

func TestPlaceOrder_PaymentErrorIsReturnedUnchanged(t *testing.T) {
	e := newEnv()
	declined := errors.New("card declined")
	mock := payment.NewMockExecutor(domain.PaymentMethodCreditCard)
	mock.PayErr = declined
	svc := checkout.NewService(e.registry(t, mock), e.repos(), e.clock, checkout.WithOutbox(e.outbox))

	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodCreditCard, money("10"), 1)
	require.Equal(t, declined, err)
	require.Equal(t, 1, mock.PayCalls())
	require.Zero(t, e.storedOrders(t))

	stats, err := e.outbox.Stats()
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestPlaceOrder_BuildsOrderWhenExecutorReturnsNone(t *testing.T) {
	e := newEnv()
	mock := payment.NewMockExecutor(domain.PaymentMethodPix)
	svc := checkout.NewService(e.registry(t, mock), e.repos(), e.clock)

	order, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("25"), 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), order.ID)
	require.Equal(t, int64(2), order.CustomerID)
	require.True(t, order.Value.Equal(money("25")))
	require.True(t, order.OrderDate.Equal(tuesdayMorning))
}

func TestPlaceOrder_InvalidArguments(t *testing.T) {
	e := newEnv()
	mock := payment.NewMockExecutor(domain.PaymentMethodPix)
	svc := checkout.NewService(e.registry(t, mock), e.repos(), e.clock)

	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("10"), 0)
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, decimal.Zero, 1)
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))

	require.Zero(t, mock.PayCalls())
}

func TestPlaceOrder_EligibilityGate(t *testing.T) {
	e := newEnv()
	mock := payment.NewMockExecutor(domain.PaymentMethodPix)
	checker := eligibility.NewChecker(e.customers, e.clock, nil, nil)
	svc := checkout.NewService(e.registry(t, mock), e.repos(), e.clock, checkout.WithEligibility(checker))
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, domain.PaymentMethodPix, money("101"), 1)
	require.True(t, errors.Is(err, domain.ErrIneligible))
	require.Zero(t, mock.PayCalls())

	_, err = svc.PlaceOrder(ctx, domain.PaymentMethodPix, money("100"), 1)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, domain.PaymentMethodPix, money("5"), 1)
	require.True(t, errors.Is(err, domain.ErrIneligible))

	_, err = svc.PlaceOrder(ctx, domain.PaymentMethodPix, money("5"), 404)
	require.True(t, errors.Is(err, domain.ErrCustomerNotFound))

	require.Equal(t, 1, mock.PayCalls())
	require.Equal(t, 1, e.storedOrders(t))
}

func TestPlaceOrder_ConcurrentPurchasesOfOneCustomer(t *testing.T) {
	e := newEnv()
	checker := eligibility.NewChecker(e.customers, e.clock, nil, nil)
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock, checkout.WithEligibility(checker))

	const attempts = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		placed     int
		ineligible int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("50"), 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, domain.ErrIneligible):
				ineligible++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, placed)
	require.Equal(t, attempts-1, ineligible)
	require.Equal(t, 1, e.storedOrders(t))
}

func TestPlaceOrder_EnqueuesOrderPlacedEvent(t *testing.T) {
	e := newEnv()
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock, checkout.WithOutbox(e.outbox))

	order, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPayPal, money("30"), 1)
	require.NoError(t, err)

	pending, err := e.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.EventTypeOrderPlaced, pending[0].EventType)
	require.Equal(t, domain.AggregateTypeOrder, pending[0].AggregateType)
	require.Equal(t, "1", pending[0].AggregateID)
	require.Equal(t, int64(1), order.ID)
}

type brokenOutbox struct {
	domain.OutboxRepository
}

func (brokenOutbox) Enqueue(domain.OutboxMessage) (domain.OutboxMessage, error) {
	return domain.OutboxMessage{}, errors.New("outbox unavailable")
}

func TestPlaceOrder_OutboxFailureKeepsOrder(t *testing.T) {
	e := newEnv()
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock, checkout.WithOutbox(brokenOutbox{}))

	order, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("30"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), order.ID)
	require.Equal(t, 1, e.storedOrders(t))
}

type failingOrders struct {
	domain.OrderRepository
	err error
}

func (f failingOrders) Insert(context.Context, domain.Order) (domain.Order, error) {
	return domain.Order{}, f.err
}

func TestPlaceOrder_PersistenceErrorPropagates(t *testing.T) {
	e := newEnv()
	storageErr := errors.New("connection refused")
	repos := e.repos()
	repos.Orders = failingOrders{OrderRepository: e.orders, err: storageErr}
	svc := checkout.NewService(e.registry(t), repos, e.clock)

	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("30"), 1)
	require.True(t, errors.Is(err, storageErr))
	require.False(t, domain.IsClientError(err))
}

func TestListCustomerOrders(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	for _, at := range []time.Time{
		tuesdayMorning.AddDate(0, -3, 0),
		tuesdayMorning.AddDate(0, -1, -5),
		tuesdayMorning,
	} {
		_, err := e.orders.Insert(ctx, domain.NewOrder(money("10"), 1, at))
		require.NoError(t, err)
	}
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock)

	all, err := svc.ListCustomerOrders(ctx, 1, time.Time{}, time.Time{}, domain.NewPageRequest(1))
	require.NoError(t, err)
	require.Equal(t, 3, all.TotalCount)
	require.False(t, all.HasNext)

	ranged, err := svc.ListCustomerOrders(ctx, 1, tuesdayMorning.AddDate(0, -2, 0), tuesdayMorning, domain.NewPageRequest(1))
	require.NoError(t, err)
	require.Equal(t, 1, ranged.TotalCount)

	_, err = svc.ListCustomerOrders(ctx, 1, tuesdayMorning, tuesdayMorning, domain.NewPageRequest(1))
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = svc.ListCustomerOrders(ctx, 404, time.Time{}, time.Time{}, domain.NewPageRequest(1))
	require.True(t, errors.Is(err, domain.ErrCustomerNotFound))
}

func TestListCustomersAndProducts(t *testing.T) {
	e := newEnv()
	svc := checkout.NewService(e.registry(t), e.repos(), e.clock)

	customers, err := svc.ListCustomers(context.Background(), domain.NewPageRequest(1))
	require.NoError(t, err)
	require.Len(t, customers.Items, 3)

	products, err := svc.ListProducts(context.Background(), domain.NewPageRequest(2))
	require.NoError(t, err)
	require.Len(t, products.Items, 2)
	require.Equal(t, 12, products.TotalCount)
	require.False(t, products.HasNext)

	_, err = svc.ListProducts(context.Background(), domain.PageRequest{Page: 0})
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestPlaceOrder_UnknownCustomerWithoutGate(t *testing.T) {
	e := newEnv()
	mock := payment.NewMockExecutor(domain.PaymentMethodPix)
	svc := checkout.NewService(e.registry(t, mock), e.repos(), e.clock)

	_, err := svc.PlaceOrder(context.Background(), domain.PaymentMethodPix, money("10"), 404)
	require.True(t, errors.Is(err, domain.ErrCustomerNotFound))
	require.Zero(t, mock.PayCalls())
	require.Zero(t, e.storedOrders(t))
}
