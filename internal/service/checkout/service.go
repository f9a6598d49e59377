// Package checkout оформляет заказы: проверка допуска, оплата выбранным способом, сохранение.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// Причины неуспеха в метрике checkout_order_failures_total.
const (
	failureInvalidArgument   = "invalid_argument"
	failureIneligible        = "ineligible"
	failureCustomerNotFound  = "customer_not_found"
	failureUnsupportedMethod = "unsupported_method"
	failurePayment           = "payment_failed"
	failurePersist           = "persist_failed"
	failureCanceled          = "canceled"
)

const unknownMethodLabel = "unknown"

// PaymentResolver находит исполнителя по способу оплаты.
type PaymentResolver interface {
	Resolve(method domain.PaymentMethod) (domain.PaymentExecutor, error)
}

// EligibilityChecker решает, допустима ли покупка.
type EligibilityChecker interface {
	CanPurchase(ctx context.Context, customerID int64, value domain.Money) (bool, error)
}

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Eligibility EligibilityChecker
	Outbox      domain.OutboxRepository
	Metrics     *metrics.CheckoutMetrics
	Logger      *log.Entry
}

// Option настраивает Service.
type Option func(*Options)

// WithEligibility включает проверку допуска перед оплатой.
func WithEligibility(checker EligibilityChecker) Option {
	return func(opts *Options) {
		opts.Eligibility = checker
	}
}

// WithOutbox включает публикацию order.placed через outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = repo
	}
}

// WithMetrics задаёт метрики оформления заказов.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Repositories — хранилища, с которыми работает сервис.
type Repositories struct {
	Customers domain.CustomerRepository
	Orders    domain.OrderRepository
	Products  domain.ProductRepository
}

// Service реализует оформление заказа и списочные запросы.
type Service struct {
	payments    PaymentResolver
	customers   domain.CustomerRepository
	orders      domain.OrderRepository
	products    domain.ProductRepository
	clock       domain.Clock
	eligibility EligibilityChecker
	outbox      domain.OutboxRepository
	metrics     *metrics.CheckoutMetrics
	logger      *log.Entry
	locks       *customerLocks
}

// NewService создаёт сервис оформления заказов.
func NewService(payments PaymentResolver, repos Repositories, clock domain.Clock, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}

	return &Service{
		payments:    payments,
		customers:   repos.Customers,
		orders:      repos.Orders,
		products:    repos.Products,
		clock:       clock,
		eligibility: opts.Eligibility,
		outbox:      opts.Outbox,
		metrics:     opts.Metrics,
		logger:      logger,
		locks:       newCustomerLocks(),
	}
}

// PlaceOrder проводит оплату и сохраняет заказ.
// Ошибка исполнителя оплаты возвращается без изменений; в этом случае ничего не сохраняется.
func (s *Service) PlaceOrder(ctx context.Context, method domain.PaymentMethod, value domain.Money, customerID int64) (domain.Order, error) {
	started := time.Now()
	methodLabel := s.methodLabel(method)

	order, err := s.placeOrder(ctx, method, value, customerID)
	s.metrics.RecordPlaceOrderDuration(methodLabel, time.Since(started))
	if err != nil {
		s.metrics.RecordOrderFailure(methodLabel, failureReason(err))
		return domain.Order{}, err
	}

	s.metrics.RecordOrderPlaced(methodLabel)
	s.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"customer_id":    order.CustomerID,
		"payment_method": methodLabel,
		"value":          order.Value.String(),
	}).Info("order placed")
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, method domain.PaymentMethod, value domain.Money, customerID int64) (domain.Order, error) {
	if customerID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: customer id must be greater than zero", domain.ErrInvalidArgument)
	}
	if !value.IsPositive() {
		return domain.Order{}, fmt.Errorf("%w: payment value must be greater than zero", domain.ErrInvalidArgument)
	}

	// Проверка допуска и вставка заказа выполняются под одним замком клиента,
	// иначе два параллельных запроса проходят правило частоты покупок.
	unlock := s.locks.lock(customerID)
	defer unlock()

	if s.eligibility != nil {
		eligible, err := s.eligibility.CanPurchase(ctx, customerID, value)
		if err != nil {
			return domain.Order{}, err
		}
		if !eligible {
			return domain.Order{}, fmt.Errorf("customer %d: %w", customerID, domain.ErrIneligible)
		}
	} else if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		// Без проверки допуска существование клиента всё равно обязательно.
		return domain.Order{}, fmt.Errorf("customer %d: %w", customerID, err)
	}

	executor, err := s.payments.Resolve(method)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := executor.Pay(ctx, value, customerID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.IsZero() {
		order = domain.NewOrder(value, customerID, s.clock.Now())
	}

	stored, err := s.orders.Insert(ctx, order)
	if err != nil {
		return domain.Order{}, persistError{err: err}
	}

	s.enqueueOrderPlaced(stored, method)
	return stored, nil
}

// enqueueOrderPlaced ставит событие в outbox после фиксации заказа, отдельной операцией.
// При сбое заказ остаётся сохранённым, а событие теряется; это видно только в логах.
func (s *Service) enqueueOrderPlaced(order domain.Order, method domain.PaymentMethod) {
	if s.outbox == nil {
		return
	}

	logger := s.logger.WithField("order_id", order.ID)
	msg, err := domain.NewOrderPlacedMessage(order, method)
	if err != nil {
		logger.WithError(err).Error("failed to build order placed event")
		return
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		// Заказ уже сохранён, поэтому ошибка outbox не отменяет результат.
		logger.WithError(err).Error("failed to enqueue order placed event")
		return
	}
	s.metrics.RecordOutboxEvent()
}

// ListCustomers возвращает страницу клиентов.
func (s *Service) ListCustomers(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Customer], error) {
	return s.customers.List(ctx, page)
}

// ListProducts возвращает страницу каталога.
func (s *Service) ListProducts(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Product], error) {
	if s.products == nil {
		return domain.NewPagedList[domain.Product](nil, 0, page), nil
	}
	return s.products.List(ctx, page)
}

// ListCustomerOrders возвращает заказы клиента в полуинтервале [from, to), новые первыми.
// Нулевые границы не ограничивают выборку.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID int64, from, to time.Time, page domain.PageRequest) (domain.PagedList[domain.Order], error) {
	if customerID <= 0 {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("%w: customer id must be greater than zero", domain.ErrInvalidArgument)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("%w: from must be before to", domain.ErrInvalidArgument)
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return domain.PagedList[domain.Order]{}, fmt.Errorf("customer %d: %w", customerID, err)
	}

	filter := domain.OrderFilter{CustomerID: customerID, From: from.UTC(), To: to.UTC()}
	return s.orders.List(ctx, filter, page)
}

// persistError помечает ошибку хранилища, чтобы отличить её от ошибки оплаты.
type persistError struct {
	err error
}

func (e persistError) Error() string {
	return "persist order: " + e.err.Error()
}

func (e persistError) Unwrap() error {
	return e.err
}

// methodLabel ограничивает метки метрик зарегистрированными способами оплаты.
func (s *Service) methodLabel(method domain.PaymentMethod) string {
	if _, err := s.payments.Resolve(method); err != nil {
		return unknownMethodLabel
	}
	return method.String()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return failureInvalidArgument
	case errors.Is(err, domain.ErrIneligible):
		return failureIneligible
	case errors.Is(err, domain.ErrCustomerNotFound):
		return failureCustomerNotFound
	case errors.Is(err, domain.ErrUnsupportedPaymentMethod):
		return failureUnsupportedMethod
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failureCanceled
	case errors.Is(err, domain.ErrOrderInvalid):
		return failurePersist
	default:
		var persist persistError
		if errors.As(err, &persist) {
			return failurePersist
		}
		return failurePayment
	}
}
