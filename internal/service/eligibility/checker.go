// Package eligibility решает, может ли клиент совершить покупку на указанную сумму.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// Reason объясняет, какое бизнес-правило не прошло.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonRecentPurchase       Reason = "recent_purchase"
	ReasonFirstPurchaseLimit   Reason = "first_purchase_limit"
	ReasonOutsideBusinessHours Reason = "outside_business_hours"
	ReasonWeekend              Reason = "weekend"
)

const (
	// businessHourFrom и businessHourTo — границы рабочего времени в UTC, обе включительно.
	businessHourFrom = 8
	businessHourTo   = 18
)

// FirstPurchaseLimit — максимальная сумма первой покупки (включительно).
var FirstPurchaseLimit = decimal.NewFromInt(100)

// Decision — результат проверки.
type Decision struct {
	Eligible bool
	Reason   Reason
}

// Checker проверяет бизнес-правила покупки.
type Checker struct {
	customers domain.CustomerRepository
	clock     domain.Clock
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
}

// NewChecker конструирует проверку с зависимостями. metrics может быть nil.
func NewChecker(
	customers domain.CustomerRepository,
	clock domain.Clock,
	m *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Checker {
	if logger == nil {
		logger = log.WithField("component", "eligibility")
	}
	return &Checker{
		customers: customers,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// CanPurchase возвращает true, если все правила пройдены.
// Некорректные аргументы и отсутствующий клиент возвращаются ошибкой, а не false.
func (c *Checker) CanPurchase(ctx context.Context, customerID int64, purchaseValue domain.Money) (bool, error) {
	decision, err := c.Evaluate(ctx, customerID, purchaseValue)
	if err != nil {
		return false, err
	}
	return decision.Eligible, nil
}

// Evaluate применяет правила по порядку и возвращает первое нарушенное.
func (c *Checker) Evaluate(ctx context.Context, customerID int64, purchaseValue domain.Money) (Decision, error) {
	decision, err := c.evaluate(ctx, customerID, purchaseValue)
	switch {
	case err != nil:
		c.metrics.RecordEligibility(metrics.ResultError, "")
	case decision.Eligible:
		c.metrics.RecordEligibility(metrics.ResultEligible, "")
	default:
		c.metrics.RecordEligibility(metrics.ResultIneligible, string(decision.Reason))
		c.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"value":       purchaseValue.String(),
			"reason":      decision.Reason,
		}).Debug("purchase rejected by business rules")
	}
	return decision, err
}

func (c *Checker) evaluate(ctx context.Context, customerID int64, purchaseValue domain.Money) (Decision, error) {
	if customerID <= 0 {
		return Decision{}, fmt.Errorf("%w: customer id must be greater than zero", domain.ErrInvalidArgument)
	}
	if !purchaseValue.IsPositive() {
		return Decision{}, fmt.Errorf("%w: purchase value must be greater than zero", domain.ErrInvalidArgument)
	}

	if _, err := c.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return Decision{}, fmt.Errorf("customer %d: %w", customerID, domain.ErrCustomerNotFound)
		}
		return Decision{}, fmt.Errorf("find customer %d: %w", customerID, err)
	}

	// Все правила по времени используют один и тот же момент.
	now := c.clock.Now().UTC()

	recent, err := c.customers.CountOrdersSince(ctx, customerID, OneMonthBefore(now))
	if err != nil {
		return Decision{}, fmt.Errorf("count recent orders of customer %d: %w", customerID, err)
	}
	if recent > 0 {
		return Decision{Reason: ReasonRecentPurchase}, nil
	}

	hasOrders, err := c.customers.HasAnyOrder(ctx, customerID)
	if err != nil {
		return Decision{}, fmt.Errorf("check order history of customer %d: %w", customerID, err)
	}
	if !hasOrders && purchaseValue.GreaterThan(FirstPurchaseLimit) {
		return Decision{Reason: ReasonFirstPurchaseLimit}, nil
	}

	if hour := now.Hour(); hour < businessHourFrom || hour > businessHourTo {
		return Decision{Reason: ReasonOutsideBusinessHours}, nil
	}
	if day := now.Weekday(); day == time.Saturday || day == time.Sunday {
		return Decision{Reason: ReasonWeekend}, nil
	}

	return Decision{Eligible: true}, nil
}

// OneMonthBefore отступает на один календарный месяц назад.
// Если в предыдущем месяце нет такого числа, берётся его последний день (31 марта -> 29 февраля).
func OneMonthBefore(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfPrev := time.Date(year, month-1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfPrev.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfPrev.Year(), firstOfPrev.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
