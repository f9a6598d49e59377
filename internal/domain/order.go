package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money — денежная сумма без привязки к валюте.
type Money = decimal.Decimal

// Order — зафиксированная покупка клиента. После сохранения не меняется.
type Order struct {
	// ID назначает хранилище при вставке; 0 означает, что заказ ещё не сохранён.
	ID int64
	// Value — сумма заказа, всегда положительная.
	Value Money
	// CustomerID ссылается на существующего клиента.
	CustomerID int64
	// OrderDate — момент покупки, всегда в UTC.
	OrderDate time.Time
}

// NewOrder создаёт несохранённый заказ с датой now, приведённой к UTC.
func NewOrder(value Money, customerID int64, now time.Time) Order {
	return Order{
		Value:      value,
		CustomerID: customerID,
		OrderDate:  now.UTC(),
	}
}

// IsZero сообщает, что заказ не заполнен (исполнитель платежа его не вернул).
func (o Order) IsZero() bool {
	return o.ID == 0 && o.CustomerID == 0 && o.Value.IsZero() && o.OrderDate.IsZero()
}

// Validate проверяет инварианты заказа перед сохранением.
func (o Order) Validate() error {
	switch {
	case o.CustomerID <= 0:
		return fmt.Errorf("%w: customer id must be greater than zero", ErrOrderInvalid)
	case !o.Value.IsPositive():
		return fmt.Errorf("%w: value must be greater than zero", ErrOrderInvalid)
	case o.OrderDate.IsZero():
		return fmt.Errorf("%w: order date is required", ErrOrderInvalid)
	}
	return nil
}

// OrderFilter ограничивает выборку заказов клиента диапазоном дат [From, To).
// Нулевые границы не применяются.
type OrderFilter struct {
	CustomerID int64
	From       time.Time
	To         time.Time
}

// Match проверяет, попадает ли заказ под фильтр.
func (f OrderFilter) Match(o Order) bool {
	if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
		return false
	}
	if !f.From.IsZero() && o.OrderDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !o.OrderDate.Before(f.To) {
		return false
	}
	return true
}
