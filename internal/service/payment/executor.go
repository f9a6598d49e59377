package payment

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// baseExecutor содержит общее поведение всех способов оплаты:
// проверяет входные данные и выпускает новый заказ без внешних побочных эффектов.
type baseExecutor struct {
	method domain.PaymentMethod
	clock  domain.Clock
}

func (e baseExecutor) Method() domain.PaymentMethod {
	return e.method
}

func (e baseExecutor) Pay(ctx context.Context, amount domain.Money, customerID int64) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	if !amount.IsPositive() {
		return domain.Order{}, fmt.Errorf("%w: payment value must be greater than zero", domain.ErrInvalidArgument)
	}
	if customerID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: customer id must be greater than zero", domain.ErrInvalidArgument)
	}
	return domain.NewOrder(amount, customerID, e.clock.Now()), nil
}

// CreditCardExecutor проводит оплату картой.
type CreditCardExecutor struct{ baseExecutor }

// NewCreditCardExecutor создаёт исполнителя для оплаты картой.
func NewCreditCardExecutor(clock domain.Clock) *CreditCardExecutor {
	return &CreditCardExecutor{baseExecutor{method: domain.PaymentMethodCreditCard, clock: clock}}
}

// PixExecutor проводит оплату через Pix.
type PixExecutor struct{ baseExecutor }

// NewPixExecutor создаёт исполнителя для Pix.
func NewPixExecutor(clock domain.Clock) *PixExecutor {
	return &PixExecutor{baseExecutor{method: domain.PaymentMethodPix, clock: clock}}
}

// PayPalExecutor проводит оплату через PayPal.
type PayPalExecutor struct{ baseExecutor }

// NewPayPalExecutor создаёт исполнителя для PayPal.
func NewPayPalExecutor(clock domain.Clock) *PayPalExecutor {
	return &PayPalExecutor{baseExecutor{method: domain.PaymentMethodPayPal, clock: clock}}
}

// DefaultExecutors возвращает все встроенные способы оплаты.
// Новый способ добавляется здесь и больше нигде.
func DefaultExecutors(clock domain.Clock) []domain.PaymentExecutor {
	return []domain.PaymentExecutor{
		NewCreditCardExecutor(clock),
		NewPixExecutor(clock),
		NewPayPalExecutor(clock),
	}
}

var (
	_ domain.PaymentExecutor = (*CreditCardExecutor)(nil)
	_ domain.PaymentExecutor = (*PixExecutor)(nil)
	_ domain.PaymentExecutor = (*PayPalExecutor)(nil)
)
