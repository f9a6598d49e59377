package domain

import "errors"

var (
	// ErrInvalidArgument — некорректный идентификатор, сумма или параметры страницы.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCustomerNotFound возвращается, если клиент не зарегистрирован.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUnsupportedPaymentMethod — для способа оплаты нет зарегистрированного исполнителя.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	// ErrDuplicatePaymentMethod — два исполнителя заявили один и тот же способ оплаты.
	ErrDuplicatePaymentMethod = errors.New("duplicate payment method")
	// ErrInvalidPaymentExecutor — исполнитель не задан или не называет способ оплаты.
	ErrInvalidPaymentExecutor = errors.New("invalid payment executor")
	// ErrIneligible — клиент не проходит бизнес-правила покупки.
	ErrIneligible = errors.New("customer is not eligible to purchase")
	// ErrOrderInvalid — заказ нарушает базовые инварианты и не может быть сохранён.
	ErrOrderInvalid = errors.New("order is invalid")
	// ErrOutboxPublish — ошибка при работе с сообщением outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsClientError сообщает, вызвана ли ошибка входными данными клиента, а не инфраструктурой.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrUnsupportedPaymentMethod) ||
		errors.Is(err, ErrIneligible)
}
