package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockExecutor — конфигурируемая заглушка PaymentExecutor для тестов.
type MockExecutor struct {
	PaymentMethod domain.PaymentMethod
	// Order возвращается из Pay как есть; нулевой заказ проверяет fallback в workflow.
	Order domain.Order
	PayErr error

	mu       sync.Mutex
	payCalls int
}

// NewMockExecutor возвращает mock, который успешно платит и не выпускает заказ.
func NewMockExecutor(method domain.PaymentMethod) *MockExecutor {
	return &MockExecutor{PaymentMethod: method}
}

// Method возвращает настроенный способ оплаты.
func (m *MockExecutor) Method() domain.PaymentMethod {
	return m.PaymentMethod
}

// Pay возвращает заранее настроенный результат и считает вызовы.
func (m *MockExecutor) Pay(_ context.Context, _ domain.Money, _ int64) (domain.Order, error) {
	m.mu.Lock()
	m.payCalls++
	m.mu.Unlock()
	return m.Order, m.PayErr
}

// PayCalls возвращает число вызовов Pay.
func (m *MockExecutor) PayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payCalls
}

var _ domain.PaymentExecutor = (*MockExecutor)(nil)
