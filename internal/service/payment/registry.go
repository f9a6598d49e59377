package payment

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Registry сопоставляет способ оплаты с исполнителем.
// Строится один раз при старте и после этого только читается, поэтому безопасен для конкурентного доступа.
type Registry struct {
	executors map[domain.PaymentMethod]domain.PaymentExecutor
}

// NewRegistry строит реестр из полного набора исполнителей.
// Повторяющийся способ оплаты (ErrDuplicatePaymentMethod), nil-исполнитель или пустой способ
// (ErrInvalidPaymentExecutor) — ошибки конфигурации.
func NewRegistry(executors ...domain.PaymentExecutor) (*Registry, error) {
	byMethod := make(map[domain.PaymentMethod]domain.PaymentExecutor, len(executors))
	for idx, executor := range executors {
		if isNil(executor) {
			return nil, fmt.Errorf("%w: executor[%d] is nil", domain.ErrInvalidPaymentExecutor, idx)
		}
		method := executor.Method()
		if method == "" {
			return nil, fmt.Errorf("%w: executor[%d] has empty method", domain.ErrInvalidPaymentExecutor, idx)
		}
		if _, exists := byMethod[method]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePaymentMethod, method)
		}
		byMethod[method] = executor
	}
	return &Registry{executors: byMethod}, nil
}

// isNil ловит и типизированный nil: (*CreditCardExecutor)(nil) в интерфейсе не равен nil.
func isNil(executor domain.PaymentExecutor) bool {
	if executor == nil {
		return true
	}
	v := reflect.ValueOf(executor)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Resolve возвращает исполнителя или ErrUnsupportedPaymentMethod.
func (r *Registry) Resolve(method domain.PaymentMethod) (domain.PaymentExecutor, error) {
	executor, ok := r.executors[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPaymentMethod, method)
	}
	return executor, nil
}

// Methods возвращает зарегистрированные способы оплаты в алфавитном порядке.
func (r *Registry) Methods() []domain.PaymentMethod {
	methods := make([]domain.PaymentMethod, 0, len(r.executors))
	for method := range r.executors {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
