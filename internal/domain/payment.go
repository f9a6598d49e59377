package domain

import (
	"fmt"
	"strings"
)

// PaymentMethod — закрытый набор способов оплаты.
type PaymentMethod string

const (
	// PaymentMethodCreditCard — оплата банковской картой.
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	// PaymentMethodPix — мгновенный перевод Pix.
	PaymentMethodPix PaymentMethod = "pix"
	// PaymentMethodPayPal — оплата через PayPal.
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// PaymentMethods возвращает все известные способы оплаты.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodCreditCard, PaymentMethodPix, PaymentMethodPayPal}
}

func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod разбирает название способа оплаты без учёта регистра.
// Принимаются как канонические имена ("credit_card"), так и написание из API ("CreditCard").
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)

	switch normalized {
	case "creditcard":
		return PaymentMethodCreditCard, nil
	case "pix":
		return PaymentMethodPix, nil
	case "paypal":
		return PaymentMethodPayPal, nil
	case "":
		return "", fmt.Errorf("%w: payment method is required", ErrInvalidArgument)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, raw)
	}
}
