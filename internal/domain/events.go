package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Типы агрегатов и событий, которые сервис кладёт в outbox.
const (
	AggregateTypeOrder   = "order"
	EventTypeOrderPlaced = "order.placed"
)

// OrderPlacedEvent — полезная нагрузка события о сохранённом заказе.
type OrderPlacedEvent struct {
	OrderID       int64         `json:"order_id"`
	CustomerID    int64         `json:"customer_id"`
	Value         Money         `json:"value"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	OrderDate     time.Time     `json:"order_date"`
}

// NewOrderPlacedMessage упаковывает сохранённый заказ в outbox-сообщение.
func NewOrderPlacedMessage(order Order, method PaymentMethod) (OutboxMessage, error) {
	if order.ID <= 0 {
		return OutboxMessage{}, fmt.Errorf("%w: order must be persisted before publishing", ErrOrderInvalid)
	}

	payload, err := json.Marshal(OrderPlacedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Value:         order.Value,
		PaymentMethod: method,
		OrderDate:     order.OrderDate.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order placed event: %w", err)
	}

	return OutboxMessage{
		AggregateType: AggregateTypeOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     EventTypeOrderPlaced,
		Payload:       payload,
	}, nil
}
