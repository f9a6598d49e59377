package domain

import (
	"context"
	"time"
)

// Clock отдаёт текущий момент в UTC. Внедряется явно, чтобы правила по времени были детерминированы в тестах.
type Clock interface {
	Now() time.Time
}

// PaymentExecutor проводит оплату одним конкретным способом.
type PaymentExecutor interface {
	// Method — способ оплаты, который обслуживает исполнитель. Не меняется.
	Method() PaymentMethod
	// Pay выполняет оплату и возвращает новый, ещё не сохранённый заказ.
	Pay(ctx context.Context, amount Money, customerID int64) (Order, error)
}

// OutboxPublisher публикует события из outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
