package kafka

import (
	"encoding/json"
	"time"
)

// Topics по умолчанию.
const (
	TopicOrderEvents = "checkout.order.events"
	// TopicDeadLetter получает события, которые не удалось доставить после всех попыток.
	TopicDeadLetter = "checkout.order.events.dlq"
)

// Kafka headers, дублирующие поля конверта для маршрутизации без разбора JSON.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope — формат сообщения в topic. Payload содержит событие домена как есть.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}
