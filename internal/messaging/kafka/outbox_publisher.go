package kafka

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// OutboxPublisher отправляет outbox-сообщения в один Kafka topic.
type OutboxPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher создаёт publisher; пустой topic заменяется TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxPublisher{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

// Topic возвращает целевой topic.
func (p *OutboxPublisher) Topic() string {
	return p.topic
}

// Publish упаковывает сообщение в Envelope. Ключ — ID агрегата, чтобы события одного заказа шли в одну партицию.
func (p *OutboxPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}

	envelope := Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		PublishedAt:   p.now().UTC(),
	}
	headers := map[string]string{
		HeaderEventType:     msg.EventType,
		HeaderAggregateType: msg.AggregateType,
		HeaderOutboxID:      msg.ID,
	}

	if err := p.producer.Publish(p.topic, key, envelope, headers); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOutboxPublish, err)
	}
	return nil
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
