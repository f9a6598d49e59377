package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

// newKafkaProducer подменяется в тестах.
var newKafkaProducer = kafka.NewProducer

// connectKafka подключает producer событий о заказах.
// Kafka не обязательна для оформления заказов: без брокеров или при ошибке подключения
// возвращается nil, outbox не включается, а единственный след сбоя — предупреждение в логе.
func connectKafka(brokers []string, logger *log.Entry) *kafka.Producer {
	if len(brokers) == 0 {
		logger.Info("kafka brokers are not configured, order events are not published")
		return nil
	}

	producer, err := newKafkaProducer(brokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).WithField("brokers", brokers).
			Warn("kafka is unavailable, orders are accepted without publishing events")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer connected, outbox publishing enabled")
	return producer
}

// closeKafka вызывается при остановке сервиса после того, как outbox worker завершился.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("kafka producer close failed, undelivered events stay pending in outbox")
		return
	}
	logger.Info("kafka producer closed")
}
