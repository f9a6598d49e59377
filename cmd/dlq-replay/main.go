// Команда dlq-replay перечитывает dead-letter topic и возвращает события заказов в основной topic.
// По умолчанию работает в режиме dry-run и только печатает кандидатов.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// deadLetter — содержимое Payload конверта в DLQ, как его пишет outbox worker.
type deadLetter struct {
	OutboxID     string          `json:"outbox_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	PublishError string          `json:"publish_error"`
	FailedAt     time.Time       `json:"failed_at"`
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	return a.consumer.Close()
}

var newReplayDependencies = func(cfg config, logger *log.Entry) (offsetClient, partitionConsumerSource, *kafka.Producer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "checkout-dlq-replay"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if !cfg.execute {
		return client, consumer, nil, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, logger)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, err
	}
	return client, consumer, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.WithField("component", "dlq-replay")); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func parseConfig(args []string, getenv func(string) string) (config, error) {
	flags := flag.NewFlagSet("dlq-replay", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		brokersRaw string
		cfg        config
	)
	flags.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	flags.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetter, "DLQ source topic")
	flags.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "target topic for replay")
	flags.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	flags.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flags.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flags.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv(envKafkaBrokers)
	}
	cfg.brokers = parseBrokers(brokersRaw)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers)
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return config{}, errors.New("source-topic is required")
	case strings.TrimSpace(cfg.targetTopic) == "":
		return config{}, errors.New("target-topic is required")
	case cfg.sourceTopic == cfg.targetTopic:
		return config{}, errors.New("source-topic and target-topic must differ")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}
	return cfg, nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config, logger *log.Entry) error {
	logger.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
	}).Info("starting dlq replay")

	client, consumer, producer, err := newReplayDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		_ = consumer.Close()
		_ = client.Close()
	}()

	stats, err := replay(ctx, cfg, client, consumer, producer, logger)
	if err != nil {
		return err
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	logger.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.processed,
		"replayed":  stats.replayed,
		"skipped":   stats.skipped,
	}).Info("dlq replay finished")
	return nil
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

// replay обходит партиции source topic по возрастанию номера, пока не исчерпан limit.
func replay(
	ctx context.Context,
	cfg config,
	client offsetClient,
	consumer partitionConsumerSource,
	producer *kafka.Producer,
	logger *log.Entry,
) (replayStats, error) {
	var total replayStats
	if cfg.execute && producer == nil {
		return total, errors.New("producer is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		logger.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		remaining := cfg.limit - total.processed
		if remaining <= 0 {
			break
		}
		stats, err := replayPartition(ctx, cfg, client, consumer, producer, partition, remaining, logger)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func replayPartition(
	ctx context.Context,
	cfg config,
	client offsetClient,
	consumer partitionConsumerSource,
	producer *kafka.Producer,
	partition int32,
	limit int,
	logger *log.Entry,
) (replayStats, error) {
	var stats replayStats

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(cfg.idleTimeout)
			stats.processed++

			fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}
			envelope, headers, err := decodeDeadLetter(msg.Value)
			if err != nil {
				stats.skipped++
				logger.WithError(err).WithFields(fields).Warn("skip unsupported dlq message")
				continue
			}

			key := envelope.AggregateID
			if key == "" {
				key = envelope.ID
			}
			if cfg.execute {
				if err := producer.Publish(cfg.targetTopic, key, envelope, headers); err != nil {
					return stats, fmt.Errorf("publish replay message: %w", err)
				}
			} else {
				fields["key"] = key
				fields["event_type"] = envelope.EventType
				logger.WithFields(fields).Info("dlq replay candidate")
			}
			stats.replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

// decodeDeadLetter восстанавливает исходный конверт события из сообщения DLQ.
func decodeDeadLetter(value []byte) (kafka.Envelope, map[string]string, error) {
	var outer kafka.Envelope
	if err := json.Unmarshal(value, &outer); err != nil {
		return kafka.Envelope{}, nil, fmt.Errorf("decode dlq envelope: %w", err)
	}
	if len(outer.Payload) == 0 {
		return kafka.Envelope{}, nil, errors.New("dlq envelope has no payload")
	}

	var dead deadLetter
	if err := json.Unmarshal(outer.Payload, &dead); err != nil {
		return kafka.Envelope{}, nil, fmt.Errorf("decode dead letter payload: %w", err)
	}
	original := bytes.TrimSpace(dead.Payload)
	if len(original) == 0 || bytes.Equal(original, []byte("null")) {
		return kafka.Envelope{}, nil, errors.New("dead letter does not carry the original event")
	}

	envelope := kafka.Envelope{
		ID:            firstNonEmpty(dead.OutboxID, outer.ID),
		AggregateType: outer.AggregateType,
		AggregateID:   outer.AggregateID,
		EventType:     firstNonEmpty(dead.EventType, outer.EventType),
		Payload:       json.RawMessage(original),
		PublishedAt:   time.Now().UTC(),
	}
	headers := map[string]string{
		kafka.HeaderEventType:     envelope.EventType,
		kafka.HeaderAggregateType: envelope.AggregateType,
		kafka.HeaderOutboxID:      envelope.ID,
	}
	return envelope, headers, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
