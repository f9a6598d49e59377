// Package outbox доставляет события о заказах из outbox во внешний брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

// WorkerOptions задаёт параметры outbox worker.
type WorkerOptions struct {
	Logger         *log.Entry
	Metrics        *metrics.OutboxMetrics
	DeadLetter     domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики доставки.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(opts *WorkerOptions) {
		opts.Metrics = m
	}
}

// WithDeadLetter задаёт publisher, куда уходят события после исчерпания попыток.
func WithDeadLetter(publisher domain.OutboxPublisher) Option {
	return func(opts *WorkerOptions) {
		opts.DeadLetter = publisher
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации одного события.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовую задержку exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.RetryBaseDelay = delay
	}
}

// BatchResult — итог одного цикла опроса.
type BatchResult struct {
	Sent   int
	Failed int
}

// Worker публикует pending-сообщения из outbox.
type Worker struct {
	repo       domain.OutboxRepository
	publisher  domain.OutboxPublisher
	deadLetter domain.OutboxPublisher
	metrics    *metrics.OutboxMetrics
	logger     *log.Entry
	opts       WorkerOptions
}

// NewWorker создаёт outbox worker. Некорректные значения опций заменяются значениями по умолчанию.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := WorkerOptions{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "outbox-worker")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Worker{
		repo:       repo,
		publisher:  publisher,
		deadLetter: opts.DeadLetter,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		opts:       opts,
	}
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	w.logger.WithFields(log.Fields{
		"poll_interval": w.opts.PollInterval.String(),
		"batch_size":    w.opts.BatchSize,
	}).Info("outbox worker started")

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл: забирает батч, публикует, отмечает статусы.
func (w *Worker) ProcessOnce(ctx context.Context) BatchResult {
	var result BatchResult
	if ctx.Err() != nil {
		return result
	}

	w.refreshBacklog()
	defer w.refreshBacklog()

	events, err := w.repo.PullPending(w.opts.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return result
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return result
		}

		logger := w.logger.WithFields(log.Fields{
			"outbox_id":    event.ID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		})

		if err := w.publishWithRetry(ctx, event); err != nil {
			if ctx.Err() != nil {
				// Событие остаётся pending и будет отправлено после рестарта.
				return result
			}
			result.Failed++
			w.metrics.RecordPublish(metrics.PublishFailed)
			logger.WithError(err).Error("outbox publish failed after retries")

			if dlqErr := w.publishDeadLetter(event, err); dlqErr != nil {
				w.metrics.RecordPublish(metrics.PublishDLQFailed)
				logger.WithError(dlqErr).Warn("failed to publish to dead letter topic")
			}
			if markErr := w.repo.MarkFailed(event.ID); markErr != nil {
				logger.WithError(markErr).Warn("failed to mark outbox message as failed")
			}
			continue
		}

		result.Sent++
		if err := w.repo.MarkSent(event.ID); err != nil {
			logger.WithError(err).Warn("failed to mark outbox message as sent")
		}
	}

	if len(events) > 0 {
		w.logger.WithFields(log.Fields{
			"sent":   result.Sent,
			"failed": result.Failed,
		}).Debug("outbox batch processed")
	}
	return result
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		err := w.publisher.Publish(event)
		if err == nil {
			w.metrics.RecordPublish(metrics.PublishSent)
			return nil
		}
		lastErr = err
		w.metrics.RecordPublish(metrics.PublishRetryError)

		if attempt == w.opts.MaxAttempts {
			break
		}

		delay := backoff(w.opts.RetryBaseDelay, attempt)
		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: %d attempts: %v", domain.ErrOutboxPublish, w.opts.MaxAttempts, lastErr)
}

func (w *Worker) refreshBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	var age time.Duration
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = time.Since(stats.OldestPendingAt)
	}
	w.metrics.SetBacklog(stats.PendingCount, age)
}

// backoff возвращает base * 2^(attempt-1) с защитой от переполнения.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

type deadLetterPayload struct {
	OutboxID     string          `json:"outbox_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	PublishError string          `json:"publish_error"`
	FailedAt     time.Time       `json:"failed_at"`
}

func (w *Worker) publishDeadLetter(event domain.OutboxMessage, publishErr error) error {
	if w.deadLetter == nil {
		return nil
	}

	original := json.RawMessage(event.Payload)
	if !json.Valid(original) {
		original = json.RawMessage("null")
	}
	payload, err := json.Marshal(deadLetterPayload{
		OutboxID:     event.ID,
		EventType:    event.EventType,
		Payload:      original,
		PublishError: publishErr.Error(),
		FailedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter payload: %w", err)
	}

	dead := event
	dead.Payload = payload
	if err := w.deadLetter.Publish(dead); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
