package outbox

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
	defaultRetention        = 24 * time.Hour
)

// CleanupOptions задаёт параметры очистки доставленных сообщений.
type CleanupOptions struct {
	Logger    *log.Entry
	Metrics   *metrics.OutboxMetrics
	Clock     domain.Clock
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithCleanupLogger задаёт logger.
func WithCleanupLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithCleanupMetrics задаёт метрики очистки.
func WithCleanupMetrics(m *metrics.OutboxMetrics) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Metrics = m
	}
}

// WithCleanupClock задаёт источник текущего времени.
func WithCleanupClock(c domain.Clock) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Clock = c
	}
}

// WithCleanupInterval задаёт интервал между запусками.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithCleanupBatchSize задаёт размер одного удаления.
func WithCleanupBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithRetention задаёт, сколько хранить доставленные сообщения.
func WithRetention(retention time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Retention = retention
	}
}

// CleanupWorker периодически удаляет доставленные сообщения старше Retention.
// Pending и failed сообщения не трогает.
type CleanupWorker struct {
	repo      domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.OutboxMetrics
	clock     domain.Clock
	interval  time.Duration
	batchSize int
	retention time.Duration
}

// NewCleanupWorker создаёт воркер очистки outbox.
func NewCleanupWorker(repo domain.OutboxRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
		Retention: defaultRetention,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "outbox-cleanup-worker")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &CleanupWorker{
		repo:      repo,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		retention: opts.Retention,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("outbox cleanup worker is disabled: repo is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	deleted, err := w.DeleteDelivered(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.metrics.RecordCleanup(metrics.CleanupError, deleted)
		w.logger.WithError(err).Warn("outbox cleanup run failed")
		return
	}

	w.metrics.RecordCleanup(metrics.CleanupOK, deleted)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("outbox cleanup completed")
	}
}

// DeleteDelivered удаляет доставленные сообщения старше retention порциями batchSize.
func (w *CleanupWorker) DeleteDelivered(ctx context.Context) (int, error) {
	before := w.clock.Now().UTC().Add(-w.retention)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.repo.DeleteSentBefore(before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
