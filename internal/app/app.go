// Package app собирает сервис оформления заказов: хранилище, платёжные исполнители,
// проверку допуска, outbox и HTTP-серверы.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/service/eligibility"
	"github.com/vladislavdragonenkov/checkout/internal/service/httpapi"
	"github.com/vladislavdragonenkov/checkout/internal/service/outbox"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

const shutdownTimeout = 5 * time.Second

// components — собранный граф зависимостей без запущенных серверов.
type components struct {
	router  http.Handler
	health  *health.Handler
	service *checkout.Service
	checker *eligibility.Checker
	// worker и cleanup равны nil, если Kafka не настроен.
	worker  *outbox.Worker
	cleanup *outbox.CleanupWorker
}

// build связывает зависимости. producer может быть nil: тогда события не пишутся в outbox.
func build(cfg Config, st *storage, clk domain.Clock, producer *kafka.Producer, registerer prometheus.Registerer, logger *log.Entry) (*components, error) {
	registry, err := payment.NewRegistry(payment.DefaultExecutors(clk)...)
	if err != nil {
		return nil, fmt.Errorf("payment registry: %w", err)
	}

	checkoutMetrics := metrics.NewCheckoutMetricsWithRegisterer(registerer)
	checker := eligibility.NewChecker(st.customers, clk, checkoutMetrics, logger.WithField("component", "eligibility"))

	options := []checkout.Option{
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithLogger(logger.WithField("component", "checkout")),
	}
	if cfg.EnforceEligibility {
		options = append(options, checkout.WithEligibility(checker))
	}

	var (
		worker  *outbox.Worker
		cleanup *outbox.CleanupWorker
	)
	if producer != nil {
		outboxMetrics := metrics.NewOutboxMetrics(registerer)
		options = append(options, checkout.WithOutbox(st.outbox))
		worker = outbox.NewWorker(st.outbox, kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithDeadLetter(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)),
			outbox.WithMetrics(outboxMetrics),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.OutboxPoll),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		cleanup = outbox.NewCleanupWorker(st.outbox,
			outbox.WithCleanupMetrics(outboxMetrics),
			outbox.WithCleanupLogger(logger.WithField("component", "outbox-cleanup-worker")),
			outbox.WithCleanupClock(clk),
			outbox.WithCleanupInterval(cfg.OutboxCleanupInterval),
			outbox.WithRetention(cfg.OutboxRetention),
		)
	}

	svc := checkout.NewService(registry, checkout.Repositories{
		Customers: st.customers,
		Orders:    st.orders,
		Products:  st.products,
	}, clk, options...)

	healthHandler := health.NewHandler(version.GetVersion())
	if st.checker != nil {
		healthHandler.Register(st.checker)
	}

	router := httpapi.NewRouter(svc, checker, metrics.NewHTTPMetrics(registerer),
		logger.WithFields(log.Fields{"component": "http-api", "layer": "transport"}))

	logger.WithFields(log.Fields{
		"payment_methods":     registry.Methods(),
		"enforce_eligibility": cfg.EnforceEligibility,
		"outbox":              worker != nil,
	}).Info("checkout service assembled")

	return &components{
		router:  router,
		health:  healthHandler,
		service: svc,
		checker: checker,
		worker:  worker,
		cleanup: cleanup,
	}, nil
}

// Run запускает сервис и блокируется до отмены ctx или ошибки API-сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "app")

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	producer := connectKafka(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	c, err := build(cfg, st, clock.System(), producer, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if c.worker != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.worker.Run(workerCtx)
		}()
		go func() {
			defer wg.Done()
			c.cleanup.Run(workerCtx)
		}()
	}
	// Воркер останавливается до закрытия producer и хранилища.
	defer func() {
		stopWorker()
		wg.Wait()
	}()

	metricsSrv := startMetricsServer(cfg.MetricsAddr, logger, c.health)
	defer shutdownHTTP(metricsSrv, logger)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api: %w", err)
	}
}

// startMetricsServer запускает служебный сервер: /metrics, /healthz, /readyz, /livez.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newOpsMux(healthHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()
	return srv
}

func newOpsMux(healthHandler *health.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
