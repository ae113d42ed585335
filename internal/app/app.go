package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/api"
	healthcheck "github.com/saveup/marketplace/internal/health"
	"github.com/saveup/marketplace/internal/messaging/kafka"
	"github.com/saveup/marketplace/internal/service/confirmation"
	"github.com/saveup/marketplace/internal/service/idempotency"
	"github.com/saveup/marketplace/internal/service/loyalty"
	"github.com/saveup/marketplace/internal/service/outbox"
	"github.com/saveup/marketplace/internal/version"
)

// Run собирает сервис подтверждения заказов и держит его до отмены ctx:
// HTTP API для панели персонала, сервер метрик с health-пробами, outbox
// worker с публикацией в Kafka и уборщик просроченных idempotency-ключей.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	engine := confirmation.NewEngine(
		deps.Orders,
		deps.Outbox,
		deps.Timeline,
		deps.Gateway,
		logger.WithField("component", "confirmation"),
	)
	awards := loyalty.NewService(deps.Products, deps.Outbox, logger.WithField("component", "loyalty"))
	server := api.NewServer(
		deps.Orders,
		deps.Products,
		deps.Timeline,
		deps.Outbox,
		deps.Idempotency,
		engine,
		awards,
		logger.WithField("component", "api"),
	)

	// Kafka опционален: без brokers outbox worker не запускается и события
	// копятся в backlog до появления publisher.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	if producer != nil {
		publisher := kafka.NewOutboxPublisher(producer, cfg.OutboxTopic,
			kafka.WithAggregateTopic(kafka.AggregateTypeLoyalty, kafka.TopicLoyaltyEvents))
		dlqPublisher := kafka.NewOutboxPublisher(producer, cfg.OutboxDLQTopic)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		go worker.Run(ctx)
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanupWorker.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Ping(pingCtx)
	}))
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.Outbox, cfg.OutboxMaxPending, 10*time.Minute))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(producer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(producer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
