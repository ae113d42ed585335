package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/service/payment"
	"github.com/saveup/marketplace/internal/storage/memory"
	"github.com/saveup/marketplace/internal/storage/postgres"
)

// Dependencies содержит хранилища и внешние клиенты приложения.
type Dependencies struct {
	Orders      domain.OrderRepository
	Products    domain.ProductRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Gateway     domain.RefundGateway
	Logger      *log.Entry

	store *postgres.Store
}

// NewDependencies собирает зависимости по конфигурации: in-memory хранилище
// для разработки или PostgreSQL для production. Платёжный шлюз подключается
// по HTTP, если задан его адрес, иначе используется mock с успешными
// возвратами.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Products = postgres.NewProductRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		deps.Idempotency = postgres.NewIdempotencyRepository(store)
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		deps.Orders = memory.NewOrderRepository()
		deps.Products = memory.NewProductRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.Idempotency = memory.NewIdempotencyRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.RefundGatewayURL != "" {
		deps.Gateway = payment.NewHTTPGateway(payment.GatewayConfig{
			BaseURL: cfg.RefundGatewayURL,
			APIKey:  cfg.RefundGatewayAPIKey,
			Timeout: cfg.RefundGatewayTimeout,
		}, logger.WithField("component", "payment-gateway"))
	} else {
		logger.Warn("refund gateway url is not set, using mock gateway")
		deps.Gateway = payment.NewMockGateway()
	}

	return deps, nil
}

// Ping проверяет доступность хранилища. In-memory хранилище всегда доступно.
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	return d.store.Ping(ctx)
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
