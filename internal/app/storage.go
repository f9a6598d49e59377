package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

const (
	demoCustomers = 20
	demoProducts  = 25
)

// storage — набор репозиториев выбранного драйвера.
type storage struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	products  domain.ProductRepository
	outbox    domain.OutboxRepository
	// checker отсутствует у in-memory хранилища.
	checker health.Checker
	close   func() error
}

func openStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storage, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		return openMemoryStorage(cfg, logger), nil
	case StorageDriverPostgres:
		return openPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func openMemoryStorage(cfg Config, logger *log.Entry) *storage {
	var (
		customers []domain.Customer
		products  []domain.Product
	)
	if cfg.SeedDemoData {
		customers = memory.DemoCustomers(demoCustomers)
		products = memory.DemoProducts(demoProducts)
	}

	orders := memory.NewOrderRepository()
	logger.WithFields(log.Fields{
		"customers": len(customers),
		"products":  len(products),
	}).Info("using in-memory storage")

	return &storage{
		customers: memory.NewCustomerRepository(orders, customers...),
		orders:    orders,
		products:  memory.NewProductRepository(products...),
		outbox:    memory.NewOutboxRepository(),
		close:     func() error { return nil },
	}
}

func openPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storage, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		state, err := store.MigrationStatus(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migration status: %w", err)
		}
		logger.WithFields(log.Fields{
			"version": state.Version,
			"applied": state.Applied,
		}).Info("postgres migrations applied")
	}

	customers := postgres.NewCustomerRepository(store)
	products := postgres.NewProductRepository(store)
	if cfg.SeedDemoData {
		if err := customers.Upsert(ctx, memory.DemoCustomers(demoCustomers)...); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed customers: %w", err)
		}
		if err := products.Upsert(ctx, memory.DemoProducts(demoProducts)...); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed products: %w", err)
		}
	}

	logger.Info("using postgres storage")
	return &storage{
		customers: customers,
		orders:    postgres.NewOrderRepository(store),
		products:  products,
		outbox:    postgres.NewOutboxRepository(store),
		checker:   store,
		close:     store.Close,
	}, nil
}
