package routes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/config"
	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/inventory"
	"github.com/shabakat/ledger/internal/metrics"
	"github.com/shabakat/ledger/internal/middleware"
	"github.com/shabakat/ledger/internal/notification"
	"github.com/shabakat/ledger/internal/reporting"
	"github.com/shabakat/ledger/internal/store"
	"github.com/shabakat/ledger/internal/wallet"
	"github.com/shabakat/ledger/internal/withdrawal"
)

const migrateTimeout = 30 * time.Second

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Store overrides the backend chosen from DB. Tests use it to inject
	// a prepared in-memory store.
	Store store.Store
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	docs, err := buildStore(d, m)
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Metrics(m))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	customers := customer.NewService(docs)
	catalogSvc := catalog.NewService(docs, catalog.NewRedisCache(d.Cache), d.Cfg.CatalogCacheTTL, d.Logger)
	inventorySvc := inventory.NewService(docs, d.Logger)
	walletSvc := wallet.NewService(wallet.Deps{
		Store:          docs,
		Catalog:        catalogSvc,
		Inventory:      inventorySvc,
		Customers:      customers,
		Notifier:       notifier,
		Metrics:        m,
		Logger:         d.Logger,
		CommissionRate: d.Cfg.CommissionRate,
	})
	withdrawalSvc := withdrawal.NewService(docs, notifier, m, d.Logger)

	api := app.Group("/api/v1")
	protected := api.Group("", middleware.Actor([]byte(d.Cfg.JWTSecret)), middleware.Audit(d.Logger))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	spend := middleware.SpendRateLimit(d.Cache, d.Cfg.SpendRateLimit)

	RegisterCustomerRoutes(protected, customer.NewHandler(customers))
	RegisterCatalogRoutes(protected, catalog.NewHandler(catalogSvc), inventory.NewHandler(inventorySvc))
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc), spend)
	RegisterWithdrawalRoutes(protected, withdrawal.NewHandler(withdrawalSvc))
	RegisterNotificationRoutes(protected, notification.NewHandler(notification.NewService(docs)))
	RegisterReportRoutes(protected, reporting.NewHandler(reporting.NewService(inventorySvc), catalogSvc))

	return nil
}

func buildStore(d Deps, m *metrics.Metrics) (store.Store, error) {
	if d.Store != nil {
		return d.Store, nil
	}
	policy := store.RetryPolicy{
		MaxAttempts: d.Cfg.TxMaxAttempts,
		BaseBackoff: d.Cfg.TxBaseBackoff,
		MaxBackoff:  25 * d.Cfg.TxBaseBackoff,
		OnRetry:     m.RetryHook(),
	}
	if d.DB == nil {
		d.Logger.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewInMemory(policy), nil
	}
	pg := store.NewPostgres(d.DB, policy)
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := pg.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate document store: %w", err)
	}
	return pg, nil
}
