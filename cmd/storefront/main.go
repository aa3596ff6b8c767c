package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/admin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/orders"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

func main() {
	cfg := config.Load()
	logging.Configure(os.Stdout, cfg.LogLevel)

	logger := logging.NewLoggerV2("storefront-service")
	logging.Infof("Starting storefront-service on port %d", cfg.Server.Port)

	appMetrics := metrics.New()

	var checkoutRepo repository.CheckoutRepository
	var db *sql.DB
	if cfg.Database.Enabled {
		var err error
		db, err = initDatabase(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
		}
		defer db.Close()

		pgRepo := repository.NewPostgresCheckoutRepository(db, logger)
		if err := pgRepo.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate database", logging.Fields{"error": err.Error()})
		}
		checkoutRepo = pgRepo
	} else {
		logger.Warn("Database disabled, checkout attempts are kept in memory")
		checkoutRepo = repository.NewMemoryCheckoutRepository()
	}

	var rdb *redis.Client
	var sessionStore session.Store = session.NewMemoryStore()
	var catalogCache repository.CatalogCache
	if cfg.Redis.Enabled {
		rdb = repository.NewRedisClient(cfg.Redis)
		defer rdb.Close()

		sessionStore = session.NewRedisStore(rdb, cfg.Redis.SessionTTL)
		if cfg.Features.EnableCatalogCaching {
			cache := repository.NewRedisCatalogCache(rdb, cfg.Redis.CatalogTTL)
			cache.OnLookup = appMetrics.ObserveCache
			catalogCache = cache
		}
	}

	backend := clients.NewBackend(cfg.Backend, logger)

	gateway := clients.NewHostedCheckout(cfg.Payment, logger)
	if err := gateway.Load(context.Background()); err != nil {
		// Log but don't fail: COD keeps working without the gateway
		logger.Warn("Hosted checkout unavailable", logging.Fields{"error": err.Error()})
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Features.EnableCheckoutEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	rules := pricing.RulesFromConfig(cfg.Pricing)
	checkoutService := checkout.NewService(
		checkoutRepo,
		backend,
		backend,
		gateway,
		publisher,
		rules,
		rules.CartRules(cfg.Pricing.CartPlatformFee),
		appMetrics,
	)
	catalogService := catalog.NewService(backend, catalogCache)
	ordersService := orders.NewService(backend, publisher, appMetrics)
	adminService := admin.NewService(backend)

	sessions := session.NewManager(sessionStore)
	h := handlers.NewHandlers(catalogService, checkoutService, ordersService, adminService, sessions, cfg)
	if db != nil {
		h.AddReadinessCheck("database", db.PingContext)
	}
	if rdb != nil {
		h.AddReadinessCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	srv := server.New(h, cfg, appMetrics, sessions, session.NewAdminParser(cfg.Auth.AdminJWTSecret))

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":            cfg.Server.Port,
			"database":        cfg.Database.Enabled,
			"redis":           cfg.Redis.Enabled,
			"checkout_events": cfg.Features.EnableCheckoutEvents,
			"payment_events":  cfg.Features.EnablePaymentEvents,
			"payment_gateway": gateway.Ready(),
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var eventConsumer *events.KafkaConsumer
	if cfg.Features.EnablePaymentEvents {
		eventConsumer = events.NewKafkaConsumer(cfg.Kafka, checkoutService, logger)
		go func() {
			if err := eventConsumer.Start(context.Background()); err != nil {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if eventConsumer != nil {
		eventConsumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
