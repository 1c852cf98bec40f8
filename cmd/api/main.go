package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"shopcore/internal/cart"
	"shopcore/internal/catalog"
	"shopcore/internal/config"
	"shopcore/internal/database"
	"shopcore/internal/events"
	"shopcore/internal/handler"
	"shopcore/internal/ledger"
	"shopcore/internal/order"
	"shopcore/internal/payment"
	"shopcore/internal/policy"
	"shopcore/internal/pricing"
	"shopcore/internal/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopcore API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: postgres when configured, in-process otherwise. The memory
	// ledger pushes stock changes back into the memory catalogue; the
	// postgres pair shares the products table, so no notifier is needed.
	var (
		catalogStore catalog.Store
		stockLedger  ledger.Ledger
		orderStore   order.Store
	)
	if cfg.Database.Enabled {
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		catalogStore = catalog.NewPostgresStore(pool, logger)
		stockLedger = ledger.NewPostgresLedger(pool, logger)
		orderStore = order.NewPostgresStore(pool, logger)
	} else {
		memCatalog := catalog.NewMemoryStore()
		catalogStore = memCatalog
		stockLedger = ledger.NewMemoryLedger(memCatalog, logger)
		orderStore = order.NewMemoryStore()
		logger.Info().Msg("database disabled, using in-memory storage")
	}

	// Carts: redis session cache when configured.
	var cartStore cart.Store
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		defer client.Close()
		cartStore = cart.NewRedisStore(client)
	} else {
		cartStore = cart.NewMemoryStore()
		logger.Info().Msg("redis disabled, using in-memory cart store")
	}

	// Order events: kafka when configured, dropped otherwise.
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		publisher = events.NopPublisher{}
		logger.Info().Msg("kafka disabled, order events will be dropped")
	}

	// Pricing policies: jurisdiction file from S3 with local fallback.
	fileLoader := policy.NewFileLoader(logger)
	policyLoader := fileLoader
	if cfg.Policy.S3Enabled {
		s3Loader, err := policy.NewS3Loader(ctx, cfg.Policy.S3Bucket, cfg.Policy.S3Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 policy loader, falling back to local file system only")
		} else {
			policyLoader = policy.NewFallbackLoader(s3Loader, fileLoader, cfg.Policy.S3Prefix, logger)
		}
	}

	defaultPolicy := pricing.Policy{
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		TaxRate:               cfg.Pricing.TaxRate,
	}
	policies, err := policy.NewResolver(ctx, policyLoader, cfg.Policy.FilePath, defaultPolicy, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize policy resolver: %w", err)
	}

	// Services.
	cartService := cart.NewManager(cartStore, catalogStore, policies, logger)
	orderService := order.NewService(
		orderStore, cartService, catalogStore, stockLedger,
		payment.NewMockGateway(), policies, publisher, logger,
	)

	// HTTP facade.
	productHandler := handler.NewProductHandler(catalogStore, stockLedger, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	mux := router.New(productHandler, cartHandler, orderHandler, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
