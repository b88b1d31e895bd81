package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrops-br/products-catalog-api/internal/app/service"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/messaging/rabbitmq"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/repository/cache"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/repository/postgres"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/telemetry"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize telemetry
	telem, err := telemetry.NewTelemetry(&cfg.OTLP)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := telem.TracerProvider.Tracer("products-api")
	meter := telem.MeterProvider.Meter("products-api")
	logger := telem.Logger

	logger.Info("Starting Products API")

	repo, closeRepo, err := newRepository(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeRepo()

	// Connect to the broker; the API still serves when it is down
	publisher := rabbitmq.NewPublisher(cfg.Broker.ProductExchange, tracer, logger)
	broker := rabbitmq.NewConnectionManager(cfg.Broker, publisher, logger)
	if err := broker.Start(ctx); err != nil {
		logger.Warn("RabbitMQ unavailable, product events will not be published",
			slog.String("error", err.Error()),
		)
	}

	productService := service.NewProductService(repo, publisher, tracer, meter, logger)

	server := http.NewServer(
		&cfg.Server,
		handler.NewProductHandler(productService, logger),
		handler.NewHealthHandler(broker),
		telem.MeterProvider,
		logger,
	)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", slog.String("error", err.Error()))
	}
	broker.Stop(shutdownCtx)

	logger.Info("Server stopped")
}

// newRepository builds the configured store, decorated with the Redis cache
// when REDIS_URL is set. The returned func releases its connections.
func newRepository(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (domain.ProductRepository, func(), error) {
	var (
		repo    domain.ProductRepository
		closers []func()
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		repo = postgres.NewProductRepository(pool, tracer, logger)
		logger.Info("Using PostgreSQL product repository")
	default:
		repo = memory.NewProductRepository(tracer, logger)
		logger.Info("Using in-memory product repository")
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Cache.RedisURL == "" {
		return repo, closeAll, nil
	}

	client, err := newRedisClient(ctx, cfg.Cache.RedisURL)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = client.Close() })
	logger.Info("Redis product cache enabled", slog.Duration("ttl", cfg.Cache.TTL))

	return cache.NewProductRepository(repo, client, cfg.Cache.TTL, tracer, logger), closeAll, nil
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not ping redis: %w", err)
	}
	return client, nil
}
