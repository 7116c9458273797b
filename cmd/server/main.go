package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/handlers"
	"github.com/benvon/trip-planner/internal/location"
	"github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/middleware"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/benvon/trip-planner/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("search_provider", cfg.SearchProvider),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer := telemetry.Setup(ctx, cfg.OTELEnabled && cfg.OTELEndpoint != "", telemetry.ServiceName, cfg.OTELEndpoint, zapLogger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	store, err := storage.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		zapLogger.Fatal("failed_to_open_store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()
	zapLogger.Info("store_opened", zap.String("driver", cfg.StoreDriver))

	tripPlanner := planner.Open(ctx, store, zapLogger)

	// Place index jobs are optional; without RabbitMQ the catalog is simply not kept in sync
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectQueue(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		tripPlanner.SetJobQueue(jobQueue)

		if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
			dlqGC := queue.NewGarbageCollector(dlqPurger, queue.DefaultSweepInterval, queue.DefaultDeadLetterRetention, zapLogger)
			go func() {
				if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
				}
			}()
		}
	}

	coordinator, provider, err := newCoordinator(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_search_coordinator", zap.Error(err))
	}
	if coordinator != nil {
		defer coordinator.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}
	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	healthChecker := handlers.NewHealthChecker(store)
	if jobQueue != nil {
		healthChecker.AddProbe("queue", jobQueue.HealthCheck)
	}
	if redisClient != nil {
		healthChecker.AddProbe("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	if pinger, ok := provider.(interface{ Ping(context.Context) error }); ok {
		healthChecker.AddProbe("catalog", pinger.Ping)
	}
	api := &handlers.API{
		Trips:    handlers.NewTripHandler(tripPlanner, zapLogger),
		Sessions: handlers.NewSessionHandler(tripPlanner, coordinator, zapLogger),
		Staging:  handlers.NewStagingHandler(tripPlanner, zapLogger),
		Search:   handlers.NewSearchHandler(coordinator, zapLogger),
		Health:   healthChecker,
	}

	// gorilla/mux runs middleware in registration order, first registered is outermost
	r := mux.NewRouter()
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(false))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	api.Register(r, rateLimitMW)

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// newCoordinator returns nil when no search provider is configured
func newCoordinator(cfg *config.Config, zapLogger *zap.Logger) (*search.Coordinator, search.Provider, error) {
	provider, err := search.NewProvider(search.ProviderConfig{
		Kind:          cfg.SearchProvider,
		GoogleAPIKey:  cfg.GooglePlacesAPIKey,
		GoogleBaseURL: cfg.GooglePlacesBaseURL,
		ElasticURL:    cfg.ElasticsearchURL,
		ElasticIndex:  cfg.ElasticsearchIndex,
	}, zapLogger)
	if err != nil {
		return nil, nil, err
	}
	if provider == nil {
		zapLogger.Info("search_disabled")
		return nil, nil, nil
	}

	coordinator, err := search.NewCoordinator(provider, location.FromConfig(cfg.DeviceLatitude, cfg.DeviceLongitude), search.Options{
		MinQueryLength: cfg.SearchMinQueryLength,
		Debounce:       cfg.SearchDebounce,
		RadiusMeters:   cfg.SearchRadiusMeters,
		Rate:           cfg.SearchRate,
		Fallback:       search.FallbackAnchor,
	})
	if err != nil {
		return nil, nil, err
	}
	coordinator.SetLogger(zapLogger)
	return coordinator, provider, nil
}

// connectQueue retries with exponential backoff to ride out RabbitMQ startup
func connectQueue(url string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
