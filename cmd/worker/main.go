package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/benvon/trip-planner/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("elasticsearch_index", cfg.ElasticsearchIndex),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required")
	}
	if cfg.ElasticsearchURL == "" {
		zapLogger.Fatal("elasticsearch_url_required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := search.NewElasticProvider(cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
	if err != nil {
		zapLogger.Fatal("failed_to_create_catalog_client", zap.Error(err))
	}
	catalog.SetLogger(zapLogger)
	if err := catalog.EnsureIndex(ctx); err != nil {
		zapLogger.Fatal("failed_to_ensure_catalog_index", zap.Error(err))
	}
	zapLogger.Info("catalog_ready", zap.String("index", cfg.ElasticsearchIndex))

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	dlqGC := queue.NewGarbageCollector(jobQueue, queue.DefaultSweepInterval, queue.DefaultDeadLetterRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	indexer := workers.NewPlaceIndexer(catalog, jobQueue, zapLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		indexer.Run(ctx, msgChan, errChan)
	}()

	select {
	case <-sigChan:
		zapLogger.Info("worker_shutdown_signal_received")
	case <-done:
		zapLogger.Warn("worker_consumer_stopped")
	}

	cancel()
	<-done

	zapLogger.Info("worker_stopped")
}
