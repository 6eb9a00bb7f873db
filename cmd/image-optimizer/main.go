package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/config"
	"github.com/aliskhannn/image-optimizer/internal/infra/kafka/consumer"
	"github.com/aliskhannn/image-optimizer/internal/kafka/handlers/event"
	"github.com/aliskhannn/image-optimizer/internal/optimizer"
	"github.com/aliskhannn/image-optimizer/internal/storage/object"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Retry strategy for the Kafka transport edge.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize the object store client (MinIO). Created once and
	// reused across batches.
	storage, err := object.NewStorage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Optimization pipeline and the batch handler on top of it.
	opt := optimizer.New(storage, optimizer.Config{
		SourcePrefix: cfg.Optimizer.SourcePrefix,
		DestPrefix:   cfg.Optimizer.DestPrefix,
		Quality:      cfg.Optimizer.Quality,
	})
	batchHandler := event.NewBatchHandler(opt)

	// Kafka consumer feeding batches of storage-change events.
	c := consumer.New(&cfg.Kafka, strategy, batchHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()
	zlog.Logger.Info().Msg("consumer stopped")
}
