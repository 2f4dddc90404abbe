// Command worker wires together the ambient stack and the run engine: it
// connects to NATS, sets up tracing and Sentry, builds the built-in node
// registry, and runs a natsrun.Runner until it receives a shutdown signal.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/flowforge/engine/internal/logging"
	natsconn "github.com/flowforge/engine/internal/nats"
	"github.com/flowforge/engine/internal/tracing"
	"github.com/flowforge/engine/pkg/concurrency"
	"github.com/flowforge/engine/pkg/engine"
	"github.com/flowforge/engine/pkg/nodes/all"
	"github.com/flowforge/engine/pkg/reportstore"
	"github.com/flowforge/engine/pkg/storage"
	"github.com/flowforge/engine/transport/natsrun"
)

func main() {
	undoMaxProcs := concurrency.InitializeForKubernetes()
	defer undoMaxProcs()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: envOr("ENVIRONMENT", "development")}); err != nil {
			logger.Warn("failed to init sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	tracingConfig := tracing.DefaultConfig(envOr("SERVICE_NAME", "flowforge-engine"))
	tracingConfig.Environment = envOr("ENVIRONMENT", "development")
	if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
		tracingConfig.OTLPEndpoint = endpoint
	}
	shutdownTracing, err := tracing.SetupTracing(ctx, tracingConfig, logger)
	if err != nil {
		logger.Warn("failed to set up tracing, continuing without it", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		_ = tracing.ShutdownTracing(shutdownTracing, logger)
	}()

	connCfg := natsconn.DefaultConnectionConfig(envOr("NATS_URL", "nats://localhost:4222"))
	connCfg.Name = "flowforge-worker"
	conn, err := natsconn.Connect(ctx, connCfg)
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer natsconn.Close(conn)

	var blobClient storage.BlobStorageClient
	if connStr := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); connStr != "" {
		container := envOr("AZURE_STORAGE_CONTAINER", "workflow-reports")
		azClient, err := storage.NewAzureBlobClient(connStr, container, logger)
		if err != nil {
			logger.Warn("failed to configure blob storage, large reports will fail to offload", zap.Error(err))
		} else {
			blobClient = azClient
		}
	}
	store := reportstore.New(blobClient, logger)

	reg := all.NewRegistry()
	eng := engine.New(reg)

	runner, err := natsrun.NewRunner(conn, eng, store, natsrun.Config{
		Stream:        envOr("RUN_STREAM", "WORKFLOW_RUNS"),
		Consumer:      envOr("RUN_CONSUMER", "workflow-worker"),
		ResultSubject: envOr("RUN_RESULT_SUBJECT", "workflow.result"),
		BatchSize:     envInt("RUN_BATCH_SIZE", 10),
		NumWorkers:    envInt("RUN_WORKERS", 10),
		EngineOptions: engine.Options{
			Logger: logging.NewZap(logger),
		},
	}, logger)
	if err != nil {
		logger.Fatal("failed to create runner", zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting run coordinator worker")
		if err := runner.Run(runCtx); err != nil && err != context.Canceled {
			logger.Error("runner stopped with error", zap.Error(err))
		}
		logger.Info("run coordinator worker stopped")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received, stopping")
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		logger.Info("worker stopped gracefully")
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
