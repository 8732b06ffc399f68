package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/anhhuy04/ai-lms-prd/internal/backendfactory"
	"github.com/anhhuy04/ai-lms-prd/internal/config"
	"github.com/anhhuy04/ai-lms-prd/internal/dataset"
	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/metrics"
	"github.com/anhhuy04/ai-lms-prd/internal/queuefactory"
	"github.com/anhhuy04/ai-lms-prd/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("DBOPS_CONFIG"))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)

	// Check if queue is enabled
	if !cfg.Queue.Enabled {
		logger.Fatalf("Queue is not enabled. Set DBOPS_QUEUE_ENABLED=true to use the worker")
	}

	store, err := backendfactory.Open(cfg.Connection())
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	exec := executor.NewExecutor(store, dataset.NewLoader(), executor.Defaults{
		Table:      cfg.Seed.Table,
		Policy:     cfg.Seed.Policy,
		KeyColumns: cfg.Seed.KeyColumns,
		LabelField: cfg.Seed.LabelField,
	})
	exec.SetMetrics(metrics.NewMetrics(nil))

	q, err := queuefactory.NewQueue(&cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to create queue: %v", err)
	}

	w := worker.NewWorker(exec, q)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Seed worker started. Press Ctrl+C to stop.")

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Worker error: %v", err)
	}

	logger.Info("Shutting down worker...")
	if err := w.Stop(); err != nil {
		logger.Errorf("Error stopping worker: %v", err)
	}
	logger.Info("Worker stopped")
}
