package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog-manager/internal/config"
	"catalog-manager/internal/logger"
	"catalog-manager/internal/repository"
	"catalog-manager/internal/service"
	"catalog-manager/internal/storage"
	"catalog-manager/internal/transport"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewWithDefaults()
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	log, err := logger.New(cfg.App.Env, cfg.Log.File)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting catalog manager",
		zap.String("env", cfg.App.Env),
		zap.String("storage_path", cfg.Storage.Path),
		zap.String("storage_format", cfg.Storage.Format),
	)

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		if errors.Is(err, storage.ErrCorruptStorage) {
			fmt.Fprintf(os.Stderr, "The catalog file %s is corrupt and was left untouched: %v\n", cfg.Storage.Path, err)
		}
		log.Fatal("Catalog manager failed", zap.Error(err))
	}

	log.Info("Catalog manager exiting")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	repo, err := repository.NewProductRepository(ctx, backend, log)
	if err != nil {
		_ = backend.Close()
		return err
	}
	// Close blocks until an in-flight save has committed
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("Error closing storage", zap.Error(err))
		}
	}()
	log.Info("Catalog loaded", zap.Int("products", repo.Count()))

	catalog := service.NewCatalogService(repo, log)
	console := transport.NewConsoleHandler(catalog, os.Stdin, os.Stdout, cfg.App.PageSize, log)

	// The console may stay blocked on stdin after an interrupt, so it is
	// not waited for; the store's Close serializes with its mutations.
	done := make(chan error, 1)
	go func() {
		done <- console.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("console failed: %w", err)
		}
	case <-ctx.Done():
		fmt.Fprintln(os.Stdout)
		log.Info("Shutting down gracefully")
	}

	return nil
}
