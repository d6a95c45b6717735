package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/app"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/db"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/logging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "registry-reconcile")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("reconcile job failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one reconcile pass. Every resource it opens is released
// before it returns, including on failure.
func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("reconcile job starting", zap.Int("page_size", cfg.Registry.PageSize))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	provider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig("registry-reconcile"), logger)
	if err != nil {
		logger.Warn("failed to initialize OpenTelemetry", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			provider.Shutdown(shutdownCtx)
		}()
	}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to donor store: %w", err)
	}
	defer database.Close()

	application, err := app.New(ctx, cfg, database, logger)
	if err != nil {
		return fmt.Errorf("failed to build workflows: %w", err)
	}
	defer application.Close()

	return reconcileOnce(ctx, application.Reconciler, logger)
}

func reconcileOnce(ctx context.Context, reconciler reconcile.ServiceInterface, logger *zap.Logger) error {
	result, err := reconciler.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	logger.Info("reconcile job finished",
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return nil
}
