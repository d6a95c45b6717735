package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/app"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/db"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/logging"
)

func main() {
	if err := newRootCmd(loadServices).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadServices connects to the donor store and builds the workflows from
// the environment. The returned func releases everything it opened.
func loadServices(ctx context.Context) (*services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "registry-sync-cli")
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}

	application, err := app.New(ctx, cfg, database, logger)
	if err != nil {
		database.Close()
		logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		application.Close()
		if err := database.Close(); err != nil {
			logger.Warn("error closing donor store", zap.Error(err))
		}
		logger.Sync()
	}

	return &services{
		patients:   application.Patients,
		searches:   application.Searches,
		reconciler: application.Reconciler,
		pageSize:   cfg.Registry.PageSize,
	}, cleanup, nil
}
