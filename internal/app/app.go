// Package app wires the registry workflows from a loaded configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/locker"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/messaging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/patient"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/search"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/telemetry"
)

// App holds the workflows shared by the operator API, the CLI and the
// reconcile job.
type App struct {
	Patients   *patient.Service
	Searches   *search.Service
	Reconciler *reconcile.Service
	Metrics    *telemetry.Metrics

	logger  *zap.Logger
	closers []func() error
}

// New builds every workflow on top of db. RabbitMQ and Redis are optional:
// without RABBITMQ_URL no events are published and without REDIS_URL no
// donor locks are taken. A configured Redis that cannot be reached is an
// error; an unreachable broker only disables publishing.
func New(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*App, error) {
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	a := &App{Metrics: metrics, logger: logger}

	lock, closeLock, err := locker.New(ctx, cfg.RedisURL, cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLock)
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, donor locks disabled")
	}

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("failed to initialize RabbitMQ publisher, continuing without events", zap.Error(err))
		} else {
			publisher = p
			a.closers = append(a.closers, p.Close)
		}
	} else {
		logger.Info("RABBITMQ_URL not set, events disabled")
	}

	donors := donor.NewRepository(db, logger)
	tokens := registry.NewTokenProvider(cfg.Registry, logger).WithMetrics(metrics)
	api := registry.NewClient(cfg.Registry, logger).WithMetrics(metrics)

	a.Patients = patient.NewService(donors, tokens, api, logger).
		WithLocker(lock).
		WithMetrics(metrics)
	a.Searches = search.NewService(donors, tokens, api, logger).
		WithLocker(lock).
		WithMetrics(metrics)
	a.Reconciler = reconcile.NewService(donors, tokens, api, cfg.Registry.PageSize, logger).
		WithLocker(lock).
		WithMetrics(metrics)

	if publisher != nil {
		a.Patients.WithPublisher(publisher)
		a.Searches.WithPublisher(publisher)
		a.Reconciler.WithPublisher(publisher)
	}
	return a, nil
}

// Close releases the broker and Redis connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error during shutdown", zap.Error(err))
		}
	}
}
