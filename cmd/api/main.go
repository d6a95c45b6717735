package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/app"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/auth"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/db"
	httpserver "github.com/WailSalutem-Health-Care/registry-sync/internal/http"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/logging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "registry-sync")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("registry-sync API stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig("registry-sync"), logger)
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
		return err
	}
	defer database.Close()

	application, err := app.New(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	authCfg := auth.ConfigFrom(cfg.Auth)
	jwks, err := auth.NewJWKS(authCfg.JWKSURL, authCfg.JWKSRefresh, logger)
	if err != nil {
		return err
	}
	defer jwks.Close()

	perms, err := auth.LoadPermissions(cfg.Auth.PermissionsFile)
	if err != nil {
		return err
	}

	router := httpserver.SetupRouter(httpserver.Services{
		Patient:   application.Patients,
		Search:    application.Searches,
		Reconcile: application.Reconciler,
	}, httpserver.Options{
		Verifier:     auth.NewVerifier(authCfg, jwks),
		Permissions:  perms,
		Metrics:      application.Metrics,
		DefaultLimit: cfg.Registry.PageSize,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.CORSMiddleware(cfg.CORSOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("registry-sync API starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down registry-sync API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
