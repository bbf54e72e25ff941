package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/config"
	"github.com/petcontrol/pet-control/internal/dashboard"
	"github.com/petcontrol/pet-control/internal/observability"
	"github.com/petcontrol/pet-control/internal/persistence"
	"github.com/petcontrol/pet-control/internal/repository"
	"github.com/petcontrol/pet-control/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "dashboard")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("petcontrol_dashboard")
	}

	client := dashboard.NewAPIClient(cfg.Dashboard.APIBaseURL, cfg.Dashboard.VerifyTimeout())

	var verifier dashboard.Verifier
	switch cfg.Dashboard.VerifyMode {
	case config.VerifyModeLocal:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
		verifier = service.NewTokenVerifier(
			auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
			repository.NewTokenRevocationRepository(rdb.Client),
			logger,
		)
	default:
		verifier = dashboard.NewRemoteVerifier(client, logger)
	}
	logger.Info("token verification configured", zap.String("mode", string(cfg.Dashboard.VerifyMode)))

	app, err := dashboard.NewServer(dashboard.ServerConfig{
		API:      client,
		Verifier: verifier,
		Cookie: dashboard.CookieConfig{
			Name:   cfg.Dashboard.CookieName,
			Secure: cfg.Dashboard.CookieSecure,
		},
		LoginPath: cfg.Dashboard.LoginPath,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		logger.Fatal("failed to build dashboard", zap.Error(err))
	}

	go func() {
		logger.Info("dashboard listening", zap.String("addr", cfg.Dashboard.Addr()))
		if err := app.Listen(cfg.Dashboard.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
