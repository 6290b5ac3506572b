package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/app"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	instance, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build service", zap.Error(err))
	}
	defer instance.Close()

	if err := instance.Start(ctx); err != nil {
		logger.Fatal("failed to start workers", zap.Error(err))
	}

	server := instance.HTTP()
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("version", cfg.App.Version))
		listenErr <- server.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		logger.Error("http server stopped", zap.Error(err))
	}

	if err := server.ShutdownWithTimeout(shutdownGrace); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}
