package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"groundops/internal/app/server"
	"groundops/internal/platform/config"
	"groundops/internal/platform/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("groundops server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
	return app.Run(ctx)
}
