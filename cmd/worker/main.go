package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"homework/internal/app"
	"homework/internal/config"
	"homework/internal/logging"
)

// Worker runs the daily cleanup of stale leaves and closed homework.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Must(cfg.Production(), cfg.LogLevel).Named("janitor")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	backend, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("backend init failed", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	log.Info("worker started", zap.Int("hour", cfg.JanitorHour))
	if err := backend.Service.RunDaily(ctx, cfg.JanitorHour); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("janitor stopped", zap.Error(err))
		return
	}
	log.Info("worker stopped")
}
