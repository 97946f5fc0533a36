package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tourdesk-shift-settlement/internal/api_gateway"
	"github.com/tourdesk-shift-settlement/internal/bootstrap"
	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/logger"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
)

func main() {
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	m := metrics.New(nil)
	backend, err := bootstrap.NewBackend(ctx, log, cfg, m)
	if err != nil {
		log.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	server := api_gateway.NewServer(log, cfg, backend.Shifts, backend.Settings, m.Handler())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", "error", err)
			exitCode = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// requests drain before the pools they use are closed
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
		exitCode = 1
	}
	if err := backend.Close(shutdownCtx); err != nil {
		log.Error("Failed to close database connections", "error", err)
		exitCode = 1
	}

	log.Info("API gateway stopped", "exit_code", exitCode)
	cancel()
	os.Exit(exitCode)
}
