package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tourdesk-shift-settlement/internal/bootstrap"
	"github.com/tourdesk-shift-settlement/internal/cli"
	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/logger"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(connect)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// connect builds the same service graph the HTTP gateway runs on. Logs go to
// stderr so stdout carries only the command's JSON.
func connect(ctx context.Context, configName string) (*cli.Services, func(), error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewLoggerTo(os.Stderr, cfg)

	backend, err := bootstrap.NewBackend(ctx, log, cfg, metrics.New(nil))
	if err != nil {
		return nil, nil, err
	}

	release := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.Timeout)
		defer cancel()
		if err := backend.Close(shutdownCtx); err != nil {
			log.Error("Error closing connections", "error", err)
		}
	}

	return &cli.Services{Shifts: backend.Shifts, Settings: backend.Settings}, release, nil
}
