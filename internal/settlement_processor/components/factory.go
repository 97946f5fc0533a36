package components

import (
	"log/slog"
	"time"

	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/platform/messaging/producers"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

// CreateEventProcessor wires the ingest service behind the worker pool. The
// returned release is never nil.
func CreateEventProcessor(
	store service.IngestStore,
	dlq producers.DeadLetterPublisher,
	recorder service.Recorder,
	logger *slog.Logger,
	cfg *config.Config,
) (service.EventProcessor, func(time.Duration)) {
	baseService := service.NewIngestService(
		store,
		NewEventValidator(logger),
		NewEntryMapper(logger),
		NewRejectionRecorder(dlq, logger.With("component", "rejections")),
		recorder,
		logger.With("component", "ingest"),
	)

	pooled, err := service.NewPooledProcessor(
		baseService,
		service.PoolConfig{Size: cfg.WorkerPool.Size, IdleExpiry: time.Minute},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Worker pool unavailable, applying events inline", "error", err)
		return baseService, func(time.Duration) {}
	}

	logger.Info("Worker pool ready", "pool_size", pooled.Capacity())
	return pooled, pooled.Release
}
