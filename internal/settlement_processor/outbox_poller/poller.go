// Package outbox_poller publishes closed-day reports written by the closing
// transaction.
package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Poller hands pending closed-day reports to the publisher on a fixed interval
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        ReportPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher ReportPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Outbox poll failed", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Publishing pending reports", "count", len(messages))

	for _, msg := range messages {
		err := p.publisher.PublishReport(ctx, msg)
		if err == nil || errors.Is(err, ErrUnreadablePayload) {
			continue
		}
		p.retryLater(ctx, msg, err)
	}
	return nil
}

// retryLater counts the failed attempt and parks the message once the
// attempts are used up. The message stays pending otherwise.
func (p *Poller) retryLater(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "business_day", shared.FormatBusinessDay(msg.BusinessDay))

	if err := p.outboxRepo.RecordAttempt(ctx, msg.ID); err != nil {
		logger.Error("Failed to record publish attempt", "error", err, "cause", cause)
		return
	}

	if !msg.RecordFailedAttempt(p.maxRetryAttempts) {
		logger.Warn("Report publish failed, will retry", "attempts", msg.Attempts, "error", cause)
		return
	}

	logger.Error("Report publish failed, giving up", "attempts", msg.Attempts, "error", cause)
	if err := p.outboxRepo.MarkStatus(ctx, msg.ID, msg.Status); err != nil {
		logger.Error("Failed to park outbox message", "status", string(msg.Status), "error", err)
	}
}
