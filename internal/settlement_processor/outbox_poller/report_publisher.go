package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/messaging/producers"
)

// ErrUnreadablePayload marks an outbox message that can never be published
var ErrUnreadablePayload = errors.New("unreadable outbox payload")

// ReportPublisher moves one SHIFT_CLOSED message out of the outbox
type ReportPublisher interface {
	PublishReport(ctx context.Context, message *outbox.Message) error
}

// ReportPublisherImpl archives the report in Mongo and then announces the
// closed day on Kafka when a shift events producer is configured
type ReportPublisherImpl struct {
	outboxRepo  outbox.Repository
	ledgerRepo  ledger.Repository
	reports     report.Repository
	shiftEvents producers.ShiftEventPublisher
	logger      *slog.Logger
}

func NewReportPublisher(
	outboxRepo outbox.Repository,
	ledgerRepo ledger.Repository,
	reports report.Repository,
	shiftEvents producers.ShiftEventPublisher,
	logger *slog.Logger,
) ReportPublisher {
	return &ReportPublisherImpl{
		outboxRepo:  outboxRepo,
		ledgerRepo:  ledgerRepo,
		reports:     reports,
		shiftEvents: shiftEvents,
		logger:      logger,
	}
}

func (p *ReportPublisherImpl) PublishReport(ctx context.Context, message *outbox.Message) error {
	snapshot, err := message.Snapshot()
	if err != nil || message.EventType != outbox.EventShiftClosed {
		p.logger.Error("Outbox message cannot be published",
			"outbox_id", message.ID, "event_type", message.EventType, "error", err,
		)
		if updateErr := p.outboxRepo.MarkStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark unreadable outbox message as FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d", ErrUnreadablePayload, message.ID)
	}

	day := shared.FormatBusinessDay(snapshot.BusinessDay)
	logger := p.logger.With("outbox_id", message.ID, "business_day", day)

	entries, err := p.ledgerRepo.ListByBusinessDay(ctx, snapshot.BusinessDay)
	if err != nil {
		return fmt.Errorf("failed to load ledger entries for %s: %w", day, err)
	}

	if err := p.reports.Save(ctx, report.New(snapshot, entries, day)); err != nil {
		logger.Error("Failed to archive shift report", "error", err)
		return fmt.Errorf("failed to archive shift report %s: %w", day, err)
	}
	logger.Info("Archived shift report", "entries", len(entries))

	if p.shiftEvents != nil {
		if err := p.shiftEvents.PublishShiftClosed(ctx, snapshot); err != nil {
			return fmt.Errorf("report for %s archived, but shift closed event failed: %w", day, err)
		}
	}

	if err := p.outboxRepo.MarkStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("report for %s published, but failed to mark outbox %d as PROCESSED: %w", day, message.ID, err)
	}

	logger.Info("Outbox message processed")
	return nil
}
