package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
)

type IngestServiceImpl struct {
	store     IngestStore
	validator EventValidator
	mapper    EntryMapper
	rejector  RejectionRecorder
	recorder  Recorder
	logger    *slog.Logger
}

func NewIngestService(
	store IngestStore,
	validator EventValidator,
	mapper EntryMapper,
	rejector RejectionRecorder,
	recorder Recorder,
	logger *slog.Logger,
) EventProcessor {
	return &IngestServiceImpl{
		store:     store,
		validator: validator,
		mapper:    mapper,
		rejector:  rejector,
		recorder:  recorder,
		logger:    logger,
	}
}

// ProcessEvent validates the envelope and applies it
func (s *IngestServiceImpl) ProcessEvent(ctx context.Context, envelope *shared.Envelope) error {
	if err := s.validator.Validate(envelope); err != nil {
		s.reject(ctx, envelope, err.Error())
		return nil
	}

	switch envelope.Type {
	case shared.EventTypeSale:
		return s.applySale(ctx, envelope)
	case shared.EventTypeTrip:
		return s.applyTrip(ctx, envelope.Trip)
	default:
		s.reject(ctx, envelope, fmt.Sprintf("unsupported event type %q", envelope.Type))
		return nil
	}
}

func (s *IngestServiceImpl) applySale(ctx context.Context, envelope *shared.Envelope) error {
	event := envelope.Sale
	logger := s.logger.With("event_id", event.EventID, "sale_id", event.SaleID)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	paymentDay, err := shared.ParseBusinessDay(event.PaymentDay)
	if err != nil {
		s.reject(ctx, envelope, err.Error())
		return nil
	}
	var tripDay time.Time
	if event.TripDay != "" {
		if tripDay, err = shared.ParseBusinessDay(event.TripDay); err != nil {
			s.reject(ctx, envelope, err.Error())
			return nil
		}
	}

	entry, err := s.mapper.ToEntry(event, paymentDay)
	if err != nil {
		s.reject(ctx, envelope, err.Error())
		return nil
	}
	fact := sale.FromEvent(event, paymentDay, tripDay)

	err = s.store.RunIngestTx(ctx, func(tx IngestTx) error {
		if err := tx.LockDayShared(ctx, paymentDay); err != nil {
			return err
		}
		if _, err := tx.GetClosure(ctx, paymentDay); err == nil {
			return shared.ErrShiftClosed
		} else if !errors.Is(err, closure.ErrNotFound{}) {
			return err
		}
		if err := tx.UpsertSale(ctx, fact); err != nil {
			return err
		}
		return tx.Append(ctx, entry)
	})

	switch {
	case err == nil:
		s.recorder.EventProcessed(metrics.OutcomeApplied)
		logger.Info("Sale event appended to ledger",
			"entry_id", entry.ID.String(),
			"business_day", shared.FormatBusinessDay(paymentDay),
			"type", string(entry.Type),
			"amount", entry.Amount,
		)
		return nil
	case errors.Is(err, ledger.ErrDuplicateEntry{}):
		s.recorder.EventProcessed(metrics.OutcomeDuplicate)
		logger.Info("Sale event already applied, skipping", "entry_id", entry.ID.String())
		return nil
	case errors.Is(err, shared.ErrShiftClosed):
		s.reject(ctx, envelope, fmt.Sprintf("%s: payment day %s", shared.ErrShiftClosed.Error(), shared.FormatBusinessDay(paymentDay)))
		return nil
	default:
		s.recorder.EventProcessed(metrics.OutcomeFailed)
		logger.Error("Failed to apply sale event", "error", err)
		return fmt.Errorf("applying sale event %s failed: %w", event.EventID, err)
	}
}

func (s *IngestServiceImpl) applyTrip(ctx context.Context, event *shared.TripEvent) error {
	tripDay, err := shared.ParseBusinessDay(event.TripDay)
	if err != nil {
		s.reject(ctx, &shared.Envelope{Type: shared.EventTypeTrip, Trip: event}, err.Error())
		return nil
	}

	t := &trip.Trip{
		TripID:    event.TripID,
		TripDay:   tripDay,
		Status:    event.Status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.RunIngestTx(ctx, func(tx IngestTx) error {
		return tx.UpsertTrip(ctx, t)
	}); err != nil {
		s.recorder.EventProcessed(metrics.OutcomeFailed)
		s.logger.Error("Failed to apply trip event", "trip_id", event.TripID, "error", err)
		return fmt.Errorf("applying trip event %s failed: %w", event.TripID, err)
	}

	s.recorder.EventProcessed(metrics.OutcomeApplied)
	s.logger.Info("Trip status updated", "trip_id", t.TripID, "trip_day", event.TripDay, "status", string(t.Status))
	return nil
}

// reject parks the envelope; a failing DLQ only costs the copy, the event is
// still acknowledged
func (s *IngestServiceImpl) reject(ctx context.Context, envelope *shared.Envelope, reason string) {
	s.recorder.EventProcessed(metrics.OutcomeRejected)
	s.logger.Warn("Rejected collaborator event", "type", string(envelope.Type), "reason", reason)
	if err := s.rejector.RecordRejection(ctx, envelope, reason); err != nil {
		s.logger.Error("Failed to record rejected event", "reason", reason, "error", err)
	}
}
