package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/messaging/producers"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

type RejectionRecorderImpl struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

// NewRejectionRecorder accepts a nil dlq; rejections are then only logged
func NewRejectionRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.RejectionRecorder {
	return &RejectionRecorderImpl{dlq: dlq, logger: logger}
}

// RecordRejection copies the envelope to the DLQ keyed by its event or trip id
func (r *RejectionRecorderImpl) RecordRejection(ctx context.Context, envelope *shared.Envelope, reason string) error {
	key := envelopeKey(envelope)
	if r.dlq == nil {
		r.logger.Warn("DLQ disabled, dropping rejected event", "key", key, "reason", reason)
		return nil
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal rejected event: %w", err)
	}
	if err := r.dlq.PublishToDLQ(ctx, key, value, reason); err != nil {
		return fmt.Errorf("failed to publish rejected event %s: %w", key, err)
	}
	return nil
}

func envelopeKey(envelope *shared.Envelope) string {
	switch {
	case envelope == nil:
		return ""
	case envelope.Sale != nil:
		return envelope.Sale.EventID
	case envelope.Trip != nil:
		return envelope.Trip.TripID
	default:
		return ""
	}
}
