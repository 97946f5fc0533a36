package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/messaging/producers"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

// SaleEventHandler decodes envelopes from the sale events topic
type SaleEventHandler struct {
	processor service.EventProcessor
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewSaleEventHandler(
	logger *slog.Logger,
	processor service.EventProcessor,
	dlq producers.DeadLetterPublisher,
) *SaleEventHandler {
	return &SaleEventHandler{
		processor: processor,
		dlq:       dlq,
		logger:    logger,
	}
}

// HandleMessage returns nil once the message may be committed
func (h *SaleEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var envelope shared.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		h.logger.Error("Failed to unmarshal collaborator event", "error", err, "message_key", string(key))

		if h.dlq != nil {
			reason := fmt.Sprintf("unreadable event: %s", err.Error())
			if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
				h.logger.Error("Failed to publish unreadable event to DLQ",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				return fmt.Errorf("failed to unmarshal message value: %w", err)
			}
			return nil
		}
		// Without a DLQ a poison message is logged and skipped
		return nil
	}

	logger := h.logger.With("type", string(envelope.Type))
	if envelope.Sale != nil && envelope.Sale.CorrelationID != "" {
		logger = logger.With("correlation_id", envelope.Sale.CorrelationID)
	}
	logger.Debug("Received collaborator event", "message_key", string(key))

	if err := h.processor.ProcessEvent(ctx, &envelope); err != nil {
		logger.Error("Failed to process collaborator event", "message_key", string(key), "error", err)
		return fmt.Errorf("processing event %s failed: %w", string(key), err)
	}
	return nil
}
