package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// ShiftClosedEvent is the compact notification consumers receive; the full
// report lives in the archive
type ShiftClosedEvent struct {
	EventType              string    `json:"event_type"`
	BusinessDay            string    `json:"business_day"`
	ClosedAt               time.Time `json:"closed_at"`
	ClosedBy               string    `json:"closed_by"`
	NetTotal               int64     `json:"net_total"`
	FundTotal              int64     `json:"fund_total"`
	FundTotalAfterWithhold int64     `json:"fund_total_after_withhold"`
	SettingsVersion        int       `json:"settings_version"`
}

// ShiftEventProducer writes SHIFT_CLOSED notifications keyed by business day
type ShiftEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewShiftEventProducer returns nil when cfg.ShiftEventsTopic is empty
func NewShiftEventProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ShiftEventProducer, error) {
	if cfg.ShiftEventsTopic == "" {
		logger.Info("Shift events topic is not configured, closed days will not be announced")
		return nil, nil
	}

	writer, err := newTopicWriter(cfg, cfg.ShiftEventsTopic, logger)
	if err != nil {
		return nil, err
	}

	return &ShiftEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ShiftEventsTopic,
	}, nil
}

func newShiftClosedEvent(snapshot *closure.Snapshot) ShiftClosedEvent {
	return ShiftClosedEvent{
		EventType:              outbox.EventShiftClosed,
		BusinessDay:            shared.FormatBusinessDay(snapshot.BusinessDay),
		ClosedAt:               snapshot.ClosedAt,
		ClosedBy:               snapshot.ClosedBy,
		NetTotal:               snapshot.NetTotal,
		FundTotal:              snapshot.FundTotal,
		FundTotalAfterWithhold: snapshot.FundTotalAfterWithhold,
		SettingsVersion:        snapshot.SettingsVersion,
	}
}

func (p *ShiftEventProducer) PublishShiftClosed(ctx context.Context, snapshot *closure.Snapshot) error {
	event := newShiftClosedEvent(snapshot)
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal shift closed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.BusinessDay),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish shift closed event",
			"topic", p.topic,
			"business_day", event.BusinessDay,
			"error", err,
		)
		return fmt.Errorf("failed to publish shift closed event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published shift closed event", "topic", p.topic, "business_day", event.BusinessDay)
	return nil
}

func (p *ShiftEventProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing shift events producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close shift events writer for topic %s: %w", p.topic, err)
	}
	return nil
}
