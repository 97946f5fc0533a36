package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tourdesk-shift-settlement/internal/config"
)

// ErrDLQDisabled is returned by a nil or writer-less DLQProducer
var ErrDLQDisabled = errors.New("dead letter topic is not configured")

const (
	headerRejectReason = "dlq-reason"
	headerSourceTopic  = "dlq-source-topic"
)

// DLQProducer parks sale events that can never be applied
type DLQProducer struct {
	logger      *slog.Logger
	writer      KafkaWriter
	topic       string
	sourceTopic string
}

// rejectedSale is the value written to the dead letter topic. The original
// bytes are kept as a string so malformed JSON survives the round trip.
type rejectedSale struct {
	Key         string    `json:"original_key"`
	Value       string    `json:"original_value"`
	Reason      string    `json:"dlq_reason"`
	SourceTopic string    `json:"source_topic,omitempty"`
	RejectedAt  time.Time `json:"rejected_at"`
}

// NewDLQProducer returns nil when cfg.DLQTopic is empty
func NewDLQProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, rejected sale events will only be logged")
		return nil, nil
	}

	writer, err := newTopicWriter(cfg, cfg.DLQTopic, logger)
	if err != nil {
		return nil, err
	}

	return &DLQProducer{
		logger:      logger,
		writer:      writer,
		topic:       cfg.DLQTopic,
		sourceTopic: cfg.SaleEventsTopic,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	value, err := json.Marshal(rejectedSale{
		Key:         key,
		Value:       string(originalMessageValue),
		Reason:      reason,
		SourceTopic: p.sourceTopic,
		RejectedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode rejected sale %q: %w", key, err)
	}

	headers := []kafka.Header{{Key: headerRejectReason, Value: []byte(reason)}}
	if p.sourceTopic != "" {
		headers = append(headers, kafka.Header{Key: headerSourceTopic, Value: []byte(p.sourceTopic)})
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value, Headers: headers})
	if err != nil {
		p.logger.Error("Failed to park rejected sale", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish rejected sale to %s: %w", p.topic, err)
	}

	p.logger.Warn("Rejected sale parked", "topic", p.topic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for %s: %w", p.topic, err)
	}
	p.logger.Info("DLQ producer closed", "topic", p.topic)
	return nil
}
