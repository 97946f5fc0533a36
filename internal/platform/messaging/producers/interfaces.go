package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
)

// ShiftEventPublisher announces closed business days to downstream consumers
type ShiftEventPublisher interface {
	PublishShiftClosed(ctx context.Context, snapshot *closure.Snapshot) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// topicAdmin is the part of kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}
