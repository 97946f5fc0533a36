package producers

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	readErr    error
	partitions []kafka.Partition
	reads      int
	created    []kafka.TopicConfig
	createErr  error
}

func (f *fakeAdmin) ReadPartitions(...string) ([]kafka.Partition, error) {
	f.reads++
	return f.partitions, f.readErr
}

func (f *fakeAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	f.created = append(f.created, topics...)
	return f.createErr
}

func TestEnsureTopic(t *testing.T) {
	t.Run("ExistingTopic", func(t *testing.T) {
		admin := &fakeAdmin{partitions: []kafka.Partition{{Topic: "sale_events"}}}
		require.NoError(t, ensureTopic(admin, "sale_events", 3, 1, 0, newTestLogger()))
		assert.Equal(t, 1, admin.reads)
		assert.Empty(t, admin.created)
	})

	t.Run("CreatesMissingTopicWithDefaults", func(t *testing.T) {
		admin := &fakeAdmin{readErr: errors.New("unknown topic")}
		require.NoError(t, ensureTopic(admin, "shift_events", 0, 0, 0, newTestLogger()))
		assert.Equal(t, topicReadAttempts, admin.reads)
		require.Len(t, admin.created, 1)
		assert.Equal(t, "shift_events", admin.created[0].Topic)
		assert.Equal(t, 1, admin.created[0].NumPartitions)
		assert.Equal(t, 1, admin.created[0].ReplicationFactor)
	})

	t.Run("CreateError", func(t *testing.T) {
		createErr := errors.New("not authorized")
		admin := &fakeAdmin{readErr: errors.New("unknown topic"), createErr: createErr}
		err := ensureTopic(admin, "shift_events", 1, 1, 0, newTestLogger())
		assert.ErrorIs(t, err, createErr)
	})
}
