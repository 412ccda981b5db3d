package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestKafkaProducer_ReusesWriterPerTopic(t *testing.T) {
	kp := NewKafkaProducer([]string{"localhost:9092"})
	defer kp.Close()

	sales := kp.GetWriter("sales")

	assert.Same(t, sales, kp.GetWriter("sales"))
	assert.NotSame(t, sales, kp.GetWriter("settings-changed"))
	assert.Equal(t, "sales", sales.Topic)
}

func TestKafkaConsumer_StopsWithContext(t *testing.T) {
	kc := NewKafkaConsumer([]string{"127.0.0.1:1"}, "test", zap.NewNop())
	defer kc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := kc.ConsumeMessages(ctx, "settings-changed", func(context.Context, []byte) error {
		t.Fatal("no message expected")
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKafkaConsumer_StartOffset(t *testing.T) {
	replay := NewKafkaConsumer([]string{"127.0.0.1:1"}, "replay", zap.NewNop())
	defer replay.Close()
	latest := NewKafkaConsumer([]string{"127.0.0.1:1"}, "latest", zap.NewNop(), FromLatest())
	defer latest.Close()

	assert.Equal(t, kafka.FirstOffset, replay.GetReader("settings-changed").Config().StartOffset)
	assert.Equal(t, kafka.LastOffset, latest.GetReader("settings-changed").Config().StartOffset)
	assert.Equal(t, "latest", latest.GetReader("settings-changed").Config().GroupID)
}

func TestInstanceGroupID_StableAcrossCalls(t *testing.T) {
	first := InstanceGroupID("acai-settings")

	assert.Equal(t, first, InstanceGroupID("acai-settings"))
	assert.True(t, strings.HasPrefix(first, "acai-settings-"))
}
