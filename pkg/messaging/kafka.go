package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaProducer struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

type KafkaConsumer struct {
	brokers     []string
	groupID     string
	startOffset int64
	log         *zap.Logger

	mu      sync.Mutex
	readers map[string]*kafka.Reader
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// InstanceGroupID derives a consumer group that stays the same across
// restarts of this host. It falls back to a random suffix without a hostname.
func InstanceGroupID(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base + "-" + uuid.NewString()[:8]
	}
	return base + "-" + host
}

type ConsumerOption func(*KafkaConsumer)

// FromLatest makes a group with no committed offset start at the end of
// the topic instead of replaying its history.
func FromLatest() ConsumerOption {
	return func(kc *KafkaConsumer) { kc.startOffset = kafka.LastOffset }
}

func NewKafkaConsumer(brokers []string, groupID string, log *zap.Logger, opts ...ConsumerOption) *KafkaConsumer {
	kc := &KafkaConsumer{
		brokers:     brokers,
		groupID:     groupID,
		startOffset: kafka.FirstOffset,
		log:         log,
		readers:     make(map[string]*kafka.Reader),
	}
	for _, opt := range opts {
		opt(kc)
	}
	return kc
}

func (kp *KafkaProducer) GetWriter(topic string) *kafka.Writer {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if writer, exists := kp.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kp.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	kp.writers[topic] = writer
	return writer
}

// SendMessage writes value as JSON under key.
func (kp *KafkaProducer) SendMessage(ctx context.Context, topic, key string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: jsonData,
		Time:  time.Now(),
	}

	return kp.GetWriter(topic).WriteMessages(ctx, message)
}

func (kp *KafkaProducer) Close() {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	for _, writer := range kp.writers {
		writer.Close()
	}
}

func (kc *KafkaConsumer) GetReader(topic string) *kafka.Reader {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if reader, exists := kc.readers[topic]; exists {
		return reader
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kc.brokers,
		Topic:       topic,
		GroupID:     kc.groupID,
		StartOffset: kc.startOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	kc.readers[topic] = reader
	return reader
}

// ConsumeMessages feeds every message of topic to handler until ctx is
// done. Handler errors are logged and the message is skipped.
func (kc *KafkaConsumer) ConsumeMessages(ctx context.Context, topic string, handler func(context.Context, []byte) error) error {
	reader := kc.GetReader(topic)

	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			kc.log.Warn("error reading message", zap.String("topic", topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, message.Value); err != nil {
			kc.log.Error("error handling message",
				zap.String("topic", topic),
				zap.Int64("offset", message.Offset),
				zap.Error(err))
		}
	}
}

func (kc *KafkaConsumer) Close() {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	for _, reader := range kc.readers {
		reader.Close()
	}
}
