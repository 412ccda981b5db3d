package services

import "context"

// EventPublisher is the outbound message broker; *messaging.KafkaProducer
// satisfies it.
type EventPublisher interface {
	SendMessage(ctx context.Context, topic, key string, value interface{}) error
}
