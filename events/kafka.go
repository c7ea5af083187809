package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Govind-619/checkout-core/utils"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a topic asynchronously.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates an async writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				utils.LogWarn("failed to publish %d checkout events: %v", len(messages), err)
			}
		},
	}
	return &KafkaPublisher{writer: w}
}

// Publish enqueues e. Errors are logged, never returned.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	msg, err := encode(e)
	if err != nil {
		utils.LogError("failed to encode %s event: %v", e.Type, err)
		return
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		utils.LogWarn("failed to enqueue %s event: %v", e.Type, err)
	}
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(e Event) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.Key()),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}, nil
}
