// Package events publishes generation events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// TypePaintingGenerated is the event type emitted after a persisted painting.
const TypePaintingGenerated = "painting.generated"

// PaintingGenerated describes one successful generation cycle.
type PaintingGenerated struct {
	Type       string `json:"type"`
	RunID      string `json:"runId"`
	PaintingID string `json:"paintingId"`
	Bucket     string `json:"bucket"`
	TokenID    string `json:"tokenId"`
	ImageURL   string `json:"imageUrl"`
	ParamsHash string `json:"paramsHash"`
	Seed       string `json:"seed"`
	TsUnix     int64  `json:"tsUnix"`
}

// Publisher sends generation events.
type Publisher interface {
	Publish(ctx context.Context, ev PaintingGenerated) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes events as JSON keyed by bucket.
type KafkaPublisher struct {
	writer messageWriter
	Topic  string
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, Topic: topic}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, ev PaintingGenerated) error {
	if ev.Type == "" {
		ev.Type = TypePaintingGenerated
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.Bucket),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, PaintingGenerated) error { return nil }
func (NoopPublisher) Close() error { return nil }
