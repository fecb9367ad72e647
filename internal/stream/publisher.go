// Package stream mirrors delivery and feedback records to a Kafka topic for
// downstream analytics. Publishing is fire-and-forget: the pipeline never
// blocks on, or fails because of, the stream.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Record kinds.
const (
	KindDelivery = "delivery"
	KindFeedback = "feedback"
)

// Record is the JSON envelope written to the topic.
type Record struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes records to a single Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for a comma-separated broker list and
// topic. Returns nil when brokers or topic are blank (streaming disabled);
// a nil *Publisher is safe to call.
func NewPublisher(brokers, topic string) *Publisher {
	brokers = strings.TrimSpace(brokers)
	topic = strings.TrimSpace(topic)
	if brokers == "" || topic == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Publish writes one record asynchronously, keyed by record id so events
// for the same delivery land in one partition. Errors are logged and
// dropped.
func (p *Publisher) Publish(rec Record) {
	if p == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		slog.Error("Stream record encode failed", "kind", rec.Kind, "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(rec.ID), Value: value}); err != nil {
			slog.Warn("Stream publish failed", "kind", rec.Kind, "id", rec.ID, "error", err)
		}
	}()
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
