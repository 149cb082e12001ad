// Package publish mirrors committed market updates onto a Kafka topic for
// downstream consumers that want a feed instead of a subscription.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/models"
)

const writeTimeout = 5 * time.Second

// KafkaPublisher writes one JSON message per quote, keyed by symbol so a
// compacted topic retains the latest state per instrument.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewKafkaPublisher creates a publisher for the given broker and topic.
func NewKafkaPublisher(broker, topic string, logger *logrus.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// PublishQuotes serializes and sends a batch of quotes.
func (p *KafkaPublisher) PublishQuotes(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(quotes))
	for _, q := range quotes {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("serialize quote %s: %w", q.Symbol, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(q.Symbol),
			Value: data,
		})
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msgs...); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.WithError(err).Error("Error closing Kafka writer")
	}
}
