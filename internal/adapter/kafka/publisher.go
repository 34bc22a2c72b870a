package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces forecast-generated events to a Kafka topic.
// It implements dashboard.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the forecast topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishForecast writes one forecast run, keyed by well id so every run for
// a well lands on the same partition.
func (p *Publisher) PublishForecast(ctx context.Context, run domain.ForecastRun) error {
	msg, err := serializeToMessage(run)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish forecast run %s: %w", run.ID, err)
	}
	p.logger.Debug("forecast run published", "run_id", run.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ForecastRun into a Kafka message.
func serializeToMessage(run domain.ForecastRun) (kafkago.Message, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast run: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(run.WellID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "well_id", Value: []byte(run.WellID)},
			{Key: "generated_at", Value: []byte(run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
