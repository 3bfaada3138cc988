package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/config"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes forecasts to a Kafka topic.
// It implements scheduler.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the forecast and writes it to the sink topic.
func (w *Writer) Publish(ctx context.Context, forecast domain.Forecast) error {
	msg, err := serializeToMessage(forecast)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish forecast: %w", err)
	}
	w.logger.Debug("forecast published",
		"id", forecast.ID,
		"prediction_date", forecast.PredictionDate.Format(time.DateOnly),
		"model_used", forecast.ModelUsed,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Forecast into a Kafka message keyed by the
// prediction date so every forecast for a day lands on the same partition.
func serializeToMessage(forecast domain.Forecast) (kafkago.Message, error) {
	data, err := json.Marshal(forecast)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(forecast.PredictionDate.Format(time.DateOnly)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model_used", Value: []byte(forecast.ModelUsed)},
			{Key: "confidence", Value: []byte(forecast.Confidence)},
			{Key: "generated_at", Value: []byte(forecast.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
