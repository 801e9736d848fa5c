package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/city-info-service/internal/config"
	"github.com/couchcryptid/city-info-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// PanelWriter publishes rendered panels to a Kafka topic.
// It implements coordinator.PanelSink.
type PanelWriter struct {
	writer messageWriter
	now    func() time.Time
}

// NewPanelWriter creates a Kafka producer for the configured panel topic.
func NewPanelWriter(cfg *config.Config) *PanelWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPanelTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &PanelWriter{writer: w, now: time.Now}
}

// Publish writes one panel. Panels for the same place share a partition.
func (w *PanelWriter) Publish(ctx context.Context, result domain.PanelResult) error {
	msg, err := serializeToMessage(result, w.now())
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *PanelWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PanelResult into a Kafka message.
func serializeToMessage(result domain.PanelResult, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize panel: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Place.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "domain", Value: []byte(result.Domain.String())},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
