package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-info-service/internal/config"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// NavigationEvent reports that the map moved to a new page.
type NavigationEvent struct {
	URL    string `json:"url"`
	Header string `json:"header"`
}

// Navigator applies navigation events to the sidebar.
type Navigator interface {
	Navigate(url, header string)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NavigationReader consumes navigation events and applies them in order.
type NavigationReader struct {
	reader messageReader
	target Navigator
	logger *slog.Logger
}

// NewNavigationReader creates a consumer-group reader for the navigation topic.
func NewNavigationReader(cfg *config.Config, target Navigator, logger *slog.Logger) *NavigationReader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaNavigationTopic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &NavigationReader{reader: r, target: target, logger: logger}
}

// Run consumes until ctx is cancelled. Malformed events are committed and skipped.
func (r *NavigationReader) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("fetch navigation event failed", "error", err)
			if !sharedretry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = sharedretry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		event, err := decodeNavigation(msg)
		if err != nil {
			r.logger.Warn("skipping navigation event", "error", err,
				"partition", msg.Partition, "offset", msg.Offset)
		} else {
			r.target.Navigate(event.URL, event.Header)
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			r.logger.Warn("commit offset failed", "error", err,
				"partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (r *NavigationReader) Close() error {
	return r.reader.Close()
}

func decodeNavigation(msg kafkago.Message) (NavigationEvent, error) {
	var event NavigationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return NavigationEvent{}, fmt.Errorf("decode navigation event: %w", err)
	}
	if event.URL == "" {
		return NavigationEvent{}, errors.New("decode navigation event: missing url")
	}
	return event, nil
}
