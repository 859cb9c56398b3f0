package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/seasonal-resampler/internal/config"
	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventType is the event_type header of every published message.
const EventType = "forecast.ready"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher announces finished station forecasts on a Kafka topic.
// It implements pipeline.Notifier.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration

	initialInterval time.Duration
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.KafkaPublishTimeout, logger)
}

func newPublisher(w messageWriter, timeout time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:          w,
		logger:          logger,
		timeout:         timeout,
		initialInterval: 200 * time.Millisecond,
	}
}

// Publish writes one ForecastReady event keyed by station id. Failed writes
// are retried with exponential backoff until the publish timeout elapses or
// ctx is cancelled.
func (p *Publisher) Publish(ctx context.Context, event domain.ForecastReady) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval
	bo.MaxElapsedTime = p.timeout

	operation := func() error {
		err := p.writer.WriteMessages(ctx, msg)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("publish forecast event failed, retrying",
			"station", event.StationID, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("publish forecast event for %s: %w", event.StationID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ForecastReady event into a Kafka message.
func serializeToMessage(event domain.ForecastReady) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "produced_at", Value: []byte(event.ProducedAt.Format(time.RFC3339))},
		},
	}, nil
}
