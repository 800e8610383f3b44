package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/geoinsight/geoinsight/internal/application/insight"
	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "kafka producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes refresh-completed events.  It satisfies the refresh
// orchestrator's Notifier port.
type Producer struct {
	writer WriterInterface
	topic  string
	logger logging.Logger
	closed atomic.Bool
}

var _ insight.Notifier = (*Producer)(nil)

// NewProducer builds a producer over the refresh topic.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.RefreshTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &Producer{writer: writer, topic: cfg.RefreshTopic, logger: logger}
}

// NewProducerFromWriter wraps an existing writer.  Used by tests.
func NewProducerFromWriter(writer WriterInterface, topic string, logger logging.Logger) *Producer {
	return &Producer{writer: writer, topic: topic, logger: logger}
}

// RefreshCompleted publishes one refresh event, keyed by its timestamp so
// consumers partition chronologically.
func (p *Producer) RefreshCompleted(ctx context.Context, event insight.RefreshEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "refresh event serialization failed")
	}
	msg := kafka.Message{
		Key:   []byte(event.RefreshedAt.UTC().Format(time.RFC3339)),
		Value: payload,
		Time:  event.RefreshedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "refresh event publish failed")
	}
	p.logger.Debug("refresh event published",
		logging.String("topic", p.topic),
		logging.Int("insights", event.Insights))
	return nil
}

// Close shuts the writer down.  Idempotent.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
