package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// RefreshTrigger is what the consumer drives; satisfied by the insight
// refresh orchestrator.
type RefreshTrigger interface {
	Refresh(ctx context.Context) error
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FactsConsumer turns fact-update notifications into refreshes.  Ingestion
// runs emit one event per table write, so the consumer debounces: the refresh
// fires once the topic has been quiet for the configured window, not once per
// event.
type FactsConsumer struct {
	reader   ReaderInterface
	trigger  RefreshTrigger
	debounce time.Duration
	logger   logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewFactsConsumer builds the consumer over the facts topic.
func NewFactsConsumer(cfg config.KafkaConfig, trigger RefreshTrigger,
	debounce time.Duration, logger logging.Logger) *FactsConsumer {
	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.FactsTopic,
		StartOffset: startOffset,
		Dialer: &kafka.Dialer{
			Timeout:   cfg.DialTimeout,
			DualStack: true,
		},
	})
	return NewFactsConsumerFromReader(reader, trigger, debounce, logger)
}

// NewFactsConsumerFromReader wraps an existing reader.  Used by tests.
func NewFactsConsumerFromReader(reader ReaderInterface, trigger RefreshTrigger,
	debounce time.Duration, logger logging.Logger) *FactsConsumer {
	return &FactsConsumer{
		reader:   reader,
		trigger:  trigger,
		debounce: debounce,
		logger:   logger,
	}
}

// Run consumes until ctx is canceled.  Every message is committed whether or
// not it parses; a malformed notification still indicates fresh facts.
func (c *FactsConsumer) Run(ctx context.Context) error {
	defer c.stopTimer()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "facts topic fetch failed")
		}

		var event FactsUpdatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("malformed facts event", logging.Err(err))
		} else {
			c.logger.Debug("facts updated",
				logging.String("source", event.Source),
				logging.String("table", event.Table),
				logging.Int("rows", event.RowCount))
		}
		c.scheduleRefresh(ctx)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("facts event commit failed", logging.Err(err))
		}
	}
}

// scheduleRefresh arms or rearms the debounce timer.
func (c *FactsConsumer) scheduleRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		if err := c.trigger.Refresh(ctx); err != nil {
			if errors.IsCode(err, errors.ErrCodeRefreshInProgress) {
				c.logger.Info("refresh already running, skipping")
				return
			}
			c.logger.Error("triggered refresh failed", logging.Err(err))
		}
	})
}

func (c *FactsConsumer) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Close shuts the reader down.
func (c *FactsConsumer) Close() error {
	return c.reader.Close()
}
