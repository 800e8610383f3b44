package kafka

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
)

// scriptedReader serves queued messages, then blocks until ctx cancels.
type scriptedReader struct {
	messages  chan kafka.Message
	committed atomic.Int64
}

func newScriptedReader(payloads ...string) *scriptedReader {
	r := &scriptedReader{messages: make(chan kafka.Message, len(payloads))}
	for _, p := range payloads {
		r.messages <- kafka.Message{Value: []byte(p)}
	}
	return r
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed.Add(int64(len(msgs)))
	return nil
}

func (r *scriptedReader) Close() error { return nil }

type countingTrigger struct {
	refreshes atomic.Int64
}

func (c *countingTrigger) Refresh(context.Context) error {
	c.refreshes.Add(1)
	return nil
}

func TestConsumerDebouncesBurstIntoOneRefresh(t *testing.T) {
	reader := newScriptedReader(
		`{"source":"card","table":"activity_facts","row_count":100}`,
		`{"source":"telecom","table":"activity_facts","row_count":50}`,
		`{"source":"card","table":"demographic_facts","row_count":30}`,
	)
	trigger := &countingTrigger{}
	c := NewFactsConsumerFromReader(reader, trigger, 50*time.Millisecond, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// All three land inside one debounce window.
	assert.Eventually(t, func() bool {
		return trigger.refreshes.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// And stay at one.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), trigger.refreshes.Load())
	assert.Equal(t, int64(3), reader.committed.Load())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestConsumerCommitsMalformedEvents(t *testing.T) {
	reader := newScriptedReader(`{not json`)
	trigger := &countingTrigger{}
	c := NewFactsConsumerFromReader(reader, trigger, 20*time.Millisecond, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Malformed payloads still mean fresh facts: commit and refresh anyway.
	assert.Eventually(t, func() bool {
		return trigger.refreshes.Load() == 1 && reader.committed.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
