package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapFields(t *testing.T) {
	fields := toZapFields([]Field{
		String("s", "v"),
		Int("i", 1),
		Int64("i64", int64(2)),
		Float64("f", 3.5),
		Bool("b", true),
		Duration("d", time.Second),
		Err(errors.New("boom")),
		Any("a", []int{1, 2}),
	})
	require.Len(t, fields, 8)
	assert.Equal(t, "s", fields[0].Key)
	assert.Equal(t, "error", fields[6].Key)
}

func TestErrNil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestObservedLogging(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core)

	logger.Info("facts loaded", Int("rows", 42))
	logger.Warn("source overlap", String("spatial_key", "1111010100"))

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "facts loaded", entries[0].Message)
	assert.Equal(t, int64(42), entries[0].ContextMap()["rows"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestWithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core).Named("querycache").With(String("request_id", "r-1"))

	logger.Debug("cache probe")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "querycache", entries[0].LoggerName)
	assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewLoggerDefaults(t *testing.T) {
	logger, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, logger)

	// SetLevel only touches zap-backed loggers; must not panic on either kind.
	SetLevel(logger, "debug")
	SetLevel(NewNopLogger(), "debug")
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	assert.NotNil(t, Default())

	core, observed := observer.New(zapcore.InfoLevel)
	SetDefault(NewLoggerFromCore(core))
	Default().Info("hello")
	assert.Equal(t, 1, observed.Len())

	// nil is ignored rather than clobbering the default.
	SetDefault(nil)
	assert.NotNil(t, Default())
}
