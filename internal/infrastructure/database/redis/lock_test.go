package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
)

func newTestMutex(t *testing.T, opts ...LockOption) (Lock, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	client := NewClientFromRedis(db, logging.NewNopLogger())
	return NewMutex(client, "advanced-refresh", logging.NewNopLogger(), opts...), mock
}

func lockValue(l Lock) string {
	return l.(*mutex).value
}

func TestTryLockAcquired(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute))
	mock.ExpectSetNX("geoinsight:lock:advanced-refresh", lockValue(l), time.Minute).SetVal(true)

	ok, err := l.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryLockHeldElsewhere(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute))
	mock.ExpectSetNX("geoinsight:lock:advanced-refresh", lockValue(l), time.Minute).SetVal(false)

	ok, err := l.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockRetriesThenAcquires(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute), WithRetryDelay(time.Millisecond), WithRetryCount(3))
	key, val := "geoinsight:lock:advanced-refresh", lockValue(l)
	mock.ExpectSetNX(key, val, time.Minute).SetVal(false)
	mock.ExpectSetNX(key, val, time.Minute).SetVal(true)

	require.NoError(t, l.Lock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockExhaustsRetries(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute), WithRetryDelay(time.Millisecond), WithRetryCount(2))
	key, val := "geoinsight:lock:advanced-refresh", lockValue(l)
	mock.ExpectSetNX(key, val, time.Minute).SetVal(false)
	mock.ExpectSetNX(key, val, time.Minute).SetVal(false)

	err := l.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestLockHonorsContextCancellation(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute), WithRetryDelay(time.Hour), WithRetryCount(5))
	key, val := "geoinsight:lock:advanced-refresh", lockValue(l)
	mock.ExpectSetNX(key, val, time.Minute).SetVal(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlockNotHeld(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute))
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"geoinsight:lock:advanced-refresh"}, lockValue(l)).
		SetVal(int64(0))

	err := l.Unlock(context.Background())
	assert.ErrorIs(t, err, ErrLockNotHeld)
}

func TestUnlockReleasesOwnLock(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute))
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"geoinsight:lock:advanced-refresh"}, lockValue(l)).
		SetVal(int64(1))

	assert.NoError(t, l.Unlock(context.Background()))
}

func TestExtend(t *testing.T) {
	l, mock := newTestMutex(t, WithLockTTL(time.Minute))
	mock.ExpectEvalSha(extendScript.Hash(), []string{"geoinsight:lock:advanced-refresh"},
		lockValue(l), int64(60000)).SetVal(int64(1))

	ok, err := l.Extend(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
