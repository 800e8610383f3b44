package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/geoinsight/geoinsight/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = NewClientFromRedis(db, logging.NewNopLogger())
	// Jitter off so TTL expectations are exact.
	s.cache = NewCache(s.client, logging.NewNopLogger(),
		WithPrefix("test:"), WithTTLJitter(false))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedResponse struct {
	Region string  `json:"region"`
	Value  float64 `json:"value"`
}

func (s *CacheTestSuite) TestGetHit() {
	val := cachedResponse{Region: "Gangnam-gu", Value: 42}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:rankings:2024-12").SetVal(string(data))

	var dest cachedResponse
	err := s.cache.Get(context.Background(), "rankings:2024-12", &dest)
	s.Require().NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetMiss() {
	s.mock.ExpectGet("test:absent").RedisNil()

	var dest cachedResponse
	err := s.cache.Get(context.Background(), "absent", &dest)
	s.Require().Error(err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGetNullSentinelIsMiss() {
	s.mock.ExpectGet("test:nulled").SetVal(nullSentinel)

	var dest cachedResponse
	err := s.cache.Get(context.Background(), "nulled", &dest)
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestSet() {
	val := cachedResponse{Region: "Seoul", Value: 7}
	data, _ := json.Marshal(val)
	s.mock.ExpectSet("test:k", data, time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k", val, time.Minute))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
}

func (s *CacheTestSuite) TestDeleteNoKeys() {
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k").SetVal(1)
	ok, err := s.cache.Exists(context.Background(), "k")
	s.NoError(err)
	s.True(ok)
}

func (s *CacheTestSuite) TestGetOrSetHitSkipsLoader() {
	val := cachedResponse{Region: "Seoul", Value: 7}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").SetVal(string(data))

	loaderCalled := false
	var dest cachedResponse
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute,
		func(context.Context) (interface{}, error) {
			loaderCalled = true
			return nil, nil
		})
	s.Require().NoError(err)
	s.False(loaderCalled)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSetMissLoadsAndBackfills() {
	val := cachedResponse{Region: "Mapo-gu", Value: 3}
	data, _ := json.Marshal(val)

	s.mock.ExpectGet("test:k").RedisNil()
	s.mock.ExpectSet("test:k", data, time.Minute).SetVal("OK")

	var dest cachedResponse
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute,
		func(context.Context) (interface{}, error) {
			return val, nil
		})
	s.Require().NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSetNilLoaderResultCachesNull() {
	s.mock.ExpectGet("test:k").RedisNil()
	s.mock.ExpectSet("test:k", nullSentinel, 30*time.Second).SetVal("OK")

	var dest cachedResponse
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute,
		func(context.Context) (interface{}, error) {
			return nil, nil
		})
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSetLoaderError() {
	s.mock.ExpectGet("test:k").RedisNil()

	var dest cachedResponse
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute,
		func(context.Context) (interface{}, error) {
			return nil, assert.AnError
		})
	s.ErrorIs(err, assert.AnError)
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:rankings:*", 100).SetVal([]string{"test:rankings:a", "test:rankings:b"}, 0)
	s.mock.ExpectDel("test:rankings:a", "test:rankings:b").SetVal(2)

	n, err := s.cache.DeleteByPrefix(context.Background(), "rankings:")
	s.NoError(err)
	s.Equal(int64(2), n)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
