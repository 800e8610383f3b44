package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

type mockMinIO struct {
	bucketExists bool
	madeBucket   string
	putKey       string
	putBody      []byte
	putErr       error
}

func (m *mockMinIO) BucketExists(context.Context, string) (bool, error) {
	return m.bucketExists, nil
}

func (m *mockMinIO) MakeBucket(_ context.Context, bucketName string, _ minio.MakeBucketOptions) error {
	m.madeBucket = bucketName
	return nil
}

func (m *mockMinIO) PutObject(_ context.Context, _, objectName string, reader *bytes.Reader,
	_ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putErr != nil {
		return minio.UploadInfo{}, m.putErr
	}
	m.putKey = objectName
	body, _ := io.ReadAll(reader)
	m.putBody = body
	return minio.UploadInfo{Key: objectName}, nil
}

func testResultSet() *domaininsight.ResultSet {
	corr := 0.9
	return &domaininsight.ResultSet{
		Insights: []domaininsight.AdvancedInsight{
			{Level: common.LevelIntermediate, Label: "Gangnam-gu", Corr: &corr, SampleSize: 12},
		},
		RefreshedAt: time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC),
	}
}

func TestArchiveAdvancedWritesTimestampedJSON(t *testing.T) {
	api := &mockMinIO{bucketExists: true}
	a := NewArchiverFromAPI(api, "geoinsight-snapshots", logging.NewNopLogger())

	key, err := a.ArchiveAdvanced(context.Background(), testResultSet())
	require.NoError(t, err)
	assert.Equal(t, "snapshots/advanced/2025-01-15T03:00:00Z.json", key)
	assert.Equal(t, key, api.putKey)

	var got domaininsight.ResultSet
	require.NoError(t, json.Unmarshal(api.putBody, &got))
	require.Len(t, got.Insights, 1)
	assert.Equal(t, "Gangnam-gu", got.Insights[0].Label)
}

func TestArchiveAdvancedUploadFailure(t *testing.T) {
	api := &mockMinIO{bucketExists: true, putErr: assert.AnError}
	a := NewArchiverFromAPI(api, "geoinsight-snapshots", logging.NewNopLogger())

	_, err := a.ArchiveAdvanced(context.Background(), testResultSet())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotArchiving))
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	api := &mockMinIO{bucketExists: false}
	a := NewArchiverFromAPI(api, "geoinsight-snapshots", logging.NewNopLogger())

	require.NoError(t, a.ensureBucket(context.Background()))
	assert.Equal(t, "geoinsight-snapshots", api.madeBucket)
}
