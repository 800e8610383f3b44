// Package minio archives advanced-insight refresh snapshots to object
// storage, one JSON document per refresh, for audit and offline analysis.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appinsight "github.com/geoinsight/geoinsight/internal/application/insight"
	"github.com/geoinsight/geoinsight/internal/config"
	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

const snapshotPrefix = "snapshots/advanced/"

// MinIOAPI is the slice of the minio client the archiver uses.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// minioAPI adapts *minio.Client, whose PutObject takes an io.Reader.
type minioAPI struct {
	*minio.Client
}

func (a minioAPI) PutObject(ctx context.Context, bucketName, objectName string,
	reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.Client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

// Archiver writes refresh snapshots under snapshots/advanced/<timestamp>.json.
type Archiver struct {
	api    MinIOAPI
	bucket string
	logger logging.Logger
}

var _ appinsight.Archiver = (*Archiver)(nil)

// NewArchiver connects to object storage per cfg and ensures the bucket.
func NewArchiver(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotArchiving, "minio client creation failed")
	}
	a := &Archiver{api: minioAPI{client}, bucket: cfg.Bucket, logger: logger}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("snapshot archiver ready",
		logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket))
	return a, nil
}

// NewArchiverFromAPI wraps an existing API.  Used by tests.
func NewArchiverFromAPI(api MinIOAPI, bucket string, logger logging.Logger) *Archiver {
	return &Archiver{api: api, bucket: bucket, logger: logger}
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.api.BucketExists(ctx, a.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotArchiving, "bucket check failed")
	}
	if exists {
		return nil
	}
	if err := a.api.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotArchiving, "bucket creation failed")
	}
	return nil
}

// ArchiveAdvanced writes one snapshot document and returns its object key.
func (a *Archiver) ArchiveAdvanced(ctx context.Context, rs *domaininsight.ResultSet) (string, error) {
	payload, err := json.Marshal(rs)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "snapshot serialization failed")
	}

	key := snapshotPrefix + rs.RefreshedAt.UTC().Format(time.RFC3339) + ".json"
	_, err = a.api.PutObject(ctx, a.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSnapshotArchiving, "snapshot upload failed")
	}

	a.logger.Info("snapshot archived",
		logging.String("key", key), logging.Int("bytes", len(payload)))
	return key, nil
}
