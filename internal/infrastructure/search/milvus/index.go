// Package milvus backs the vector.Index abstraction with a Milvus HNSW
// collection, for deployments where the query-cache corpus outgrows a single
// process.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/search/vector"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

const (
	fingerprintField = "fingerprint"
	embeddingField   = "embedding"

	fingerprintMaxLength = 64
	defaultSearchEf      = 64
)

// milvusNewClient is swapped by tests to avoid a live server.
var milvusNewClient = client.NewClient

// Index is the Milvus-backed ANN index over (fingerprint, embedding) rows.
type Index struct {
	mc         client.Client
	collection string
	dim        int
	logger     logging.Logger
}

var _ vector.Index = (*Index)(nil)

// NewIndex connects to Milvus per cfg and ensures the collection, HNSW index
// and load state before returning.
func NewIndex(ctx context.Context, cfg config.MilvusConfig, logger logging.Logger) (*Index, error) {
	mc, err := milvusNewClient(ctx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorIndexError, "milvus connection failed")
	}

	idx := &Index{
		mc:         mc,
		collection: cfg.Collection,
		dim:        cfg.EmbeddingDim,
		logger:     logger,
	}
	if err := idx.ensureCollection(ctx, cfg); err != nil {
		_ = mc.Close()
		return nil, err
	}

	logger.Info("milvus index ready",
		logging.String("addr", cfg.Addr),
		logging.String("collection", cfg.Collection),
		logging.Int("dim", cfg.EmbeddingDim))
	return idx, nil
}

func (x *Index) ensureCollection(ctx context.Context, cfg config.MilvusConfig) error {
	exists, err := x.mc.HasCollection(ctx, x.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexError, "collection check failed")
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(x.collection).
			WithDescription("semantic query cache embeddings").
			WithField(entity.NewField().
				WithName(fingerprintField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(fingerprintMaxLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(embeddingField).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(x.dim)))
		if err := x.mc.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorIndexError, "collection creation failed")
		}

		hnsw, err := entity.NewIndexHNSW(entity.COSINE, cfg.HNSWM, cfg.HNSWEfConstruction)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorIndexError, "index parameters rejected")
		}
		if err := x.mc.CreateIndex(ctx, x.collection, embeddingField, hnsw, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorIndexError, "index creation failed")
		}
	}
	if err := x.mc.LoadCollection(ctx, x.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexError, "collection load failed")
	}
	return nil
}

// Insert upserts one embedding keyed by fingerprint.
func (x *Index) Insert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != x.dim {
		return errors.New(errors.ErrCodeVectorIndexError, "embedding dimension mismatch")
	}
	_, err := x.mc.Upsert(ctx, x.collection, "",
		entity.NewColumnVarChar(fingerprintField, []string{id}),
		entity.NewColumnFloatVector(embeddingField, x.dim, [][]float32{vec}))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexError, "embedding upsert failed")
	}
	return nil
}

// Search returns the k nearest stored fingerprints by cosine similarity.
func (x *Index) Search(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	if len(vec) != x.dim {
		return nil, errors.New(errors.ErrCodeVectorIndexError, "embedding dimension mismatch")
	}
	if k <= 0 {
		return nil, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(defaultSearchEf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorIndexError, "search parameters rejected")
	}
	results, err := x.mc.Search(ctx, x.collection, nil, "",
		[]string{fingerprintField},
		[]entity.Vector{entity.FloatVector(vec)},
		embeddingField, entity.COSINE, k, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorIndexError, "vector search failed")
	}

	var hits []vector.Hit
	for _, result := range results {
		ids, ok := result.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, errors.New(errors.ErrCodeVectorIndexError, "unexpected primary key column type")
		}
		for i := 0; i < result.ResultCount; i++ {
			id, err := ids.ValueByIdx(i)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeVectorIndexError, "result id read failed")
			}
			hits = append(hits, vector.Hit{ID: id, Similarity: result.Scores[i]})
		}
	}
	return hits, nil
}

// Delete removes one fingerprint from the collection.
func (x *Index) Delete(ctx context.Context, id string) error {
	expr := fmt.Sprintf(`%s in ["%s"]`, fingerprintField, id)
	if err := x.mc.Delete(ctx, x.collection, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexError, "embedding delete failed")
	}
	return nil
}

// Size reports the collection row count.
func (x *Index) Size(ctx context.Context) (int, error) {
	stats, err := x.mc.GetCollectionStatistics(ctx, x.collection)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeVectorIndexError, "statistics read failed")
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeVectorIndexError, "unparsable row count")
	}
	return n, nil
}

// Close releases the grpc connection.
func (x *Index) Close() error {
	return x.mc.Close()
}
