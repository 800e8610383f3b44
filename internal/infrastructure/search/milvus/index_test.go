package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

type mockMilvusClient struct {
	client.Client

	upsertFunc func(ctx context.Context, collName, partitionName string,
		columns ...entity.Column) (entity.Column, error)
	searchFunc func(ctx context.Context, collName string, partitions []string,
		expr string, outputFields []string, vectors []entity.Vector, vectorField string,
		metricType entity.MetricType, topK int, sp entity.SearchParam,
		opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	deleteFunc func(ctx context.Context, collName, partitionName, expr string) error
	statsFunc  func(ctx context.Context, collName string) (map[string]string, error)
}

func (m *mockMilvusClient) Upsert(ctx context.Context, collName, partitionName string,
	columns ...entity.Column) (entity.Column, error) {
	return m.upsertFunc(ctx, collName, partitionName, columns...)
}

func (m *mockMilvusClient) Search(ctx context.Context, collName string, partitions []string,
	expr string, outputFields []string, vectors []entity.Vector, vectorField string,
	metricType entity.MetricType, topK int, sp entity.SearchParam,
	opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	return m.searchFunc(ctx, collName, partitions, expr, outputFields, vectors,
		vectorField, metricType, topK, sp, opts...)
}

func (m *mockMilvusClient) Delete(ctx context.Context, collName, partitionName, expr string) error {
	return m.deleteFunc(ctx, collName, partitionName, expr)
}

func (m *mockMilvusClient) GetCollectionStatistics(ctx context.Context, collName string) (map[string]string, error) {
	return m.statsFunc(ctx, collName)
}

func newTestIndex(mc client.Client) *Index {
	return &Index{
		mc:         mc,
		collection: "query_mappings",
		dim:        3,
		logger:     logging.NewNopLogger(),
	}
}

func TestInsertUpsertsFingerprintAndEmbedding(t *testing.T) {
	var gotColl string
	var gotColumns []entity.Column
	mc := &mockMilvusClient{
		upsertFunc: func(_ context.Context, collName, _ string, columns ...entity.Column) (entity.Column, error) {
			gotColl = collName
			gotColumns = columns
			return nil, nil
		},
	}
	idx := newTestIndex(mc)

	err := idx.Insert(context.Background(), "fp-1", []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "query_mappings", gotColl)
	require.Len(t, gotColumns, 2)
	assert.Equal(t, fingerprintField, gotColumns[0].Name())
	assert.Equal(t, embeddingField, gotColumns[1].Name())
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	idx := newTestIndex(&mockMilvusClient{})

	err := idx.Insert(context.Background(), "fp-1", []float32{1, 2})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeVectorIndexError))
}

func TestSearchMapsResultsToHits(t *testing.T) {
	mc := &mockMilvusClient{
		searchFunc: func(_ context.Context, _ string, _ []string, _ string, _ []string,
			_ []entity.Vector, _ string, metricType entity.MetricType, topK int,
			_ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			assert.Equal(t, entity.COSINE, metricType)
			assert.Equal(t, 2, topK)
			return []client.SearchResult{{
				ResultCount: 2,
				IDs:         entity.NewColumnVarChar(fingerprintField, []string{"fp-a", "fp-b"}),
				Scores:      []float32{0.98, 0.91},
			}}, nil
		},
	}
	idx := newTestIndex(mc)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "fp-a", hits[0].ID)
	assert.InDelta(t, 0.98, float64(hits[0].Similarity), 1e-6)
	assert.Equal(t, "fp-b", hits[1].ID)
}

func TestSearchZeroKShortCircuits(t *testing.T) {
	idx := newTestIndex(&mockMilvusClient{})

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestDeleteBuildsFingerprintExpression(t *testing.T) {
	var gotExpr string
	mc := &mockMilvusClient{
		deleteFunc: func(_ context.Context, _, _, expr string) error {
			gotExpr = expr
			return nil
		},
	}
	idx := newTestIndex(mc)

	require.NoError(t, idx.Delete(context.Background(), "fp-1"))
	assert.Equal(t, `fingerprint in ["fp-1"]`, gotExpr)
}

func TestSizeParsesRowCount(t *testing.T) {
	mc := &mockMilvusClient{
		statsFunc: func(_ context.Context, _ string) (map[string]string, error) {
			return map[string]string{"row_count": "42"}, nil
		},
	}
	idx := newTestIndex(mc)

	n, err := idx.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
