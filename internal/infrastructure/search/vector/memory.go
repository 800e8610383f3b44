package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/geoinsight/geoinsight/pkg/errors"
)

// memoryIndex is a brute-force cosine index.  Vectors are L2-normalized at
// insert so a search is one dot product per entry.  Fine for the query-cache
// workload, where the corpus is the set of distinct translated requests.
type memoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string][]float32
}

// NewMemoryIndex builds an empty in-memory index for dim-sized vectors.
func NewMemoryIndex(dim int) Index {
	return &memoryIndex{dim: dim, entries: make(map[string][]float32)}
}

func (m *memoryIndex) Insert(_ context.Context, id string, vec []float32) error {
	if id == "" {
		return errors.New(errors.ErrCodeVectorIndexError, "empty index id")
	}
	if len(vec) != m.dim {
		return errors.New(errors.ErrCodeVectorIndexError, "embedding dimension mismatch")
	}
	normalized, ok := normalize(vec)
	if !ok {
		return errors.New(errors.ErrCodeVectorIndexError, "zero-magnitude embedding")
	}
	m.mu.Lock()
	m.entries[id] = normalized
	m.mu.Unlock()
	return nil
}

func (m *memoryIndex) Search(_ context.Context, vec []float32, k int) ([]Hit, error) {
	if len(vec) != m.dim {
		return nil, errors.New(errors.ErrCodeVectorIndexError, "embedding dimension mismatch")
	}
	if k <= 0 {
		return nil, nil
	}
	probe, ok := normalize(vec)
	if !ok {
		return nil, errors.New(errors.ErrCodeVectorIndexError, "zero-magnitude embedding")
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.entries))
	for id, stored := range m.entries {
		hits = append(hits, Hit{ID: id, Similarity: dot(probe, stored)})
	}
	m.mu.RUnlock()

	// Ties break on id so repeated probes return the same ordering.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func (m *memoryIndex) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func normalize(vec []float32) ([]float32, bool) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil, false
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) * inv)
	}
	return out, true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
