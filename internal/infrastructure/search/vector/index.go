// Package vector defines the ANN index abstraction behind the semantic query
// cache: embeddings keyed by request fingerprint, probed by cosine
// similarity.  The in-memory implementation serves tests and single-node
// deployments; the milvus package provides the clustered one.
package vector

import (
	"context"
)

// Hit is one index match: the stored fingerprint and its cosine similarity
// to the probe vector, in [-1, 1].
type Hit struct {
	ID         string
	Similarity float32
}

// Index stores embeddings by id and returns the nearest stored vectors for a
// probe.  Inserting an existing id replaces its vector.
type Index interface {
	Insert(ctx context.Context, id string, vec []float32) error
	Search(ctx context.Context, vec []float32, k int) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	Size(ctx context.Context) (int, error)
}
