package querycache

import (
	"context"
	"encoding/json"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/postgres"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/search/vector"
	"github.com/geoinsight/geoinsight/internal/infrastructure/translator"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// Outcome labels how a request text was resolved.
type Outcome string

const (
	// OutcomeExact means the fingerprint matched a stored entry verbatim.
	OutcomeExact Outcome = "exact"
	// OutcomeNear means a semantically similar request's query was reused.
	OutcomeNear Outcome = "near"
	// OutcomeMiss means the translator produced a fresh query.
	OutcomeMiss Outcome = "miss"
	// OutcomeFallback means translation failed and the default query was
	// substituted.
	OutcomeFallback Outcome = "fallback"
)

// Resolution is the outcome of resolving one request text.
type Resolution struct {
	Query       query.Query
	Outcome     Outcome
	Fingerprint string
	// Matched carries the fingerprint of the reused entry on a near hit.
	Matched string
	// Similarity is the cosine similarity of the near hit, zero otherwise.
	Similarity float32
}

// Service is the semantic query cache.  Resolve never returns an error for
// translator or embedding failures; the worst case is the fallback query, so
// the assistant endpoint stays available through provider outages.
type Service struct {
	entries    postgres.CacheEntryRepository
	index      vector.Index
	translator translator.Translator
	embedder   translator.Embedder
	threshold  float32
	topK       int
	logger     logging.Logger
}

// NewService wires the cache over its stores and the translator.
func NewService(entries postgres.CacheEntryRepository, index vector.Index,
	tr translator.Translator, emb translator.Embedder,
	cfg config.QueryCacheConfig, logger logging.Logger) *Service {
	return &Service{
		entries:    entries,
		index:      index,
		translator: tr,
		embedder:   emb,
		threshold:  float32(cfg.SimilarityThreshold),
		topK:       cfg.SearchTopK,
		logger:     logger,
	}
}

// Warm rebuilds the vector index from the persisted entries of the current
// schema version.  Entries minted under older schemas stay in the table but
// are never loaded, which is the logical invalidation path.
func (s *Service) Warm(ctx context.Context) error {
	entries, err := s.entries.ListValid(ctx, query.SchemaVersion)
	if err != nil {
		return err
	}
	loaded := 0
	for _, e := range entries {
		if err := s.index.Insert(ctx, e.Fingerprint, e.Embedding); err != nil {
			s.logger.Warn("skipping unindexable cache entry",
				logging.String("fingerprint", e.Fingerprint), logging.Err(err))
			continue
		}
		loaded++
	}
	s.logger.Info("query cache warmed",
		logging.Int("persisted", len(entries)), logging.Int("indexed", loaded))
	return nil
}

// Close reports the final cache size.  Entries are persisted synchronously on
// write, so there is nothing to flush beyond the teardown log.
func (s *Service) Close(ctx context.Context) error {
	if n, err := s.entries.Count(ctx); err == nil {
		s.logger.Info("query cache closed", logging.Int64("entries", n))
	}
	return nil
}

// Resolve maps text to a structured query: exact fingerprint hit, then
// nearest-neighbor reuse above the similarity threshold, then translation.
// Each reuse path records the new fingerprint as an alias of the resolved
// query so the next identical request is an exact hit.
func (s *Service) Resolve(ctx context.Context, text string) (Resolution, error) {
	fp := Fingerprint(text)

	if q, ok := s.lookupExact(ctx, fp); ok {
		return Resolution{Query: q, Outcome: OutcomeExact, Fingerprint: fp}, nil
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// Without an embedding there is no near tier and nothing to index;
		// translation still works.
		s.logger.Warn("embedding failed, skipping near-hit tier", logging.Err(err))
		embedding = nil
	}

	if embedding != nil {
		if res, ok := s.lookupNear(ctx, fp, text, embedding); ok {
			return res, nil
		}
	}

	q, err := s.translator.Translate(ctx, text)
	if err != nil {
		s.logger.Warn("translation failed, serving fallback query",
			logging.String("text", text), logging.Err(err))
		return Resolution{Query: query.Fallback(), Outcome: OutcomeFallback, Fingerprint: fp}, nil
	}

	s.record(ctx, fp, text, embedding, q)
	return Resolution{Query: q, Outcome: OutcomeMiss, Fingerprint: fp}, nil
}

func (s *Service) lookupExact(ctx context.Context, fp string) (query.Query, bool) {
	entry, err := s.entries.Get(ctx, fp)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeNotFound) {
			s.logger.Warn("exact lookup failed", logging.Err(err))
		}
		return query.Query{}, false
	}
	if entry.SchemaVersion != query.SchemaVersion {
		return query.Query{}, false
	}
	q, err := query.Parse(entry.StructuredQuery)
	if err != nil {
		s.logger.Warn("stored query no longer parses, treating as miss",
			logging.String("fingerprint", fp), logging.Err(err))
		return query.Query{}, false
	}
	return q, true
}

func (s *Service) lookupNear(ctx context.Context, fp, text string, embedding []float32) (Resolution, bool) {
	hits, err := s.index.Search(ctx, embedding, s.topK)
	if err != nil {
		s.logger.Warn("vector search failed, skipping near-hit tier", logging.Err(err))
		return Resolution{}, false
	}
	for _, hit := range hits {
		if hit.Similarity < s.threshold {
			break
		}
		entry, err := s.entries.Get(ctx, hit.ID)
		if err != nil {
			continue
		}
		if entry.SchemaVersion != query.SchemaVersion {
			continue
		}
		q, err := query.Parse(entry.StructuredQuery)
		if err != nil {
			continue
		}
		// Alias the new fingerprint to the matched query without paying for
		// another translation.
		s.record(ctx, fp, text, embedding, q)
		return Resolution{
			Query:       q,
			Outcome:     OutcomeNear,
			Fingerprint: fp,
			Matched:     hit.ID,
			Similarity:  hit.Similarity,
		}, true
	}
	return Resolution{}, false
}

// record persists and indexes the mapping.  Failures only cost future cache
// hits, never the current resolution, so they log and return.
func (s *Service) record(ctx context.Context, fp, text string, embedding []float32, q query.Query) {
	structured, err := json.Marshal(q)
	if err != nil {
		s.logger.Warn("failed to serialize structured query", logging.Err(err))
		return
	}
	err = s.entries.Upsert(ctx, postgres.CacheEntry{
		Fingerprint:     fp,
		RequestText:     text,
		Embedding:       embedding,
		StructuredQuery: structured,
		SchemaVersion:   query.SchemaVersion,
	})
	if err != nil {
		s.logger.Warn("failed to persist cache entry",
			logging.String("fingerprint", fp), logging.Err(err))
		return
	}
	if embedding != nil {
		if err := s.index.Insert(ctx, fp, embedding); err != nil {
			s.logger.Warn("failed to index cache entry",
				logging.String("fingerprint", fp), logging.Err(err))
		}
	}
}
