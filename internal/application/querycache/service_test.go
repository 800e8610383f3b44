package querycache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/postgres"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/internal/infrastructure/search/vector"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// memEntryRepo is an in-memory postgres.CacheEntryRepository.
type memEntryRepo struct {
	entries map[string]postgres.CacheEntry
	getErr  error
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: make(map[string]postgres.CacheEntry)}
}

func (m *memEntryRepo) Get(_ context.Context, fp string) (*postgres.CacheEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[fp]
	if !ok {
		return nil, errors.NotFound("cache entry not found")
	}
	return &e, nil
}

func (m *memEntryRepo) Upsert(_ context.Context, e postgres.CacheEntry) error {
	m.entries[e.Fingerprint] = e
	return nil
}

func (m *memEntryRepo) ListValid(_ context.Context, schemaVersion int) ([]postgres.CacheEntry, error) {
	var out []postgres.CacheEntry
	for _, e := range m.entries {
		if e.SchemaVersion == schemaVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntryRepo) Count(context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

type stubTranslator struct {
	q     query.Query
	err   error
	calls int
}

func (s *stubTranslator) Translate(context.Context, string) (query.Query, error) {
	s.calls++
	return s.q, s.err
}

// stubEmbedder maps request texts to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func mustJSON(t *testing.T, q query.Query) []byte {
	t.Helper()
	data, err := json.Marshal(q)
	require.NoError(t, err)
	return data
}

type fixture struct {
	repo       *memEntryRepo
	index      vector.Index
	translator *stubTranslator
	embedder   *stubEmbedder
	svc        *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMemEntryRepo(),
		index:      vector.NewMemoryIndex(3),
		translator: &stubTranslator{q: query.Query{Operation: query.OpRankings, Domain: "sales"}},
		embedder:   &stubEmbedder{vectors: map[string][]float32{}},
	}
	f.svc = NewService(f.repo, f.index, f.translator, f.embedder,
		config.QueryCacheConfig{SimilarityThreshold: 0.92, SearchTopK: 5},
		logging.NewNopLogger())
	return f
}

// seed stores and indexes an already-translated request.
func (f *fixture) seed(t *testing.T, text string, vec []float32, q query.Query) string {
	t.Helper()
	fp := Fingerprint(text)
	require.NoError(t, f.repo.Upsert(context.Background(), postgres.CacheEntry{
		Fingerprint:     fp,
		RequestText:     text,
		Embedding:       vec,
		StructuredQuery: mustJSON(t, q),
		SchemaVersion:   query.SchemaVersion,
	}))
	require.NoError(t, f.index.Insert(context.Background(), fp, vec))
	f.embedder.vectors[text] = vec
	return fp
}

func TestResolveExactHit(t *testing.T) {
	f := newFixture(t)
	want := query.Query{Operation: query.OpAnomaly, Domain: "population", ZThreshold: 2}
	f.seed(t, "where is foot traffic unusual?", []float32{1, 0, 0}, want)

	res, err := f.svc.Resolve(context.Background(), "where is foot traffic unusual?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, res.Outcome)
	assert.Equal(t, want, res.Query)
	assert.Zero(t, f.translator.calls)
}

func TestResolveExactHitNormalizesText(t *testing.T) {
	f := newFixture(t)
	want := query.Query{Operation: query.OpRankings}
	f.seed(t, "Top districts by sales", []float32{1, 0, 0}, want)

	res, err := f.svc.Resolve(context.Background(), "  top districts BY   sales ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, res.Outcome)
	assert.Zero(t, f.translator.calls)
}

func TestResolveNearHitReusesQueryAndRecordsAlias(t *testing.T) {
	f := newFixture(t)
	want := query.Query{Operation: query.OpRankings, Domain: "sales", TopK: 10}
	matched := f.seed(t, "top 10 sales districts", []float32{1, 0, 0}, want)

	// Paraphrase embeds close to the seeded request, above the threshold.
	f.embedder.vectors["ten best districts for sales"] = []float32{1, 0.1, 0}

	res, err := f.svc.Resolve(context.Background(), "ten best districts for sales")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNear, res.Outcome)
	assert.Equal(t, want, res.Query)
	assert.Equal(t, matched, res.Matched)
	assert.GreaterOrEqual(t, res.Similarity, float32(0.92))
	assert.Zero(t, f.translator.calls)

	// The paraphrase is now an alias: the next identical request hits exactly.
	res, err = f.svc.Resolve(context.Background(), "ten best districts for sales")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, res.Outcome)
	assert.Zero(t, f.translator.calls)
}

func TestResolveBelowThresholdTranslates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "top 10 sales districts", []float32{1, 0, 0}, query.Query{Operation: query.OpRankings})

	// Orthogonal embedding, similarity 0.
	f.embedder.vectors["compare population and sales"] = []float32{0, 1, 0}

	res, err := f.svc.Resolve(context.Background(), "compare population and sales")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.Equal(t, f.translator.q, res.Query)
	assert.Equal(t, 1, f.translator.calls)
}

func TestResolveMissRecordsTranslation(t *testing.T) {
	f := newFixture(t)
	f.embedder.vectors["fresh request"] = []float32{0, 0, 1}

	res, err := f.svc.Resolve(context.Background(), "fresh request")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)

	// Second ask is exact and free.
	res, err = f.svc.Resolve(context.Background(), "fresh request")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, res.Outcome)
	assert.Equal(t, 1, f.translator.calls)
}

func TestResolveTranslatorFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.translator.err = errors.New(errors.ErrCodeTranslatorUnavailable, "provider down")
	f.embedder.vectors["anything"] = []float32{0, 0, 1}

	res, err := f.svc.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, query.Fallback(), res.Query)

	// Fallbacks are not cached; a later ask translates again.
	_, ok := f.repo.entries[Fingerprint("anything")]
	assert.False(t, ok)
}

func TestResolveEmbeddingFailureStillTranslates(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New(errors.ErrCodeEmbeddingFailed, "provider down")

	res, err := f.svc.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.Equal(t, 1, f.translator.calls)
}

func TestResolveSkipsStaleSchemaEntries(t *testing.T) {
	f := newFixture(t)
	fp := Fingerprint("old request")
	require.NoError(t, f.repo.Upsert(context.Background(), postgres.CacheEntry{
		Fingerprint:     fp,
		RequestText:     "old request",
		Embedding:       []float32{1, 0, 0},
		StructuredQuery: []byte(`{"operation":"rankings"}`),
		SchemaVersion:   query.SchemaVersion - 1,
	}))
	f.embedder.vectors["old request"] = []float32{1, 0, 0}

	res, err := f.svc.Resolve(context.Background(), "old request")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.Equal(t, 1, f.translator.calls)
}

func TestWarmLoadsOnlyCurrentSchema(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "current", []float32{1, 0, 0}, query.Query{Operation: query.OpRankings})
	require.NoError(t, f.repo.Upsert(context.Background(), postgres.CacheEntry{
		Fingerprint:   "stale-fp",
		Embedding:     []float32{0, 1, 0},
		SchemaVersion: query.SchemaVersion - 1,
	}))

	fresh := vector.NewMemoryIndex(3)
	f.svc = NewService(f.repo, fresh, f.translator, f.embedder,
		config.QueryCacheConfig{SimilarityThreshold: 0.92, SearchTopK: 5},
		logging.NewNopLogger())
	require.NoError(t, f.svc.Warm(context.Background()))

	n, err := fresh.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFingerprintStability(t *testing.T) {
	assert.Equal(t, Fingerprint("Top Districts"), Fingerprint("top   districts"))
	assert.NotEqual(t, Fingerprint("top districts"), Fingerprint("bottom districts"))
	assert.Len(t, Fingerprint("x"), 64)
}
