package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/geoinsight/geoinsight/pkg/errors"
)

// CacheEntry is one persisted query-cache mapping: the fingerprint of a
// normalized request text, its embedding, and the structured query it
// translates to.  SchemaVersion records which query schema the stored
// structured_query conforms to; entries from older schemas are logically
// invalid and skipped at load.
type CacheEntry struct {
	Fingerprint     string
	RequestText     string
	Embedding       []float32
	StructuredQuery json.RawMessage
	SchemaVersion   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CacheEntryRepository is the persistence port for the query-mapping cache
// table backing the semantic query cache.
type CacheEntryRepository interface {
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)

	// Upsert writes an entry keyed by fingerprint.  Writing the same
	// fingerprint again replaces the stored mapping (last writer wins), so
	// re-recording a hit is idempotent.
	Upsert(ctx context.Context, entry CacheEntry) error

	// ListValid returns the entries whose schema version matches
	// schemaVersion, for rebuilding the in-memory vector index at startup.
	ListValid(ctx context.Context, schemaVersion int) ([]CacheEntry, error)

	Count(ctx context.Context) (int64, error)
}

type cacheEntryRepo struct {
	db Querier
}

// NewCacheEntryRepository builds the PostgreSQL-backed cache-entry repository.
func NewCacheEntryRepository(db Querier) CacheEntryRepository {
	return &cacheEntryRepo{db: db}
}

const getCacheEntrySQL = `
	SELECT fingerprint, request_text, embedding, structured_query, schema_version, created_at, updated_at
	FROM query_mapping_cache
	WHERE fingerprint = $1`

func (r *cacheEntryRepo) Get(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	var e CacheEntry
	err := r.db.QueryRow(ctx, getCacheEntrySQL, fingerprint).Scan(
		&e.Fingerprint, &e.RequestText, &e.Embedding, &e.StructuredQuery,
		&e.SchemaVersion, &e.CreatedAt, &e.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("cache entry not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load cache entry")
	}
	return &e, nil
}

const upsertCacheEntrySQL = `
	INSERT INTO query_mapping_cache
		(fingerprint, request_text, embedding, structured_query, schema_version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, now(), now())
	ON CONFLICT (fingerprint) DO UPDATE SET
		request_text     = EXCLUDED.request_text,
		embedding        = EXCLUDED.embedding,
		structured_query = EXCLUDED.structured_query,
		schema_version   = EXCLUDED.schema_version,
		updated_at       = now()`

func (r *cacheEntryRepo) Upsert(ctx context.Context, entry CacheEntry) error {
	_, err := r.db.Exec(ctx, upsertCacheEntrySQL,
		entry.Fingerprint, entry.RequestText, entry.Embedding,
		entry.StructuredQuery, entry.SchemaVersion)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert cache entry")
	}
	return nil
}

const listValidCacheEntriesSQL = `
	SELECT fingerprint, request_text, embedding, structured_query, schema_version, created_at, updated_at
	FROM query_mapping_cache
	WHERE schema_version = $1
	ORDER BY created_at`

func (r *cacheEntryRepo) ListValid(ctx context.Context, schemaVersion int) ([]CacheEntry, error) {
	rows, err := r.db.Query(ctx, listValidCacheEntriesSQL, schemaVersion)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list cache entries")
	}
	defer rows.Close()

	var out []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.Fingerprint, &e.RequestText, &e.Embedding,
			&e.StructuredQuery, &e.SchemaVersion, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan cache entry row")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *cacheEntryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM query_mapping_cache`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count cache entries")
	}
	return n, nil
}
