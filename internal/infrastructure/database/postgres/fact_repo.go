package postgres

import (
	"context"
	"time"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fact row types
// ─────────────────────────────────────────────────────────────────────────────

// ActivityFact is one raw activity record as ingested: metric values for a
// (spatial_key, month) reported by one source.  Metric columns are nil when
// the source did not report them.
type ActivityFact struct {
	SpatialKey  string
	Month       time.Time
	Source      string
	FootTraffic *float64
	Sales       *float64
	SalesCount  *float64
}

// DemographicFact is one raw demographic record: the measured value for a
// (spatial_key, month, sex, age_group) cell reported by one source.
type DemographicFact struct {
	SpatialKey string
	Month      time.Time
	Source     string
	Sex        string
	AgeGroup   string
	Value      float64
}

// SourceOverlap names a fact cell reported by more than one source.  Values
// still sum additively; the overlap is surfaced so operators can judge
// whether the sources genuinely partition the data.
type SourceOverlap struct {
	SpatialKey string
	Month      time.Time
	Sources    []string
}

// FactRepository is the persistence port for the normalized fact tables.
type FactRepository interface {
	ListActivity(ctx context.Context) ([]ActivityFact, error)
	ListDemographics(ctx context.Context) ([]DemographicFact, error)
	ListSources(ctx context.Context) ([]string, error)

	// UpsertActivity writes facts with additive merge semantics: a row
	// already present for the same (spatial_key, month, source) has each
	// metric accumulated, treating nil as zero, rather than replaced.
	UpsertActivity(ctx context.Context, facts []ActivityFact) error
	UpsertDemographics(ctx context.Context, facts []DemographicFact) error

	// ActivityOverlaps lists cells whose values come from multiple sources.
	ActivityOverlaps(ctx context.Context) ([]SourceOverlap, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// pgx implementation
// ─────────────────────────────────────────────────────────────────────────────

type factRepo struct {
	db     Querier
	logger logging.Logger
}

// NewFactRepository builds the PostgreSQL-backed fact repository.
func NewFactRepository(db Querier, logger logging.Logger) FactRepository {
	return &factRepo{db: db, logger: logger}
}

const listActivitySQL = `
	SELECT spatial_key, month, source, foot_traffic, sales, sales_count
	FROM activity_facts
	ORDER BY spatial_key, month, source`

func (r *factRepo) ListActivity(ctx context.Context) ([]ActivityFact, error) {
	rows, err := r.db.Query(ctx, listActivitySQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "failed to scan activity facts")
	}
	defer rows.Close()

	var out []ActivityFact
	for rows.Next() {
		var f ActivityFact
		if err := rows.Scan(&f.SpatialKey, &f.Month, &f.Source,
			&f.FootTraffic, &f.Sales, &f.SalesCount); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "failed to scan activity fact row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "activity fact scan interrupted")
	}
	return out, nil
}

const listDemographicsSQL = `
	SELECT spatial_key, month, source, sex, age_group, value
	FROM demographic_facts
	ORDER BY spatial_key, month, source, sex, age_group`

func (r *factRepo) ListDemographics(ctx context.Context) ([]DemographicFact, error) {
	rows, err := r.db.Query(ctx, listDemographicsSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "failed to scan demographic facts")
	}
	defer rows.Close()

	var out []DemographicFact
	for rows.Next() {
		var f DemographicFact
		if err := rows.Scan(&f.SpatialKey, &f.Month, &f.Source,
			&f.Sex, &f.AgeGroup, &f.Value); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "failed to scan demographic fact row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFactScanFailed, "demographic fact scan interrupted")
	}
	return out, nil
}

const listSourcesSQL = `
	SELECT source FROM activity_facts
	UNION
	SELECT source FROM demographic_facts
	ORDER BY source`

func (r *factRepo) ListSources(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, listSourcesSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list fact sources")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan source row")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// upsertActivitySQL accumulates metrics on conflict instead of replacing
// them, so re-ingesting a source's delta file adds to what is already there.
// A nil column pair stays nil; any present value treats the other side as 0.
const upsertActivitySQL = `
	INSERT INTO activity_facts (spatial_key, month, source, foot_traffic, sales, sales_count)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (spatial_key, month, source) DO UPDATE SET
		foot_traffic = CASE
			WHEN activity_facts.foot_traffic IS NULL AND EXCLUDED.foot_traffic IS NULL THEN NULL
			ELSE COALESCE(activity_facts.foot_traffic, 0) + COALESCE(EXCLUDED.foot_traffic, 0) END,
		sales = CASE
			WHEN activity_facts.sales IS NULL AND EXCLUDED.sales IS NULL THEN NULL
			ELSE COALESCE(activity_facts.sales, 0) + COALESCE(EXCLUDED.sales, 0) END,
		sales_count = CASE
			WHEN activity_facts.sales_count IS NULL AND EXCLUDED.sales_count IS NULL THEN NULL
			ELSE COALESCE(activity_facts.sales_count, 0) + COALESCE(EXCLUDED.sales_count, 0) END,
		updated_at = now()`

func (r *factRepo) UpsertActivity(ctx context.Context, facts []ActivityFact) error {
	for _, f := range facts {
		if _, err := r.db.Exec(ctx, upsertActivitySQL,
			f.SpatialKey, f.Month, f.Source, f.FootTraffic, f.Sales, f.SalesCount); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert activity fact")
		}
	}
	return nil
}

const upsertDemographicSQL = `
	INSERT INTO demographic_facts (spatial_key, month, source, sex, age_group, value)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (spatial_key, month, source, sex, age_group) DO UPDATE SET
		value = demographic_facts.value + EXCLUDED.value,
		updated_at = now()`

func (r *factRepo) UpsertDemographics(ctx context.Context, facts []DemographicFact) error {
	for _, f := range facts {
		if _, err := r.db.Exec(ctx, upsertDemographicSQL,
			f.SpatialKey, f.Month, f.Source, f.Sex, f.AgeGroup, f.Value); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert demographic fact")
		}
	}
	return nil
}

const activityOverlapsSQL = `
	SELECT spatial_key, month, array_agg(source ORDER BY source)
	FROM activity_facts
	GROUP BY spatial_key, month
	HAVING count(DISTINCT source) > 1
	ORDER BY spatial_key, month`

func (r *factRepo) ActivityOverlaps(ctx context.Context) ([]SourceOverlap, error) {
	rows, err := r.db.Query(ctx, activityOverlapsSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceOverlap, "failed to detect source overlaps")
	}
	defer rows.Close()

	var out []SourceOverlap
	for rows.Next() {
		var o SourceOverlap
		if err := rows.Scan(&o.SpatialKey, &o.Month, &o.Sources); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceOverlap, "failed to scan overlap row")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
