package postgres

import (
	"context"

	"github.com/geoinsight/geoinsight/internal/domain/spatial"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// SpatialUnitRepository loads the spatial dimension table the resolver
// directory is built from.
type SpatialUnitRepository interface {
	ListUnits(ctx context.Context) ([]spatial.Unit, error)
}

type spatialRepo struct {
	db Querier
}

// NewSpatialUnitRepository builds the PostgreSQL-backed dimension reader.
func NewSpatialUnitRepository(db Querier) SpatialUnitRepository {
	return &spatialRepo{db: db}
}

const listUnitsSQL = `
	SELECT key, COALESCE(code, ''), COALESCE(emd_nm, ''), COALESCE(sig_nm, ''), COALESCE(sido_nm, '')
	FROM spatial_units
	ORDER BY key`

func (r *spatialRepo) ListUnits(ctx context.Context) ([]spatial.Unit, error) {
	rows, err := r.db.Query(ctx, listUnitsSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list spatial units")
	}
	defer rows.Close()

	var out []spatial.Unit
	for rows.Next() {
		var u spatial.Unit
		if err := rows.Scan(&u.Key, &u.Code,
			&u.FinestLabel, &u.IntermediateLabel, &u.CoarsestLabel); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan spatial unit row")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
