package postgres

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/domain/metrics"
	"github.com/geoinsight/geoinsight/internal/domain/spatial"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// FactStore is the insight.FactSource over the normalized fact tables.  It
// resolves raw spatial keys through the directory and sums facts per
// (label, month) at the requested level, so the aggregator only ever sees
// labeled, deduplicated groups.
type FactStore struct {
	repo     FactRepository
	resolver *spatial.Resolver
	logger   logging.Logger
}

// NewFactStore builds the fact accessor over repo and resolver.
func NewFactStore(repo FactRepository, resolver *spatial.Resolver, logger logging.Logger) *FactStore {
	return &FactStore{repo: repo, resolver: resolver, logger: logger}
}

var _ insight.FactSource = (*FactStore)(nil)

// ActivityByLevel loads all activity facts, maps each raw key to its label at
// level, and sums per (label, month).  A metric stays nil only when no source
// reported it for the cell; any reported value treats absent siblings as zero.
func (s *FactStore) ActivityByLevel(ctx context.Context, level common.Level) ([]insight.ActivityGroup, error) {
	facts, err := s.repo.ListActivity(ctx)
	if err != nil {
		return nil, err
	}
	s.warnOverlaps(ctx)

	type cellKey struct {
		label string
		month time.Time
	}
	cells := make(map[cellKey]*insight.ActivityGroup)
	for _, f := range facts {
		label := s.resolver.Resolve(f.SpatialKey).LabelAt(level)
		k := cellKey{label: label, month: common.Month(f.Month)}
		g, ok := cells[k]
		if !ok {
			g = &insight.ActivityGroup{Label: k.label, Date: k.month}
			cells[k] = g
		}
		g.FootTraffic = addOpt(g.FootTraffic, f.FootTraffic)
		g.Sales = addOpt(g.Sales, f.Sales)
		g.SalesCount = addOpt(g.SalesCount, f.SalesCount)
	}

	out := make([]insight.ActivityGroup, 0, len(cells))
	for _, g := range cells {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// DemographicsAtFinest loads demographic facts and sums per
// (label, month, sex, age_group) at the finest level.
func (s *FactStore) DemographicsAtFinest(ctx context.Context) ([]metrics.DemographicObservation, error) {
	facts, err := s.repo.ListDemographics(ctx)
	if err != nil {
		return nil, err
	}

	type cellKey struct {
		label    string
		month    time.Time
		sex      string
		ageGroup string
	}
	cells := make(map[cellKey]float64)
	for _, f := range facts {
		label := s.resolver.Resolve(f.SpatialKey).LabelAt(common.LevelFinest)
		cells[cellKey{label, common.Month(f.Month), f.Sex, f.AgeGroup}] += f.Value
	}

	out := make([]metrics.DemographicObservation, 0, len(cells))
	for k, v := range cells {
		out = append(out, metrics.DemographicObservation{
			Label:    k.label,
			Date:     k.month,
			Sex:      k.sex,
			AgeGroup: k.ageGroup,
			Value:    v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Sex != b.Sex {
			return a.Sex < b.Sex
		}
		return a.AgeGroup < b.AgeGroup
	})
	return out, nil
}

// Sources lists the distinct source identifiers behind the fact snapshot.
func (s *FactStore) Sources(ctx context.Context) ([]string, error) {
	return s.repo.ListSources(ctx)
}

// warnOverlaps logs cells fed by multiple sources.  Overlap is legitimate
// when sources partition the data by metric, so this warns and never fails.
func (s *FactStore) warnOverlaps(ctx context.Context) {
	overlaps, err := s.repo.ActivityOverlaps(ctx)
	if err != nil {
		s.logger.Warn("source overlap check failed", logging.Err(err))
		return
	}
	for _, o := range overlaps {
		s.logger.Warn("activity cell reported by multiple sources",
			logging.String("spatial_key", o.SpatialKey),
			logging.Time("month", o.Month),
			logging.String("sources", strings.Join(o.Sources, ",")))
	}
}

// addOpt sums two optional values: nil+nil stays nil, otherwise nil acts
// as zero.
func addOpt(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	var sum float64
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}
