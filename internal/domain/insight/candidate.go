// Package insight derives the analytical collections served to callers: the
// per-level insight candidates (windowed metrics plus demographic dominance)
// and the batch-refreshed advanced insights (cross-metric correlation and
// impact scores).
package insight

import (
	"context"
	"sort"
	"time"

	"github.com/geoinsight/geoinsight/internal/domain/metrics"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// ActivityGroup is one summed activity fact for a (label, date) at some
// level, as produced by the fact store accessor.  Metric fields are nil when
// no source reported them.
type ActivityGroup struct {
	Label       string
	Date        time.Time
	FootTraffic *float64
	Sales       *float64
	SalesCount  *float64
}

// FactSource is the read-only view over the normalized fact store.  The
// accessor resolves spatial keys and sums across sources before handing
// groups to the aggregator; this package never sees raw keys.
type FactSource interface {
	// ActivityByLevel returns activity facts aggregated at the given level,
	// summed per (label, month).
	ActivityByLevel(ctx context.Context, level common.Level) ([]ActivityGroup, error)

	// DemographicsAtFinest returns demographic facts aggregated at the
	// finest level, summed per (label, month, sex, age_group).
	DemographicsAtFinest(ctx context.Context) ([]metrics.DemographicObservation, error)

	// Sources lists the distinct source identifiers behind the snapshot.
	Sources(ctx context.Context) ([]string, error)
}

// MetricStats carries the windowed-statistics columns of one metric within a
// candidate row.
type MetricStats struct {
	Value      *float64
	Prior      *float64
	MoMPct     *float64
	PriorYear  *float64
	YoYPct     *float64
	SeriesMean *float64
	SeriesStd  *float64
	ZScore     *float64
	CrossMean  *float64
	Rank       *int
}

// Candidate is the unified analytics row for one (level, label, date).
// Demographic fields are populated only at the finest level.  Candidates are
// recomputed from the fact snapshot on demand and never persisted.
type Candidate struct {
	Level common.Level
	Label string
	Date  time.Time

	FootTraffic MetricStats
	Sales       MetricStats
	SalesCount  *float64

	DominantGroup *string
	DominantShare *float64
}

// Aggregator builds the unified candidate collection by running the windowed
// metrics engine independently at each level.  Facts are aggregated at the
// level's own granularity before computation; coarser levels are not rolled
// up from finer ones, because each level's z-scores and ranks belong to its
// own cross-sectional distribution.
type Aggregator struct {
	source FactSource
}

// NewAggregator constructs an Aggregator over the fact source.
func NewAggregator(source FactSource) *Aggregator {
	return &Aggregator{source: source}
}

// Build computes candidates for every level, tagged and concatenated into one
// collection with exactly one row per (level, label, date).  Output ordering
// is (level depth, label, date), so recomputation over an unchanged snapshot
// is byte-identical.
func (a *Aggregator) Build(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	for _, level := range common.Levels() {
		rows, err := a.BuildLevel(ctx, level)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// BuildLevel computes the candidate rows of a single level.
func (a *Aggregator) BuildLevel(ctx context.Context, level common.Level) ([]Candidate, error) {
	groups, err := a.source.ActivityByLevel(ctx, level)
	if err != nil {
		return nil, err
	}

	type rowKey struct {
		label string
		date  time.Time
	}
	byKey := make(map[rowKey]*Candidate, len(groups))
	ensure := func(label string, date time.Time) *Candidate {
		k := rowKey{label: label, date: date}
		c, ok := byKey[k]
		if !ok {
			c = &Candidate{Level: level, Label: label, Date: date}
			byKey[k] = c
		}
		return c
	}

	footObs := make([]metrics.Observation, len(groups))
	salesObs := make([]metrics.Observation, len(groups))
	for i, g := range groups {
		footObs[i] = metrics.Observation{Label: g.Label, Date: g.Date, Value: g.FootTraffic}
		salesObs[i] = metrics.Observation{Label: g.Label, Date: g.Date, Value: g.Sales}
		ensure(g.Label, g.Date).SalesCount = g.SalesCount
	}

	for _, r := range metrics.Compute(footObs) {
		ensure(r.Label, r.Date).FootTraffic = statsFromRow(r)
	}
	for _, r := range metrics.Compute(salesObs) {
		ensure(r.Label, r.Date).Sales = statsFromRow(r)
	}

	if level == common.LevelFinest {
		demo, err := a.source.DemographicsAtFinest(ctx)
		if err != nil {
			return nil, err
		}
		// Union semantics: a cell observed only in demographic facts still
		// yields a candidate row, with all activity stats empty.
		for _, d := range metrics.ComputeDominance(demo) {
			c := ensure(d.Label, d.Date)
			group := d.Group
			c.DominantGroup = &group
			c.DominantShare = d.Share
		}
	}

	out := make([]Candidate, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func statsFromRow(r metrics.Row) MetricStats {
	return MetricStats{
		Value:      r.Value,
		Prior:      r.Prior,
		MoMPct:     r.MoMPct,
		PriorYear:  r.PriorYear,
		YoYPct:     r.YoYPct,
		SeriesMean: r.SeriesMean,
		SeriesStd:  r.SeriesStd,
		ZScore:     r.ZScore,
		CrossMean:  r.CrossMean,
		Rank:       r.Rank,
	}
}

// StatsFor returns the windowed stats of the requested metric.
func (c Candidate) StatsFor(metric common.Metric) MetricStats {
	if metric == common.MetricSales {
		return c.Sales
	}
	return c.FootTraffic
}
