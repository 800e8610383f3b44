package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/domain/metrics"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

func fp(v float64) *float64 { return &v }

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// stubSource serves pre-aggregated facts per level from memory.
type stubSource struct {
	activity map[common.Level][]ActivityGroup
	demo     []metrics.DemographicObservation
	sources  []string
	err      error
}

func (s *stubSource) ActivityByLevel(_ context.Context, level common.Level) ([]ActivityGroup, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.activity[level], nil
}

func (s *stubSource) DemographicsAtFinest(_ context.Context) ([]metrics.DemographicObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.demo, nil
}

func (s *stubSource) Sources(_ context.Context) ([]string, error) {
	return s.sources, nil
}

func testSource() *stubSource {
	return &stubSource{
		activity: map[common.Level][]ActivityGroup{
			common.LevelFinest: {
				{Label: "Yeoksam-dong", Date: month(2024, 1), FootTraffic: fp(100), Sales: fp(10)},
				{Label: "Yeoksam-dong", Date: month(2024, 2), FootTraffic: fp(120), Sales: fp(12)},
				{Label: "Seogyo-dong", Date: month(2024, 1), FootTraffic: fp(80), Sales: fp(9)},
			},
			common.LevelIntermediate: {
				{Label: "Gangnam-gu", Date: month(2024, 1), FootTraffic: fp(100), Sales: fp(10)},
				{Label: "Mapo-gu", Date: month(2024, 1), FootTraffic: fp(80), Sales: fp(9)},
			},
			common.LevelCoarsest: {
				{Label: "Seoul", Date: month(2024, 1), FootTraffic: fp(180), Sales: fp(19)},
			},
		},
		demo: []metrics.DemographicObservation{
			{Label: "Yeoksam-dong", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 60},
			{Label: "Yeoksam-dong", Date: month(2024, 1), Sex: "M", AgeGroup: "30s", Value: 40},
		},
		sources: []string{"src-a", "src-b"},
	}
}

func candidateAt(t *testing.T, cands []Candidate, level common.Level, label string, date time.Time) Candidate {
	t.Helper()
	for _, c := range cands {
		if c.Level == level && c.Label == label && c.Date.Equal(date) {
			return c
		}
	}
	t.Fatalf("no candidate for %s/%s at %s", level, label, date)
	return Candidate{}
}

func TestBuildProducesOneRowPerLevelLabelDate(t *testing.T) {
	agg := NewAggregator(testSource())
	cands, err := agg.Build(context.Background())
	require.NoError(t, err)

	// 3 finest rows + 2 intermediate + 1 coarsest.
	assert.Len(t, cands, 6)

	seen := make(map[string]bool)
	for _, c := range cands {
		k := string(c.Level) + "|" + c.Label + "|" + c.Date.Format("2006-01")
		assert.False(t, seen[k], "duplicate row %s", k)
		seen[k] = true
	}
}

func TestBuildComputesWindowedStatsPerLevel(t *testing.T) {
	agg := NewAggregator(testSource())
	cands, err := agg.Build(context.Background())
	require.NoError(t, err)

	feb := candidateAt(t, cands, common.LevelFinest, "Yeoksam-dong", month(2024, 2))
	require.NotNil(t, feb.FootTraffic.Prior)
	assert.Equal(t, 100.0, *feb.FootTraffic.Prior)
	require.NotNil(t, feb.FootTraffic.MoMPct)
	assert.InDelta(t, 0.2, *feb.FootTraffic.MoMPct, 1e-9)

	// The coarsest level has its own single-unit distribution, not a
	// roll-up of finest-level stats.
	seoul := candidateAt(t, cands, common.LevelCoarsest, "Seoul", month(2024, 1))
	require.NotNil(t, seoul.FootTraffic.Rank)
	assert.Equal(t, 1, *seoul.FootTraffic.Rank)
}

func TestBuildDemographicsOnlyAtFinest(t *testing.T) {
	agg := NewAggregator(testSource())
	cands, err := agg.Build(context.Background())
	require.NoError(t, err)

	yeoksam := candidateAt(t, cands, common.LevelFinest, "Yeoksam-dong", month(2024, 1))
	require.NotNil(t, yeoksam.DominantGroup)
	assert.Equal(t, "F:20s", *yeoksam.DominantGroup)
	require.NotNil(t, yeoksam.DominantShare)
	assert.InDelta(t, 0.6, *yeoksam.DominantShare, 1e-9)

	for _, c := range cands {
		if c.Level != common.LevelFinest {
			assert.Nil(t, c.DominantGroup, "level %s label %s", c.Level, c.Label)
			assert.Nil(t, c.DominantShare, "level %s label %s", c.Level, c.Label)
		}
	}
}

func TestBuildIdempotent(t *testing.T) {
	agg := NewAggregator(testSource())

	first, err := agg.Build(context.Background())
	require.NoError(t, err)
	second, err := agg.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildDemographicOnlyCellYieldsRow(t *testing.T) {
	src := testSource()
	src.demo = append(src.demo, metrics.DemographicObservation{
		Label: "Ghost-dong", Date: month(2024, 1), Sex: "F", AgeGroup: "50s", Value: 5,
	})
	agg := NewAggregator(src)
	cands, err := agg.Build(context.Background())
	require.NoError(t, err)

	ghost := candidateAt(t, cands, common.LevelFinest, "Ghost-dong", month(2024, 1))
	assert.Nil(t, ghost.FootTraffic.Value)
	require.NotNil(t, ghost.DominantGroup)
	assert.Equal(t, "F:50s", *ghost.DominantGroup)
}

func TestBuildPropagatesSourceError(t *testing.T) {
	src := testSource()
	src.err = assert.AnError
	agg := NewAggregator(src)

	_, err := agg.Build(context.Background())
	assert.Error(t, err)
}
