package insight

import (
	"math"
	"sort"

	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// Interpretation thresholds for the derived correlation and impact figures.
const (
	strongCorrelation   = 0.75
	moderateCorrelation = 0.4

	highImpact     = 0.2
	moderateImpact = 0.05
)

// AdvancedInsight is the batch-computed cross-metric summary for one
// (level, label): the sales/foot-traffic relationship and how extreme each
// metric's typical deviation is.  Corr and Slope are nil when fewer than two
// valid metric pairs exist, or when foot traffic shows no variance.
type AdvancedInsight struct {
	Level common.Level `json:"level"`
	Label string       `json:"label"`

	Corr  *float64 `json:"correlation"`
	Slope *float64 `json:"slope"`

	// FootTrafficImpact and SalesImpact are the mean absolute z-scores of
	// each metric over the group, a unitless deviation magnitude.
	FootTrafficImpact *float64 `json:"foot_traffic_impact"`
	SalesImpact       *float64 `json:"sales_impact"`

	// SampleSize counts the (label, date) rows where both metrics were
	// present.
	SampleSize int `json:"sample_size"`
}

// ComputeAdvanced derives advanced insights from a candidate collection.
// Only rows carrying both sales and foot traffic participate.  Output is
// ordered by (level depth, label) for reproducibility.
func ComputeAdvanced(candidates []Candidate) []AdvancedInsight {
	type groupKey struct {
		level common.Level
		label string
	}
	groups := make(map[groupKey][]Candidate)
	for _, c := range candidates {
		if c.FootTraffic.Value == nil || c.Sales.Value == nil {
			continue
		}
		k := groupKey{level: c.Level, label: c.Label}
		groups[k] = append(groups[k], c)
	}

	out := make([]AdvancedInsight, 0, len(groups))
	for k, rows := range groups {
		ai := AdvancedInsight{Level: k.level, Label: k.label, SampleSize: len(rows)}

		if len(rows) >= 2 {
			foot := make([]float64, len(rows))
			sales := make([]float64, len(rows))
			for i, c := range rows {
				foot[i] = *c.FootTraffic.Value
				sales[i] = *c.Sales.Value
			}
			ai.Corr = pearson(foot, sales)
			ai.Slope = olsSlope(foot, sales)
		}

		ai.FootTrafficImpact = meanAbsZ(rows, common.MetricFootTraffic)
		ai.SalesImpact = meanAbsZ(rows, common.MetricSales)
		out = append(out, ai)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level.Depth() < out[j].Level.Depth()
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// pearson returns the sample correlation of x and y, or nil when either
// series has zero variance.
func pearson(x, y []float64) *float64 {
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return nil
	}
	r := sxy / math.Sqrt(sxx*syy)
	return &r
}

// olsSlope returns the least-squares slope of y regressed on x, or nil when
// x has zero variance.
func olsSlope(x, y []float64) *float64 {
	mx, my := mean(x), mean(y)
	var sxy, sxx float64
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	if sxx == 0 {
		return nil
	}
	s := sxy / sxx
	return &s
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// meanAbsZ averages the absolute z-scores of the metric over rows where the
// z-score is defined; nil when none are.
func meanAbsZ(rows []Candidate, metric common.Metric) *float64 {
	var sum float64
	var n int
	for _, c := range rows {
		z := c.StatsFor(metric).ZScore
		if z != nil {
			sum += math.Abs(*z)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// InterpretCorrelation labels the strength of a correlation coefficient.
// A nil coefficient reports "undefined".
func InterpretCorrelation(r *float64) string {
	if r == nil {
		return "undefined"
	}
	switch abs := math.Abs(*r); {
	case abs >= strongCorrelation:
		return "strong"
	case abs >= moderateCorrelation:
		return "moderate"
	default:
		return "weak"
	}
}

// ClassifyImpact labels an impact score.  A nil score reports "undefined".
func ClassifyImpact(score *float64) string {
	if score == nil {
		return "undefined"
	}
	switch {
	case *score >= highImpact:
		return "high"
	case *score >= moderateImpact:
		return "moderate"
	default:
		return "low"
	}
}
