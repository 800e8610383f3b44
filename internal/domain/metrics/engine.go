// Package metrics implements the windowed statistics pipeline over normalized
// facts: per-series lag deltas, population statistics, z-scores, cross-
// sectional means, and dense ranks, plus the demographic dominance
// calculator.  Everything here is a pure function of its input snapshot; the
// same facts always produce byte-identical output.
package metrics

import (
	"math"
	"sort"
	"time"
)

// yoyLag is the fixed row offset used for the prior-year comparison.  Facts
// are monthly, so twelve periods back is the same month one year earlier.
const yoyLag = 12

// Observation is one summed fact for a (label, date) group of a single
// metric.  Value is nil when the group was observed without this metric.
type Observation struct {
	Label string
	Date  time.Time
	Value *float64
}

// Row is the full windowed-statistics output for one (label, date).
// Optional fields are nil when undefined, never zero or NaN.
type Row struct {
	Label string
	Date  time.Time

	Value     *float64
	Prior     *float64 // value at the immediately preceding observed period
	MoMPct    *float64 // (value-prior)/prior; nil when prior is nil or zero
	PriorYear *float64 // value twelve periods back
	YoYPct    *float64

	SeriesMean *float64 // mean over the label's observed history
	SeriesStd  *float64 // sample std dev; nil when fewer than 2 observations
	ZScore     *float64 // (value-mean)/std; nil when std is nil or zero

	CrossMean *float64 // mean across all labels sharing the date
	Rank      *int     // dense descending rank at the date; nil when value is nil
}

// Compute runs the windowed pipeline over one metric's observations.
// Output is ordered by (label, date) ascending so repeated runs over an
// unchanged snapshot are identical.
func Compute(observations []Observation) []Row {
	if len(observations) == 0 {
		return nil
	}

	series := groupByLabel(observations)

	labels := make([]string, 0, len(series))
	for label := range series {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var rows []Row
	for _, label := range labels {
		rows = append(rows, computeSeries(label, series[label])...)
	}

	applyCrossSectional(rows)
	return rows
}

func groupByLabel(observations []Observation) map[string][]Observation {
	series := make(map[string][]Observation)
	for _, o := range observations {
		series[o.Label] = append(series[o.Label], o)
	}
	for label := range series {
		s := series[label]
		sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		series[label] = s
	}
	return series
}

// computeSeries produces the per-series columns for one label's
// date-ordered observations: lag values, percent deltas, mean, sample std,
// and z-score, in a single pass with lag buffers.
func computeSeries(label string, obs []Observation) []Row {
	mean, std := seriesStats(obs)

	rows := make([]Row, len(obs))
	for i, o := range obs {
		r := Row{
			Label:      label,
			Date:       o.Date,
			Value:      copyFloat(o.Value),
			SeriesMean: copyFloat(mean),
			SeriesStd:  copyFloat(std),
		}
		if i >= 1 {
			r.Prior = copyFloat(obs[i-1].Value)
			r.MoMPct = percentDelta(o.Value, obs[i-1].Value)
		}
		if i >= yoyLag {
			r.PriorYear = copyFloat(obs[i-yoyLag].Value)
			r.YoYPct = percentDelta(o.Value, obs[i-yoyLag].Value)
		}
		if o.Value != nil && std != nil && *std != 0 {
			z := (*o.Value - *mean) / *std
			r.ZScore = &z
		}
		rows[i] = r
	}
	return rows
}

// seriesStats returns the mean and sample standard deviation over the present
// values of a series.  Std is nil with fewer than two observations; mean is
// nil with none.
func seriesStats(obs []Observation) (mean, std *float64) {
	var sum float64
	var n int
	for _, o := range obs {
		if o.Value != nil {
			sum += *o.Value
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	m := sum / float64(n)
	mean = &m
	if n < 2 {
		return mean, nil
	}
	var ss float64
	for _, o := range obs {
		if o.Value != nil {
			d := *o.Value - m
			ss += d * d
		}
	}
	s := math.Sqrt(ss / float64(n-1))
	std = &s
	return mean, std
}

// percentDelta returns (current-prior)/prior, nil when either side is nil or
// prior is zero.
func percentDelta(current, prior *float64) *float64 {
	if current == nil || prior == nil || *prior == 0 {
		return nil
	}
	d := (*current - *prior) / *prior
	return &d
}

// applyCrossSectional fills CrossMean and Rank in place.  Rank is a dense
// descending rank over the present values at each date; rows with a nil
// value keep a nil rank and never displace present-valued rows.
func applyCrossSectional(rows []Row) {
	byDate := make(map[time.Time][]int)
	for i := range rows {
		byDate[rows[i].Date] = append(byDate[rows[i].Date], i)
	}

	for _, idxs := range byDate {
		var sum float64
		var n int
		var present []float64
		for _, i := range idxs {
			if rows[i].Value != nil {
				sum += *rows[i].Value
				n++
				present = append(present, *rows[i].Value)
			}
		}
		if n == 0 {
			continue
		}
		cm := sum / float64(n)
		for _, i := range idxs {
			v := cm
			rows[i].CrossMean = &v
		}

		// Dense rank: distinct values descending, equal values share a rank.
		sort.Sort(sort.Reverse(sort.Float64Slice(present)))
		rankOf := make(map[float64]int, len(present))
		rank := 0
		for _, v := range present {
			if _, seen := rankOf[v]; !seen {
				rank++
				rankOf[v] = rank
			}
		}
		for _, i := range idxs {
			if rows[i].Value != nil {
				r := rankOf[*rows[i].Value]
				rows[i].Rank = &r
			}
		}
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
