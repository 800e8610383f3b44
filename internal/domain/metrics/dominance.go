package metrics

import (
	"sort"
	"time"
)

// DemographicObservation is one demographic fact after source-level summing:
// the measured value for a (label, date, sex, age_group) cell.
type DemographicObservation struct {
	Label    string
	Date     time.Time
	Sex      string
	AgeGroup string
	Value    float64
}

// Dominance names the largest demographic segment of a (label, date) and its
// share of the total.  Share is nil when the total is zero.
type Dominance struct {
	Label string
	Date  time.Time
	Group string // "sex:age_group"
	Share *float64
}

// GroupKey renders the canonical "sex:age_group" form used for dominance
// comparison and tie-breaking.
func GroupKey(sex, ageGroup string) string {
	return sex + ":" + ageGroup
}

// ComputeDominance selects, per (label, date), the demographic group with the
// largest summed value.  Ties break lexicographically on the group key so the
// result is stable across runs.  Output is ordered by (label, date).
func ComputeDominance(observations []DemographicObservation) []Dominance {
	type cellKey struct {
		label string
		date  time.Time
	}
	cells := make(map[cellKey]map[string]float64)
	for _, o := range observations {
		ck := cellKey{label: o.Label, date: o.Date}
		if cells[ck] == nil {
			cells[ck] = make(map[string]float64)
		}
		cells[ck][GroupKey(o.Sex, o.AgeGroup)] += o.Value
	}

	out := make([]Dominance, 0, len(cells))
	for ck, groups := range cells {
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var total float64
		best := keys[0]
		for _, k := range keys {
			total += groups[k]
			// Strictly greater keeps the lexicographically first key on ties.
			if groups[k] > groups[best] {
				best = k
			}
		}

		d := Dominance{Label: ck.label, Date: ck.date, Group: best}
		if total != 0 {
			share := groups[best] / total
			d.Share = &share
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
