package insight

import (
	"time"

	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/pkg/errors"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

const (
	// DefaultTopK applies when a ranking request leaves top_k unset.
	DefaultTopK = 10
	// MaxTopK caps ranking size; larger requests are clamped, not rejected.
	MaxTopK = 100
	// DefaultZThreshold applies when an anomaly request leaves the
	// sensitivity unset.
	DefaultZThreshold = 2.0
)

// Month-over-month magnitudes classifying the change signal.
const (
	strongChange   = 0.2
	moderateChange = 0.05
)

// normalizeTopK applies the default and the upper clamp.  Zero means unset;
// an explicitly negative value is a caller error.
func normalizeTopK(topK int) (int, error) {
	if topK < 0 {
		return 0, errors.New(errors.ErrCodeInvalidTopK, "top_k must be positive")
	}
	if topK == 0 {
		return DefaultTopK, nil
	}
	if topK > MaxTopK {
		return MaxTopK, nil
	}
	return topK, nil
}

// normalizeZThreshold applies the default.  Zero means unset; negative is a
// caller error.
func normalizeZThreshold(z float64) (float64, error) {
	if z < 0 {
		return 0, errors.New(errors.ErrCodeInvalidThreshold, "z_threshold must be greater than 0")
	}
	if z == 0 {
		return DefaultZThreshold, nil
	}
	return z, nil
}

// parsePeriod wraps common.ParsePeriod allowing the empty period, which means
// "whatever the data covers".
func parsePeriod(raw string) (*common.Period, error) {
	if raw == "" {
		return nil, nil
	}
	p, err := common.ParsePeriod(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// periodRangeMax is the open upper bound of a from-only range.
var periodRangeMax = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// parsePeriodRange builds the inclusive window from either a single period
// string or an explicit from/to pair.  Each bound is itself a period, so
// "2024-03".."2024-08" covers March through August.  A missing bound leaves
// that side open.
func parsePeriodRange(single, from, to string) (*common.Period, error) {
	if single != "" && (from != "" || to != "") {
		return nil, errors.InvalidParam("period cannot be combined with period_from/period_to")
	}
	if single != "" {
		return parsePeriod(single)
	}
	if from == "" && to == "" {
		return nil, nil
	}
	p := common.Period{Kind: common.PeriodRange, End: periodRangeMax}
	if from != "" {
		pf, err := common.ParsePeriod(from)
		if err != nil {
			return nil, err
		}
		p.Start = pf.Start
	}
	if to != "" {
		pt, err := common.ParsePeriod(to)
		if err != nil {
			return nil, err
		}
		p.End = pt.End
	}
	if p.End.Before(p.Start) {
		return nil, errors.InvalidParam("period_from is after period_to")
	}
	return &p, nil
}

// parseDomains validates a requested domain list.  Empty means every domain;
// duplicates collapse; any unknown entry is a caller error.
func parseDomains(raw []string) ([]common.Domain, error) {
	if len(raw) == 0 {
		return []common.Domain{common.DomainPopulation, common.DomainSales}, nil
	}
	seen := make(map[common.Domain]bool, len(raw))
	var domains []common.Domain
	for _, s := range raw {
		d, err := common.ParseDomain(s)
		if err != nil {
			return nil, err
		}
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains, nil
}

func domainStrings(domains []common.Domain) []string {
	out := make([]string, len(domains))
	for i, d := range domains {
		out[i] = string(d)
	}
	return out
}

func hasDomain(domains []common.Domain, d common.Domain) bool {
	for _, v := range domains {
		if v == d {
			return true
		}
	}
	return false
}

// resolveTargetDate picks the single month a ranking or anomaly request is
// about.  An exact month (or day) period names it directly; a year period or
// no period resolves to the latest month the candidates actually cover, so a
// bare "2024" asks about the most recent data of 2024 rather than January.
func resolveTargetDate(period *common.Period, candidates []domaininsight.Candidate) (time.Time, bool) {
	if period != nil && period.Kind != common.PeriodYear {
		return common.Month(period.Start), true
	}
	var latest time.Time
	found := false
	for _, c := range candidates {
		if period != nil && !period.Contains(c.Date) {
			continue
		}
		if !found || c.Date.After(latest) {
			latest = c.Date
			found = true
		}
	}
	return latest, found
}

// trendLabel renders the direction of a month-over-month change.
func trendLabel(momPct *float64) string {
	switch {
	case momPct == nil:
		return "flat"
	case *momPct > 0:
		return "up"
	case *momPct < 0:
		return "down"
	default:
		return "flat"
	}
}

// signalLabel classifies the magnitude of a month-over-month change.
func signalLabel(momPct *float64) string {
	if momPct == nil {
		return ""
	}
	abs := *momPct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= strongChange:
		return "strong_change"
	case abs >= moderateChange:
		return "moderate_change"
	default:
		return "minor_change"
	}
}

func formatMonth(t time.Time) string {
	return t.Format("2006-01")
}
