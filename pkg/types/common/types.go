// Package common holds the shared value types of the GeoInsight platform:
// spatial levels, analytical domains and metrics, reporting periods, and the
// optional-number helpers used across payloads.
package common

import (
	"time"

	"github.com/google/uuid"

	"github.com/geoinsight/geoinsight/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Spatial levels
// ─────────────────────────────────────────────────────────────────────────────

// Level identifies a tier of the three-level spatial hierarchy.  Wire values
// follow the Korean administrative naming of the source data: "emd" is the
// finest tier (neighborhood), "sig" the intermediate (district), "sido" the
// coarsest (province).
type Level string

const (
	LevelFinest       Level = "emd"
	LevelIntermediate Level = "sig"
	LevelCoarsest     Level = "sido"
)

// DefaultLevel is applied when a request omits the level parameter.
const DefaultLevel = LevelIntermediate

// Levels lists all tiers from finest to coarsest, in stable iteration order.
func Levels() []Level {
	return []Level{LevelFinest, LevelIntermediate, LevelCoarsest}
}

// ParseLevel validates a level string.  The empty string resolves to
// DefaultLevel; anything outside {emd, sig, sido} is rejected.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelFinest, LevelIntermediate, LevelCoarsest:
		return Level(s), nil
	case "":
		return DefaultLevel, nil
	default:
		return "", errors.New(errors.ErrCodeUnknownLevel, "unknown spatial level").
			WithDetail(s)
	}
}

// Valid reports whether l is one of the three hierarchy tiers.
func (l Level) Valid() bool {
	return l == LevelFinest || l == LevelIntermediate || l == LevelCoarsest
}

// Depth returns the tier position, 0 for the finest level and 2 for the
// coarsest.  Invalid levels return -1.
func (l Level) Depth() int {
	switch l {
	case LevelFinest:
		return 0
	case LevelIntermediate:
		return 1
	case LevelCoarsest:
		return 2
	default:
		return -1
	}
}

func (l Level) String() string { return string(l) }

// ─────────────────────────────────────────────────────────────────────────────
// Domains and metrics
// ─────────────────────────────────────────────────────────────────────────────

// Domain is the caller-facing name of an analytical subject area.
type Domain string

const (
	DomainPopulation Domain = "population"
	DomainSales      Domain = "sales"
)

// Metric is the internal measurement a Domain maps onto.
type Metric string

const (
	MetricFootTraffic Metric = "foot_traffic"
	MetricSales       Metric = "sales"
)

// domainMetric maps each caller-facing domain to its backing metric.
var domainMetric = map[Domain]Metric{
	DomainPopulation: MetricFootTraffic,
	DomainSales:      MetricSales,
}

// ParseDomain validates a domain string and returns its typed form.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if _, ok := domainMetric[d]; !ok {
		return "", errors.New(errors.ErrCodeUnknownDomain, "unknown domain").
			WithDetail(s)
	}
	return d, nil
}

// Metric returns the measurement backing the domain.  Unknown domains map to
// the empty Metric; callers are expected to have gone through ParseDomain.
func (d Domain) Metric() Metric {
	return domainMetric[d]
}

// ParseMetric validates a metric string.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricFootTraffic, MetricSales:
		return Metric(s), nil
	default:
		return "", errors.New(errors.ErrCodeUnknownMetric, "unknown metric").
			WithDetail(s)
	}
}

func (d Domain) String() string { return string(d) }
func (m Metric) String() string { return string(m) }

// ─────────────────────────────────────────────────────────────────────────────
// Periods
// ─────────────────────────────────────────────────────────────────────────────

// PeriodKind records the precision a period string was written at, which some
// operations use to widen or resolve the period (a bare year in a ranking
// request resolves to the latest observed date of that year).
type PeriodKind int

const (
	PeriodYear PeriodKind = iota
	PeriodMonth
	PeriodDay
	// PeriodRange is an explicit from..to span built from two period strings
	// rather than parsed from a single one.
	PeriodRange
)

// Period is a parsed reporting period.  Start and End are inclusive calendar
// bounds in UTC.
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// ParsePeriod parses "YYYY", "YYYY-MM", or "YYYY-MM-DD".
//
//	YYYY       → January 1 through December 31 of that year
//	YYYY-MM    → first through last day of that month
//	YYYY-MM-DD → that single day
func ParsePeriod(s string) (Period, error) {
	switch len(s) {
	case 4:
		t, err := time.ParseInLocation("2006", s, time.UTC)
		if err != nil {
			return Period{}, invalidPeriod(s)
		}
		return Period{
			Kind:  PeriodYear,
			Start: t,
			End:   time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	case 7:
		t, err := time.ParseInLocation("2006-01", s, time.UTC)
		if err != nil {
			return Period{}, invalidPeriod(s)
		}
		return Period{
			Kind:  PeriodMonth,
			Start: t,
			End:   t.AddDate(0, 1, -1),
		}, nil
	case 10:
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return Period{}, invalidPeriod(s)
		}
		return Period{Kind: PeriodDay, Start: t, End: t}, nil
	default:
		return Period{}, invalidPeriod(s)
	}
}

func invalidPeriod(s string) error {
	return errors.New(errors.ErrCodeInvalidPeriod,
		"period must be YYYY, YYYY-MM, or YYYY-MM-DD").WithDetail(s)
}

// Month returns the month-truncated form of t in UTC, the temporal resolution
// all facts are stored at.
func Month(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls within the period's inclusive bounds.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// ─────────────────────────────────────────────────────────────────────────────
// Optional numbers and identifiers
// ─────────────────────────────────────────────────────────────────────────────

// Float64Ptr returns a pointer to v.  Optional measurements are carried as
// *float64 throughout the platform; nil means absent, never NaN.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Float64Value dereferences p, returning def when p is nil.
func Float64Value(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// NewRequestID returns a fresh UUID v4 string used to correlate a request
// across log entries and lock ownership values.
func NewRequestID() string { return uuid.NewString() }
