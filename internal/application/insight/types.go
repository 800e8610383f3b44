// Package insight exposes the four analytics operations over the candidate
// collection: domain comparison, rankings, anomaly detection and the
// batch-refreshed advanced insights.  This layer owns request validation,
// period resolution, result caching and response shaping; the math lives in
// the domain packages.
package insight

import (
	"time"

	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// Metadata describes the provenance of one response.
type Metadata struct {
	Sources     []string     `json:"source"`
	GeneratedAt time.Time    `json:"generated_at"`
	PeriodFrom  string       `json:"period_from"`
	PeriodTo    string       `json:"period_to"`
	Level       common.Level `json:"level"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Compare
// ─────────────────────────────────────────────────────────────────────────────

// CompareRequest asks for the month-by-month comparison of one or both
// domains in one region.  The period is given either as a single Period
// string or as an explicit PeriodFrom/PeriodTo range, each bound optional.
// An empty Domains list compares every domain.
type CompareRequest struct {
	Region     string   `json:"region"`
	Period     string   `json:"period,omitempty"`
	PeriodFrom string   `json:"period_from,omitempty"`
	PeriodTo   string   `json:"period_to,omitempty"`
	Domains    []string `json:"domains,omitempty"`
	Level      string   `json:"level,omitempty"`
}

// CompareRow is one month of the comparison.
type CompareRow struct {
	Date              string   `json:"date"`
	FootTraffic       *float64 `json:"foot_traffic"`
	Sales             *float64 `json:"sales"`
	FootTrafficMoMPct *float64 `json:"foot_traffic_mom_pct"`
	SalesMoMPct       *float64 `json:"sales_mom_pct"`
}

// CompareResponse is the domain comparison for one region.  Rows carry only
// the metrics of the requested domains; Correlation is present only when both
// domains were compared.
type CompareResponse struct {
	Region           string       `json:"region"`
	Domains          []string     `json:"domains"`
	Rows             []CompareRow `json:"rows"`
	Correlation      *float64     `json:"correlation"`
	Interpretation   string       `json:"interpretation,omitempty"`
	FootTrafficTrend string       `json:"foot_traffic_trend,omitempty"`
	SalesTrend       string       `json:"sales_trend,omitempty"`
	Metadata         Metadata     `json:"metadata"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Rankings
// ─────────────────────────────────────────────────────────────────────────────

// RankingsRequest asks for the top regions of one domain at one date.  A bare
// year period resolves to the latest observed month of that year; an absent
// period to the latest observed month overall.
type RankingsRequest struct {
	Domain string `json:"domain"`
	Period string `json:"period,omitempty"`
	Level  string `json:"level,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// RankingRow is one ranked region.
type RankingRow struct {
	Rank   int      `json:"rank"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
	MoMPct *float64 `json:"mom_pct"`
	YoYPct *float64 `json:"yoy_pct"`
	Trend  string   `json:"trend"`
	Signal string   `json:"signal,omitempty"`
}

// RankingsResponse is the ranking at the resolved date.
type RankingsResponse struct {
	Domain   string       `json:"domain"`
	Date     string       `json:"date"`
	Rows     []RankingRow `json:"rows"`
	Metadata Metadata     `json:"metadata"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Anomaly
// ─────────────────────────────────────────────────────────────────────────────

// AnomalyRequest asks which regions deviate from their own history at one
// date.  ZThreshold zero takes the default sensitivity.
type AnomalyRequest struct {
	Domain     string  `json:"domain"`
	Period     string  `json:"period,omitempty"`
	Level      string  `json:"level,omitempty"`
	ZThreshold float64 `json:"z_threshold,omitempty"`
}

// AnomalyRow is one region's deviation at the resolved date.  ZScore is nil
// when the region's history is too short or flat to standardize.
type AnomalyRow struct {
	Label     string   `json:"label"`
	Value     *float64 `json:"value"`
	ZScore    *float64 `json:"z_score"`
	MoMPct    *float64 `json:"mom_pct"`
	IsAnomaly bool     `json:"is_anomaly"`
	Signal    string   `json:"signal,omitempty"`
}

// AnomalyResponse lists every region at the date, most extreme first.
type AnomalyResponse struct {
	Domain     string       `json:"domain"`
	Date       string       `json:"date"`
	ZThreshold float64      `json:"z_threshold"`
	Rows       []AnomalyRow `json:"rows"`
	Metadata   Metadata     `json:"metadata"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Advanced
// ─────────────────────────────────────────────────────────────────────────────

// AdvancedRequest filters the advanced-insight snapshot.  All fields are
// optional; empty means all.  Period and Domains do not narrow the snapshot,
// whose window is fixed at refresh time, but they are validated and echoed so
// callers can tell which request the payload answers.
type AdvancedRequest struct {
	Region  string   `json:"region,omitempty"`
	Period  string   `json:"period,omitempty"`
	Domains []string `json:"domains,omitempty"`
	Level   string   `json:"level,omitempty"`
}

// AdvancedView is one advanced insight with its human-readable labels.
type AdvancedView struct {
	Level                     common.Level `json:"level"`
	Label                     string       `json:"label"`
	Correlation               *float64     `json:"correlation"`
	CorrelationInterpretation string       `json:"correlation_interpretation"`
	Slope                     *float64     `json:"slope"`
	FootTrafficImpact         *float64     `json:"foot_traffic_impact"`
	FootTrafficImpactLevel    string       `json:"foot_traffic_impact_level"`
	SalesImpact               *float64     `json:"sales_impact"`
	SalesImpactLevel          string       `json:"sales_impact_level"`
	SampleSize                int          `json:"sample_size"`
}

// AdvancedResponse is the filtered snapshot plus its refresh timestamp.
// Period and Domains echo the validated request.
type AdvancedResponse struct {
	Period      string         `json:"period,omitempty"`
	Domains     []string       `json:"domains"`
	Insights    []AdvancedView `json:"insights"`
	RefreshedAt time.Time      `json:"refreshed_at"`
	Metadata    Metadata       `json:"metadata"`
}
