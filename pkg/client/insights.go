package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Metadata describes the data behind a response.
type Metadata struct {
	Sources     []string  `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	PeriodFrom  string    `json:"period_from"`
	PeriodTo    string    `json:"period_to"`
	Level       string    `json:"level"`
}

// RankingsParams filter the rankings endpoint.
type RankingsParams struct {
	Domain string
	Period string
	Level  string
	TopK   int
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

// RankingsResponse is the rankings endpoint payload.
type RankingsResponse struct {
	Domain   string       `json:"domain"`
	Date     string       `json:"date"`
	Rows     []RankingRow `json:"rows"`
	Metadata Metadata     `json:"metadata"`
}

// Rankings returns regions ranked by domain activity.
func (c *Client) Rankings(ctx context.Context, params RankingsParams) (*RankingsResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "domain", params.Domain)
	setNonEmpty(q, "period", params.Period)
	setNonEmpty(q, "level", params.Level)
	if params.TopK != 0 {
		q.Set("top_k", strconv.Itoa(params.TopK))
	}
	var resp RankingsResponse
	if err := c.get(ctx, "/api/v1/insights/rankings", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AnomalyParams filter the anomalies endpoint.
type AnomalyParams struct {
	Domain     string
	Period     string
	Level      string
	ZThreshold float64
}

// AnomalyRow is one region's deviation at the resolved date.
type AnomalyRow struct {
	Label     string   `json:"label"`
	Value     *float64 `json:"value"`
	ZScore    *float64 `json:"z_score"`
	MoMPct    *float64 `json:"mom_pct"`
	IsAnomaly bool     `json:"is_anomaly"`
	Signal    string   `json:"signal,omitempty"`
}

// AnomalyResponse is the anomalies endpoint payload.
type AnomalyResponse struct {
	Domain     string       `json:"domain"`
	Date       string       `json:"date"`
	ZThreshold float64      `json:"z_threshold"`
	Rows       []AnomalyRow `json:"rows"`
	Metadata   Metadata     `json:"metadata"`
}

// Anomalies returns regions whose activity deviates from their own history.
func (c *Client) Anomalies(ctx context.Context, params AnomalyParams) (*AnomalyResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "domain", params.Domain)
	setNonEmpty(q, "period", params.Period)
	setNonEmpty(q, "level", params.Level)
	if params.ZThreshold != 0 {
		q.Set("z_threshold", strconv.FormatFloat(params.ZThreshold, 'f', -1, 64))
	}
	var resp AnomalyResponse
	if err := c.get(ctx, "/api/v1/insights/anomalies", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompareParams filter the compare endpoint.  Period is a single period
// string; PeriodFrom/PeriodTo express an explicit range instead.  An empty
// Domains list compares every domain.
type CompareParams struct {
	Region     string
	Period     string
	PeriodFrom string
	PeriodTo   string
	Domains    []string
	Level      string
}

// CompareRow is one month of the foot-traffic versus sales comparison.
type CompareRow struct {
	Date           string   `json:"date"`
	FootTraffic    *float64 `json:"foot_traffic"`
	Sales          *float64 `json:"sales"`
	FootTrafficMoM *float64 `json:"foot_traffic_mom_pct"`
	SalesMoM       *float64 `json:"sales_mom_pct"`
}

// CompareResponse is the compare endpoint payload.
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

// Compare returns the month-by-month foot-traffic and sales comparison for
// one region.
func (c *Client) Compare(ctx context.Context, params CompareParams) (*CompareResponse, error) {
	q := url.Values{}
	setNonEmpty(q, "region", params.Region)
	setNonEmpty(q, "period", params.Period)
	setNonEmpty(q, "period_from", params.PeriodFrom)
	setNonEmpty(q, "period_to", params.PeriodTo)
	setNonEmpty(q, "domains", strings.Join(params.Domains, ","))
	setNonEmpty(q, "level", params.Level)
	var resp CompareResponse
	if err := c.get(ctx, "/api/v1/insights/compare", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AskResponse is the assistant endpoint payload.  Result shape depends on
// the operation the text resolved to.
type AskResponse struct {
	Outcome string          `json:"outcome"`
	Query   json.RawMessage `json:"query"`
	Result  json.RawMessage `json:"result"`
}

// Ask sends free text to the assistant endpoint.
func (c *Client) Ask(ctx context.Context, text string) (*AskResponse, error) {
	var resp AskResponse
	err := c.post(ctx, "/api/v1/assistant/query", map[string]string{"text": text}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh triggers a synchronous insight rebuild.
func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, "/api/v1/admin/refresh", nil, nil)
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
