package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/geoinsight/geoinsight/internal/config"
	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/redis"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// DefaultDomain applies when a structured query names no domain, which the
// fallback query never does.
const DefaultDomain = common.DomainPopulation

// Service executes the analytics operations over the fact snapshot.  Results
// are cached in redis when a cache is supplied; validation always runs before
// the cache so invalid requests are never served from it.
type Service struct {
	agg      *domaininsight.Aggregator
	source   domaininsight.FactSource
	store    *domaininsight.Store
	cache    redis.Cache
	cacheTTL time.Duration
	logger   logging.Logger
	now      func() time.Time
}

// NewService builds the operation layer.  cache may be nil, which disables
// result caching.
func NewService(source domaininsight.FactSource, store *domaininsight.Store,
	cache redis.Cache, cfg config.InsightConfig, logger logging.Logger) *Service {
	return &Service{
		agg:      domaininsight.NewAggregator(source),
		source:   source,
		store:    store,
		cache:    cache,
		cacheTTL: cfg.ResultCacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CompareDomains
// ─────────────────────────────────────────────────────────────────────────────

// CompareDomains returns the month-by-month values of the requested domains
// in one region over the requested period, with their correlation when both
// domains are compared.
func (s *Service) CompareDomains(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	if strings.TrimSpace(req.Region) == "" {
		return nil, errors.InvalidParam("region is required")
	}
	level, err := common.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	domains, err := parseDomains(req.Domains)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriodRange(req.Period, req.PeriodFrom, req.PeriodTo)
	if err != nil {
		return nil, err
	}

	key := cacheKey(append([]string{"compare", string(level), req.Region,
		req.Period, req.PeriodFrom, req.PeriodTo}, domainStrings(domains)...)...)
	var resp CompareResponse
	if err := s.cached(ctx, key, &resp, func(ctx context.Context) (interface{}, error) {
		return s.compareDomains(ctx, req.Region, level, period, domains)
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) compareDomains(ctx context.Context, region string,
	level common.Level, period *common.Period, domains []common.Domain) (*CompareResponse, error) {

	candidates, err := s.agg.BuildLevel(ctx, level)
	if err != nil {
		return nil, err
	}

	var matched []domaininsight.Candidate
	for _, c := range candidates {
		if !strings.EqualFold(c.Label, region) {
			continue
		}
		if period != nil && !period.Contains(c.Date) {
			continue
		}
		matched = append(matched, c)
	}
	if len(matched) == 0 {
		return nil, errors.NotFound("no observations for region").WithDetail(region)
	}

	wantFoot := hasDomain(domains, common.DomainPopulation)
	wantSales := hasDomain(domains, common.DomainSales)

	rows := make([]CompareRow, len(matched))
	for i, c := range matched {
		row := CompareRow{Date: formatMonth(c.Date)}
		if wantFoot {
			row.FootTraffic = c.FootTraffic.Value
			row.FootTrafficMoMPct = c.FootTraffic.MoMPct
		}
		if wantSales {
			row.Sales = c.Sales.Value
			row.SalesMoMPct = c.Sales.MoMPct
		}
		rows[i] = row
	}

	resp := &CompareResponse{
		Region:  matched[0].Label,
		Domains: domainStrings(domains),
		Rows:    rows,
	}
	last := matched[len(matched)-1]
	if wantFoot {
		resp.FootTrafficTrend = trendLabel(last.FootTraffic.MoMPct)
	}
	if wantSales {
		resp.SalesTrend = trendLabel(last.Sales.MoMPct)
	}
	// Cross-metric correlation needs both series.
	if wantFoot && wantSales {
		for _, ai := range domaininsight.ComputeAdvanced(matched) {
			resp.Correlation = ai.Corr
			break
		}
		resp.Interpretation = domaininsight.InterpretCorrelation(resp.Correlation)
	}
	resp.Metadata = s.metadata(ctx, level, matched[0].Date, last.Date)
	return resp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetRankings
// ─────────────────────────────────────────────────────────────────────────────

// GetRankings returns the top regions of one domain at the resolved date,
// ordered by dense rank.
func (s *Service) GetRankings(ctx context.Context, req RankingsRequest) (*RankingsResponse, error) {
	domain, err := parseDomainOrDefault(req.Domain)
	if err != nil {
		return nil, err
	}
	level, err := common.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	topK, err := normalizeTopK(req.TopK)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	key := cacheKey("rankings", string(domain), string(level), req.Period, fmt.Sprintf("%d", topK))
	var resp RankingsResponse
	if err := s.cached(ctx, key, &resp, func(ctx context.Context) (interface{}, error) {
		return s.rankings(ctx, domain, level, period, topK)
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) rankings(ctx context.Context, domain common.Domain,
	level common.Level, period *common.Period, topK int) (*RankingsResponse, error) {

	candidates, err := s.agg.BuildLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	date, ok := resolveTargetDate(period, candidates)
	if !ok {
		return nil, errors.NotFound("no observations in period")
	}

	metric := domain.Metric()
	var rows []RankingRow
	for _, c := range candidates {
		if !c.Date.Equal(date) {
			continue
		}
		stats := c.StatsFor(metric)
		if stats.Rank == nil {
			continue
		}
		rows = append(rows, RankingRow{
			Rank:   *stats.Rank,
			Label:  c.Label,
			Value:  stats.Value,
			MoMPct: stats.MoMPct,
			YoYPct: stats.YoYPct,
			Trend:  trendLabel(stats.MoMPct),
			Signal: signalLabel(stats.MoMPct),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].Label < rows[j].Label
	})
	if len(rows) > topK {
		rows = rows[:topK]
	}

	return &RankingsResponse{
		Domain:   string(domain),
		Date:     formatMonth(date),
		Rows:     rows,
		Metadata: s.metadata(ctx, level, date, date),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DetectAnomaly
// ─────────────────────────────────────────────────────────────────────────────

// DetectAnomaly flags regions whose value at the resolved date deviates from
// their own history by at least the threshold, in standard deviations.
func (s *Service) DetectAnomaly(ctx context.Context, req AnomalyRequest) (*AnomalyResponse, error) {
	domain, err := parseDomainOrDefault(req.Domain)
	if err != nil {
		return nil, err
	}
	level, err := common.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	threshold, err := normalizeZThreshold(req.ZThreshold)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	key := cacheKey("anomaly", string(domain), string(level), req.Period, fmt.Sprintf("%g", threshold))
	var resp AnomalyResponse
	if err := s.cached(ctx, key, &resp, func(ctx context.Context) (interface{}, error) {
		return s.anomalies(ctx, domain, level, period, threshold)
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) anomalies(ctx context.Context, domain common.Domain,
	level common.Level, period *common.Period, threshold float64) (*AnomalyResponse, error) {

	candidates, err := s.agg.BuildLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	date, ok := resolveTargetDate(period, candidates)
	if !ok {
		return nil, errors.NotFound("no observations in period")
	}

	metric := domain.Metric()
	var rows []AnomalyRow
	for _, c := range candidates {
		if !c.Date.Equal(date) {
			continue
		}
		stats := c.StatsFor(metric)
		if stats.Value == nil {
			continue
		}
		row := AnomalyRow{
			Label:  c.Label,
			Value:  stats.Value,
			ZScore: stats.ZScore,
			MoMPct: stats.MoMPct,
			Signal: signalLabel(stats.MoMPct),
		}
		if stats.ZScore != nil {
			z := *stats.ZScore
			if z < 0 {
				z = -z
			}
			row.IsAnomaly = z >= threshold
		}
		rows = append(rows, row)
	}
	// Most extreme deviations first; unstandardizable rows close the list.
	sort.Slice(rows, func(i, j int) bool {
		zi, zj := absZ(rows[i].ZScore), absZ(rows[j].ZScore)
		if (zi == nil) != (zj == nil) {
			return zi != nil
		}
		if zi != nil && *zi != *zj {
			return *zi > *zj
		}
		return rows[i].Label < rows[j].Label
	})

	return &AnomalyResponse{
		Domain:     string(domain),
		Date:       formatMonth(date),
		ZThreshold: threshold,
		Rows:       rows,
		Metadata:   s.metadata(ctx, level, date, date),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetAdvancedInsight
// ─────────────────────────────────────────────────────────────────────────────

// GetAdvancedInsight serves the current refresh snapshot, filtered by level
// and region.  It never recomputes; an empty store means no refresh has
// completed yet.  Period and domains are validated and echoed even though the
// snapshot's window is fixed at refresh time.
func (s *Service) GetAdvancedInsight(ctx context.Context, req AdvancedRequest) (*AdvancedResponse, error) {
	if _, err := parsePeriod(req.Period); err != nil {
		return nil, err
	}
	domains, err := parseDomains(req.Domains)
	if err != nil {
		return nil, err
	}

	snapshot := s.store.Snapshot()
	if snapshot == nil {
		return nil, errors.Unavailable("advanced insights not yet computed")
	}

	var level common.Level
	if req.Level != "" {
		parsed, err := common.ParseLevel(req.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var views []AdvancedView
	for _, ai := range snapshot.Insights {
		if level != "" && ai.Level != level {
			continue
		}
		if req.Region != "" && !strings.EqualFold(ai.Label, req.Region) {
			continue
		}
		views = append(views, AdvancedView{
			Level:                     ai.Level,
			Label:                     ai.Label,
			Correlation:               ai.Corr,
			CorrelationInterpretation: domaininsight.InterpretCorrelation(ai.Corr),
			Slope:                     ai.Slope,
			FootTrafficImpact:         ai.FootTrafficImpact,
			FootTrafficImpactLevel:    domaininsight.ClassifyImpact(ai.FootTrafficImpact),
			SalesImpact:               ai.SalesImpact,
			SalesImpactLevel:          domaininsight.ClassifyImpact(ai.SalesImpact),
			SampleSize:                ai.SampleSize,
		})
	}

	metaLevel := level
	if metaLevel == "" {
		metaLevel = common.DefaultLevel
	}
	return &AdvancedResponse{
		Period:      req.Period,
		Domains:     domainStrings(domains),
		Insights:    views,
		RefreshedAt: snapshot.RefreshedAt,
		Metadata:    s.metadata(ctx, metaLevel, snapshot.RefreshedAt, snapshot.RefreshedAt),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Structured query dispatch
// ─────────────────────────────────────────────────────────────────────────────

// ExecuteQuery runs one structured query, mapping it onto the operation it
// names.  Used by the assistant endpoint after cache resolution.
func (s *Service) ExecuteQuery(ctx context.Context, q query.Query) (interface{}, error) {
	switch q.Operation {
	case query.OpCompareDomains:
		return s.CompareDomains(ctx, CompareRequest{
			Region: q.Region, Period: q.Period,
			PeriodFrom: q.PeriodFrom, PeriodTo: q.PeriodTo,
			Domains: q.Domains, Level: q.Level,
		})
	case query.OpRankings:
		return s.GetRankings(ctx, RankingsRequest{
			Domain: q.Domain, Period: q.Period, Level: q.Level, TopK: q.TopK,
		})
	case query.OpAnomaly:
		return s.DetectAnomaly(ctx, AnomalyRequest{
			Domain: q.Domain, Period: q.Period, Level: q.Level, ZThreshold: q.ZThreshold,
		})
	case query.OpAdvanced:
		return s.GetAdvancedInsight(ctx, AdvancedRequest{
			Region: q.Region, Period: q.Period, Domains: q.Domains, Level: q.Level,
		})
	default:
		return nil, errors.New(errors.ErrCodeQuerySchemaInvalid, "unknown operation").
			WithDetail(string(q.Operation))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) metadata(ctx context.Context, level common.Level, from, to time.Time) Metadata {
	sources, err := s.source.Sources(ctx)
	if err != nil {
		s.logger.Warn("failed to list fact sources", logging.Err(err))
	}
	return Metadata{
		Sources:     sources,
		GeneratedAt: s.now().UTC(),
		PeriodFrom:  formatMonth(from),
		PeriodTo:    formatMonth(to),
		Level:       level,
	}
}

// cached runs load through the redis result cache when one is configured.
func (s *Service) cached(ctx context.Context, key string, dest interface{},
	load func(ctx context.Context) (interface{}, error)) error {
	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return err
		}
		return copyInto(v, dest)
	}
	return s.cache.GetOrSet(ctx, key, dest, s.cacheTTL, load)
}

func parseDomainOrDefault(raw string) (common.Domain, error) {
	if raw == "" {
		return DefaultDomain, nil
	}
	return common.ParseDomain(raw)
}

func cacheKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}

// copyInto moves the loader's value into the caller's destination the same
// way a cache hit would, via the JSON shape.
func copyInto(v, dest interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "response serialization failed")
	}
	return json.Unmarshal(data, dest)
}

func absZ(z *float64) *float64 {
	if z == nil {
		return nil
	}
	v := *z
	if v < 0 {
		v = -v
	}
	return &v
}
