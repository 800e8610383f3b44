package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geoinsight/geoinsight/internal/application/insight"
)

// InsightService is the application surface the handler exposes.
type InsightService interface {
	CompareDomains(ctx context.Context, req insight.CompareRequest) (*insight.CompareResponse, error)
	GetRankings(ctx context.Context, req insight.RankingsRequest) (*insight.RankingsResponse, error)
	DetectAnomaly(ctx context.Context, req insight.AnomalyRequest) (*insight.AnomalyResponse, error)
	GetAdvancedInsight(ctx context.Context, req insight.AdvancedRequest) (*insight.AdvancedResponse, error)
}

// InsightHandler serves the analytical read endpoints.
type InsightHandler struct {
	svc InsightService
}

func NewInsightHandler(svc InsightService) *InsightHandler {
	return &InsightHandler{svc: svc}
}

// Compare handles GET /api/v1/insights/compare.
func (h *InsightHandler) Compare(c *gin.Context) {
	req := insight.CompareRequest{
		Region:     c.Query("region"),
		Period:     c.Query("period"),
		PeriodFrom: c.Query("period_from"),
		PeriodTo:   c.Query("period_to"),
		Domains:    queryList(c, "domains"),
		Level:      c.Query("level"),
	}
	resp, err := h.svc.CompareDomains(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rankings handles GET /api/v1/insights/rankings.
func (h *InsightHandler) Rankings(c *gin.Context) {
	topK, err := queryInt(c, "top_k")
	if err != nil {
		respondError(c, err)
		return
	}
	req := insight.RankingsRequest{
		Domain: c.Query("domain"),
		Period: c.Query("period"),
		Level:  c.Query("level"),
		TopK:   topK,
	}
	resp, err := h.svc.GetRankings(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anomalies handles GET /api/v1/insights/anomalies.
func (h *InsightHandler) Anomalies(c *gin.Context) {
	threshold, err := queryFloat(c, "z_threshold")
	if err != nil {
		respondError(c, err)
		return
	}
	req := insight.AnomalyRequest{
		Domain:     c.Query("domain"),
		Period:     c.Query("period"),
		Level:      c.Query("level"),
		ZThreshold: threshold,
	}
	resp, err := h.svc.DetectAnomaly(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Advanced handles GET /api/v1/insights/advanced.
func (h *InsightHandler) Advanced(c *gin.Context) {
	req := insight.AdvancedRequest{
		Region:  c.Query("region"),
		Period:  c.Query("period"),
		Domains: queryList(c, "domains"),
		Level:   c.Query("level"),
	}
	resp, err := h.svc.GetAdvancedInsight(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
