package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geoinsight/geoinsight/internal/application/querycache"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// QueryResolver turns free text into a structured query.
type QueryResolver interface {
	Resolve(ctx context.Context, text string) (querycache.Resolution, error)
}

// QueryExecutor runs a structured query against the insight service.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, q query.Query) (interface{}, error)
}

// AssistantHandler serves the natural-language entry point.  Resolution
// itself never fails; a failed translation degrades to the fallback query,
// so the endpoint only errors when execution does.
type AssistantHandler struct {
	resolver QueryResolver
	executor QueryExecutor
}

func NewAssistantHandler(resolver QueryResolver, executor QueryExecutor) *AssistantHandler {
	return &AssistantHandler{resolver: resolver, executor: executor}
}

// AssistantRequest is the natural-language request body.
type AssistantRequest struct {
	Text string `json:"text" binding:"required"`
}

// AssistantResponse pairs the executed result with how the query was
// obtained, so clients can flag fallback answers.
type AssistantResponse struct {
	Outcome string      `json:"outcome"`
	Query   query.Query `json:"query"`
	Result  interface{} `json:"result"`
}

// Query handles POST /api/v1/assistant/query.
func (h *AssistantHandler) Query(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("text is required").WithCause(err))
		return
	}

	resolution, err := h.resolver.Resolve(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.executor.ExecuteQuery(c.Request.Context(), resolution.Query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssistantResponse{
		Outcome: string(resolution.Outcome),
		Query:   resolution.Query,
		Result:  result,
	})
}
