package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/application/insight"
	"github.com/geoinsight/geoinsight/internal/application/querycache"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

type stubResolver struct {
	resolution querycache.Resolution
	err        error
	gotText    string
}

func (s *stubResolver) Resolve(_ context.Context, text string) (querycache.Resolution, error) {
	s.gotText = text
	return s.resolution, s.err
}

type stubExecutor struct {
	result interface{}
	err    error
	gotQ   query.Query
}

func (s *stubExecutor) ExecuteQuery(_ context.Context, q query.Query) (interface{}, error) {
	s.gotQ = q
	return s.result, s.err
}

func newAssistantRouter(resolver *stubResolver, executor *stubExecutor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/assistant/query", NewAssistantHandler(resolver, executor).Query)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssistantQueryExecutesResolvedQuery(t *testing.T) {
	resolved := query.Query{Operation: query.OpRankings, Domain: "sales", Level: "sig", TopK: 5}
	resolver := &stubResolver{resolution: querycache.Resolution{Query: resolved, Outcome: querycache.OutcomeExact}}
	executor := &stubExecutor{result: &insight.RankingsResponse{Domain: "sales"}}
	r := newAssistantRouter(resolver, executor)

	w := postJSON(t, r, "/assistant/query", `{"text":"top commercial districts by sales"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "top commercial districts by sales", resolver.gotText)
	assert.Equal(t, resolved, executor.gotQ)

	var resp AssistantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "exact", resp.Outcome)
	assert.Equal(t, query.OpRankings, resp.Query.Operation)
}

func TestAssistantQueryFallbackStillSucceeds(t *testing.T) {
	// Translator down: resolution degrades to the fallback query, the
	// endpoint still answers 200 with outcome=fallback.
	resolver := &stubResolver{resolution: querycache.Resolution{
		Query:   query.Fallback(),
		Outcome: querycache.OutcomeFallback,
	}}
	executor := &stubExecutor{result: &insight.RankingsResponse{Domain: "population"}}
	r := newAssistantRouter(resolver, executor)

	w := postJSON(t, r, "/assistant/query", `{"text":"how busy was my street last tuesday?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssistantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Outcome)
}

func TestAssistantQueryRequiresText(t *testing.T) {
	r := newAssistantRouter(&stubResolver{}, &stubExecutor{})

	w := postJSON(t, r, "/assistant/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantQueryExecutionErrorsPropagate(t *testing.T) {
	resolver := &stubResolver{resolution: querycache.Resolution{
		Query:   query.Query{Operation: query.OpRankings, Level: "sig", TopK: -1},
		Outcome: querycache.OutcomeMiss,
	}}
	executor := &stubExecutor{err: errors.New(errors.ErrCodeInvalidTopK, "top_k must not be negative")}
	r := newAssistantRouter(resolver, executor)

	w := postJSON(t, r, "/assistant/query", `{"text":"worst -1 regions"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeInvalidTopK), resp.Code)
}
