package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestRankingsSendsParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/insights/rankings", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(RankingsResponse{
			Domain: "sales",
			Date:   "2024-12",
			Rows:   []RankingRow{{Rank: 1, Label: "Gangnam-gu"}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Rankings(context.Background(), RankingsParams{
		Domain: "sales", Period: "2024-12", Level: "sig", TopK: 5,
	})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "domain=sales")
	assert.Contains(t, gotQuery, "top_k=5")
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Gangnam-gu", resp.Rows[0].Label)
}

func TestCompareSendsRangeAndDomains(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/insights/compare", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(CompareResponse{
			Region:  "Gangnam-gu",
			Domains: []string{"sales"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Compare(context.Background(), CompareParams{
		Region: "Gangnam-gu", PeriodFrom: "2024-03", PeriodTo: "2024-08",
		Domains: []string{"sales"},
	})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "period_from=2024-03")
	assert.Contains(t, gotQuery, "period_to=2024-08")
	assert.Contains(t, gotQuery, "domains=sales")
	assert.Equal(t, []string{"sales"}, resp.Domains)
}

func TestErrorResponsesDecodeToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"COMMON_003","message":"no observations for region"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Compare(context.Background(), CompareParams{Region: "atlantis"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "COMMON_003", apiErr.Code)
	assert.Equal(t, "no observations for region", apiErr.Message)
}

func TestAskPostsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "busiest districts", body["text"])
		_, _ = w.Write([]byte(`{"outcome":"exact","query":{"operation":"rankings"},"result":{"domain":"population"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Ask(context.Background(), "busiest districts")
	require.NoError(t, err)
	assert.Equal(t, "exact", resp.Outcome)
}

func TestRefreshConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"INS_007","message":"refresh already running"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = c.Refresh(context.Background())
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsConflict())
}
