package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// fakeOpenAI stands in for the chat endpoint; go-openai only needs BaseURL.
func fakeOpenAI(t *testing.T, chatContent string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": chatContent}},
				},
			})
		case "/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(baseURL string) *OpenAIClient {
	return NewOpenAIClient(config.TranslatorConfig{
		BaseURL:        baseURL,
		APIKey:         "test",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
	}, logging.NewNopLogger())
}

func TestTranslateParsesStructuredQuery(t *testing.T) {
	srv := fakeOpenAI(t, `{"operation":"rankings","domain":"sales","level":"sig","period":"2024-12","top_k":10}`,
		http.StatusOK)
	defer srv.Close()

	q, err := newTestClient(srv.URL).Translate(context.Background(), "top 10 sales districts in december 2024")
	require.NoError(t, err)
	assert.Equal(t, query.OpRankings, q.Operation)
	assert.Equal(t, "sales", q.Domain)
	assert.Equal(t, "sig", q.Level)
	assert.Equal(t, "2024-12", q.Period)
	assert.Equal(t, 10, q.TopK)
}

func TestTranslateUnavailableEndpoint(t *testing.T) {
	srv := fakeOpenAI(t, "", http.StatusInternalServerError)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Translate(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTranslatorUnavailable))
}

func TestTranslateRejectsSchemaViolations(t *testing.T) {
	srv := fakeOpenAI(t, `{"operation":"drop_tables"}`, http.StatusOK)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Translate(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQuerySchemaInvalid))
}

func TestEmbed(t *testing.T) {
	srv := fakeOpenAI(t, "", http.StatusOK)
	defer srv.Close()

	vec, err := newTestClient(srv.URL).Embed(context.Background(), "some request")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}
