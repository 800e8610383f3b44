// Package translator turns natural-language analytics questions into
// structured queries via an OpenAI-compatible chat endpoint, and produces the
// request embeddings the semantic query cache indexes.
package translator

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/geoinsight/geoinsight/internal/config"
	"github.com/geoinsight/geoinsight/internal/domain/query"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// Translator converts one request text into a structured query.
type Translator interface {
	Translate(ctx context.Context, text string) (query.Query, error)
}

// Embedder produces the embedding vector of one request text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// systemPrompt pins the model to the structured-query JSON contract.  The
// response format is additionally forced to a JSON object so a chatty model
// cannot wrap the payload in prose.
const systemPrompt = `You translate questions about regional commerce into a JSON query.
Respond with a single JSON object and nothing else. Fields:
  "operation": one of "compare_domains", "rankings", "anomaly", "advanced" (required)
  "domain": "population" or "sales"
  "domains": array of "population"/"sales" for compare_domains and advanced
  "level": "emd", "sig" or "sido"
  "period": "YYYY", "YYYY-MM" or "YYYY-MM-DD"
  "period_from", "period_to": explicit range bounds for compare_domains, same formats
  "region": region name as given by the user
  "top_k": integer, how many rows to return
  "z_threshold": positive number, anomaly sensitivity
Omit any field the question does not determine.`

// OpenAIClient implements Translator and Embedder over one chat-completion
// endpoint.  Any OpenAI-compatible server works via BaseURL.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	maxTokens      int
	logger         logging.Logger
}

var _ Translator = (*OpenAIClient)(nil)
var _ Embedder = (*OpenAIClient)(nil)

// NewOpenAIClient builds the translator client per cfg.
func NewOpenAIClient(cfg config.TranslatorConfig, logger logging.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		maxTokens:      cfg.MaxTokens,
		logger:         logger,
	}
}

// Translate asks the model for the structured query of text.  A transport
// failure maps to translator-unavailable; a syntactically fine response that
// violates the query schema maps to schema-invalid.  Callers degrade to the
// fallback query on either.
func (c *OpenAIClient) Translate(ctx context.Context, text string) (query.Query, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return query.Query{}, errors.Wrap(err, errors.ErrCodeTranslatorUnavailable,
			"translation request failed")
	}
	if len(resp.Choices) == 0 {
		return query.Query{}, errors.New(errors.ErrCodeTranslatorUnavailable,
			"translator returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	q, err := query.Parse([]byte(content))
	if err != nil {
		c.logger.Warn("translator produced invalid structured query",
			logging.String("content", content), logging.Err(err))
		return query.Query{}, err
	}
	return q, nil
}

// Embed returns the embedding of text under the configured embedding model.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding response empty")
	}
	return resp.Data[0].Embedding, nil
}
