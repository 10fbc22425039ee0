// Package openai is the embedding provider for OpenAI-compatible HTTP APIs (OpenAI, Jina).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
// Provider is the chain name reported in results and metrics.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.create(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		Provider:     e.provider,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder with a single API call.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Provider: e.provider}, nil
	}
	return e.create(ctx, texts)
}

func (e *Embedder) create(ctx context.Context, input []string) (domain.BatchEmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		perr := e.classify(err)
		e.countError(string(perr.Kind))
		return domain.BatchEmbeddingResult{}, perr
	}

	if len(resp.Data) != len(input) {
		e.countError("empty_response")
		return domain.BatchEmbeddingResult{}, &domain.ProviderError{
			Provider: e.provider,
			Kind:     domain.ProviderErrOther,
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(input)),
		}
	}

	out := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			e.countError("bad_index")
			return domain.BatchEmbeddingResult{}, &domain.ProviderError{
				Provider: e.provider,
				Kind:     domain.ProviderErrOther,
				Err:      fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			e.countError("dimension_mismatch")
			return domain.BatchEmbeddingResult{}, fmt.Errorf("%s returned %d dimensions, want %d: %w",
				e.provider, len(d.Embedding), e.dimensions, domain.ErrVectorDimMismatch)
		}
		out[d.Index] = d.Embedding
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		Provider:     e.provider,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) countError(errType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), errType).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%s list models: %w", e.provider, err)
	}
	return nil
}

// classify turns a client error into a ProviderError with a readable message.
func (e *Embedder) classify(err error) *domain.ProviderError {
	perr := &domain.ProviderError{Provider: e.provider, Kind: domain.ProviderErrNetwork, Err: err}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		perr.Kind = domain.KindFromStatus(reqErr.HTTPStatusCode)
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		perr.Err = fmt.Errorf("status %d: %s", reqErr.HTTPStatusCode, detail)
		return perr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		perr.Kind = domain.KindFromStatus(apiErr.HTTPStatusCode)
		perr.Err = fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		return perr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		perr.Kind = domain.ProviderErrOther
	}
	return perr
}

// extractDetail reads the "detail" or "error.message" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
