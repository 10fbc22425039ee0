// Package ollama is the embedding provider for local OpenAI-compatible hosts such as Ollama.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// Config holds the local host settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// Embedder wraps a langchaingo embedder pointed at an OpenAI-compatible host.
type Embedder struct {
	embedder   embeddings.Embedder
	client     *lcopenai.LLM
	model      string
	dimensions int
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates the provider. Hosts that do not check credentials get the token "none".
func NewEmbedder(cfg *Config) (*Embedder, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	provider := cfg.Provider
	if provider == "" {
		provider = domain.ProviderOllama
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithToken(token),
		lcopenai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", provider, err)
	}

	return &Embedder{
		embedder:   emb,
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		provider:   provider,
		logger:     logger.With(zap.String("component", "ollama-embedder")),
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], Provider: e.provider}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Provider: e.provider}, nil
	}
	return e.embed(ctx, texts)
}

func (e *Embedder) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.logger.Debug("generating embeddings", zap.Int("count", len(texts)))

	start := time.Now()
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	duration := time.Since(start)

	if err != nil {
		perr := e.classify(err)
		e.countError(string(perr.Kind))
		return domain.BatchEmbeddingResult{}, perr
	}
	if len(vecs) != len(texts) {
		e.countError("empty_response")
		return domain.BatchEmbeddingResult{}, &domain.ProviderError{
			Provider: e.provider,
			Kind:     domain.ProviderErrOther,
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(texts)),
		}
	}
	for _, v := range vecs {
		if e.dimensions > 0 && len(v) != e.dimensions {
			e.countError("dimension_mismatch")
			return domain.BatchEmbeddingResult{}, fmt.Errorf("%s returned %d dimensions, want %d: %w",
				e.provider, len(v), e.dimensions, domain.ErrVectorDimMismatch)
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())

	return domain.BatchEmbeddingResult{Embeddings: vecs, Provider: e.provider}, nil
}

// HealthCheck embeds a short probe string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.CreateEmbedding(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("%s health: %w", e.provider, err)
	}
	return nil
}

func (e *Embedder) countError(errType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, errType).Inc()
}

var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// classify maps a langchaingo client error to a ProviderError. The client reports
// non-200 responses only in the error text, so the status code is parsed from there.
func (e *Embedder) classify(err error) *domain.ProviderError {
	perr := &domain.ProviderError{Provider: e.provider, Kind: domain.ProviderErrOther, Err: err}

	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		perr.Kind = domain.KindFromStatus(status)
		return perr
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		perr.Kind = domain.ProviderErrNetwork
	}
	return perr
}
