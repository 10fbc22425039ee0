package domain

import (
	"context"
	"fmt"
)

// Known provider names. Config may register others under their own names.
const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector, the provider that produced it and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	Provider     string
	PromptTokens int
	TotalTokens  int
}

// Dimensions returns the vector length.
func (r EmbeddingResult) Dimensions() int { return len(r.Embedding) }

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	Provider     string
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed once per text for providers without a native batch endpoint.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int
	var provider string

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		if provider != "" && res.Provider != provider {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: provider switched from %s to %s: %w",
				i, provider, res.Provider, ErrVectorDimMismatch)
		}
		provider = res.Provider
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		Provider:     provider,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
