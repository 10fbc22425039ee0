// Package embedding implements the embedding provider gateway: an ordered chain of
// providers, each behind its own retry policy, with fallback to the next on exhaustion.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// Strategy is one provider in the chain.
type Strategy struct {
	Name string
	// Embedder is the wrapped provider, usually Instrumented(Retrying(transport)).
	Embedder domain.Embedder
	// Dimensions is the vector length this provider must return. 0 skips the check.
	Dimensions int
}

// Gateway embeds text with the first provider of the chain that succeeds.
type Gateway struct {
	chain  []Strategy
	logger *zap.Logger
}

// NewGateway validates the chain: at least one provider, unique names.
func NewGateway(chain []Strategy, logger *zap.Logger) (*Gateway, error) {
	if len(chain) == 0 {
		return nil, errors.New("embedding chain is empty")
	}
	seen := make(map[string]bool, len(chain))
	for _, s := range chain {
		if s.Name == "" || s.Embedder == nil {
			return nil, fmt.Errorf("embedding chain: provider %q is incomplete", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("embedding chain: provider %q listed twice", s.Name)
		}
		seen[s.Name] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{chain: chain, logger: logger}, nil
}

// Providers returns the provider names in chain order.
func (g *Gateway) Providers() []string {
	out := make([]string, len(g.chain))
	for i, s := range g.chain {
		out[i] = s.Name
	}
	return out
}

// Dimensions returns the configured vector length of a provider, 0 if unknown.
func (g *Gateway) Dimensions(provider string) int {
	for _, s := range g.chain {
		if s.Name == provider {
			return s.Dimensions
		}
	}
	return 0
}

// Embed vectorizes text. providerHint, when set, moves that provider to the front of the
// chain. The result names the provider that produced the vector.
func (g *Gateway) Embed(ctx context.Context, text, providerHint string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, domain.NewValidation("text", "must not be empty")
	}
	order, err := g.order(providerHint)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	var lastErr error
	for i, s := range order {
		if i > 0 {
			metrics.EmbeddingFallbacksTotal.WithLabelValues(order[i-1].Name, s.Name).Inc()
		}
		res, err := s.Embedder.Embed(ctx, text)
		if err == nil {
			err = checkDims(s, res.Embedding)
		}
		if err == nil {
			res.Provider = s.Name
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EmbeddingResult{}, ctxErr
		}
		g.logger.Warn("Embedding provider exhausted",
			zap.String("provider", s.Name),
			zap.Error(err),
		)
		lastErr = err
	}
	return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
}

// BatchEmbed vectorizes texts with a single provider so all vectors share one space.
func (g *Gateway) BatchEmbed(ctx context.Context, texts []string, providerHint string) (domain.BatchEmbeddingResult, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return domain.BatchEmbeddingResult{}, domain.NewValidation(fmt.Sprintf("texts[%d]", i), "must not be empty")
		}
	}
	order, err := g.order(providerHint)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Provider: order[0].Name}, nil
	}

	var lastErr error
	for i, s := range order {
		if i > 0 {
			metrics.EmbeddingFallbacksTotal.WithLabelValues(order[i-1].Name, s.Name).Inc()
		}
		res, err := batch(ctx, s.Embedder, texts)
		if err == nil {
			for _, v := range res.Embeddings {
				if err = checkDims(s, v); err != nil {
					break
				}
			}
		}
		if err == nil {
			res.Provider = s.Name
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.BatchEmbeddingResult{}, ctxErr
		}
		g.logger.Warn("Embedding provider exhausted (batch)",
			zap.String("provider", s.Name),
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
		lastErr = err
	}
	return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
}

// HealthCheck checks the head of the chain.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	head := g.chain[0]
	if hc, ok := head.Embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("provider %s: %w", head.Name, err)
		}
	}
	return nil
}

// Bind returns a domain.Embedder that always passes providerHint.
func (g *Gateway) Bind(providerHint string) domain.Embedder {
	return boundGateway{g: g, hint: providerHint}
}

type boundGateway struct {
	g    *Gateway
	hint string
}

func (b boundGateway) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return b.g.Embed(ctx, text, b.hint)
}

func (b boundGateway) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return b.g.BatchEmbed(ctx, texts, b.hint)
}

func (g *Gateway) order(hint string) ([]Strategy, error) {
	if hint == "" {
		return g.chain, nil
	}
	idx := -1
	for i, s := range g.chain {
		if s.Name == hint {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %w", domain.NewValidation("provider", fmt.Sprintf("%q is not configured", hint)),
			domain.ErrUnknownProvider)
	}
	out := make([]Strategy, 0, len(g.chain))
	out = append(out, g.chain[idx])
	out = append(out, g.chain[:idx]...)
	return append(out, g.chain[idx+1:]...), nil
}

func batch(ctx context.Context, e domain.Embedder, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, e, texts)
}

func checkDims(s Strategy, vec []float32) error {
	if s.Dimensions > 0 && len(vec) != s.Dimensions {
		return fmt.Errorf("provider %s returned %d dimensions, want %d: %w",
			s.Name, len(vec), s.Dimensions, domain.ErrVectorDimMismatch)
	}
	return nil
}
