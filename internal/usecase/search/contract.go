package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/query"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Candidates(ctx context.Context, terms []string, f filter.Filters, limit int) ([]idea.Record, error)
	VectorDistances(ctx context.Context, vector []float32, ids []string) (map[string]float64, error)
	CreatedAt(ctx context.Context, ids []string) (map[string]time.Time, error)
	Sample(ctx context.Context, limit int) ([]idea.Record, error)
}

// Gateway vectorizes query text through the provider chain.
type Gateway interface {
	Embed(ctx context.Context, text, providerHint string) (domain.EmbeddingResult, error)
}

// Enhancer turns raw query text into an enhanced query envelope.
type Enhancer interface {
	Enhance(ctx context.Context, raw string, themes []string) query.Envelope
}

// LocalEmbedder vectorizes candidate text when the query vector is not comparable
// with what the store holds.
type LocalEmbedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
