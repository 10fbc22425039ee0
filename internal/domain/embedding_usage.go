package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage is filled in by the search pipeline once the query has been embedded.
// The HTTP layer reads it back to set X-Embedding-* response headers.
type EmbeddingUsage struct {
	Provider    string
	TotalTokens int
	Used        bool
}

// NewContextWithUsage attaches an empty usage record to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the usage record, or nil when none was attached.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record stores the provider that answered and the tokens it billed.
// A cache hit records the provider with zero tokens.
func (u *EmbeddingUsage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.Provider = res.Provider
	u.TotalTokens += res.TotalTokens
	u.Used = true
}
