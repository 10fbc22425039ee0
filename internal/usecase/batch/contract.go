package batch

import (
	"context"

	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
)

// Store persists indexed ideas.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, items []idea.Indexed) error
}
