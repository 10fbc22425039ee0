package embedding

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// mockEmbedder returns canned results and counts calls.
type mockEmbedder struct {
	result     domain.EmbeddingResult
	errs       []error // consumed one per call; nil entry means success
	calls      int
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) next() error {
	m.calls++
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if err := m.next(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return m.result, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if err := m.next(); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// singleEmbedder has no native batch endpoint.
type singleEmbedder struct {
	vec   []float32
	calls int
}

func (s *singleEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

// recordWaits collects the backoff durations announced before each retry.
type recordWaits struct {
	waits []time.Duration
}

func (r *recordWaits) onRetry(_ error, d time.Duration) {
	r.waits = append(r.waits, d)
}

func authErr(provider string) error {
	return &domain.ProviderError{Provider: provider, Kind: domain.ProviderErrAuth, Err: errors.New("status 401")}
}

func netErr(provider string) error {
	return &domain.ProviderError{Provider: provider, Kind: domain.ProviderErrNetwork, Err: errors.New("connection reset")}
}
