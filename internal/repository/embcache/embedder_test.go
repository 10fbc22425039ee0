package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ideasearch/internal/db"
	"github.com/kailas-cloud/ideasearch/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2},
		Provider:    "openai",
		TotalTokens: 3,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var storedKey string
	var storedTTL time.Duration
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		storedKey = key
		storedTTL = ttl
		if len(value) != 8 {
			t.Errorf("cached value length = %d, want 8", len(value))
		}
		return nil
	}

	res, err := ce.Embed(context.Background(), "blockchain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d, want 3", res.TotalTokens)
	}
	if !strings.HasPrefix(storedKey, DefaultKeyPrefix+"openai:") {
		t.Errorf("key = %q, want provider-scoped key", storedKey)
	}
	if storedTTL != time.Hour {
		t.Errorf("ttl = %v", storedTTL)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("should not be called")}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return vectorToCacheBytes([]float32{0.5, -0.5}), nil
	}

	res, err := ce.Embed(context.Background(), "blockchain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", res.Provider)
	}
	if len(res.Embedding) != 2 || res.Embedding[1] != -0.5 {
		t.Errorf("Embedding = %v", res.Embedding)
	}
	if res.TotalTokens != 0 {
		t.Errorf("hit should report zero tokens, got %d", res.TotalTokens)
	}
}

func TestEmbed_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, Provider: "openai"}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("expected inner result, got %v", res.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbed_ProviderScopedKeys(t *testing.T) {
	ms := &mockKVStore{}
	a := New(&mockEmbedder{}, ms, Config{Provider: "openai"}, nil, nil)
	b := New(&mockEmbedder{}, ms, Config{Provider: "jina"}, nil, nil)
	if a.cacheKey("same text") == b.cacheKey("same text") {
		t.Error("different providers must not share cache keys")
	}
}

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.9},
		Provider:    "openai",
		TotalTokens: 2,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	cachedKey := ce.cacheKey("cached")
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if key == cachedKey {
			return vectorToCacheBytes([]float32{0.1}), nil
		}
		return nil, db.ErrKeyNotFound
	}
	var puts int
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		puts++
		return nil
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ce.cacheTotal = counter

	res, err := ce.BatchEmbed(context.Background(), []string{"new-a", "cached", "new-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batchTexts) != 2 || inner.batchTexts[0] != "new-a" || inner.batchTexts[1] != "new-b" {
		t.Errorf("inner received %v, want only misses", inner.batchTexts)
	}
	if res.Embeddings[0][0] != 0.9 || res.Embeddings[1][0] != 0.1 || res.Embeddings[2][0] != 0.9 {
		t.Errorf("embeddings out of order: %v", res.Embeddings)
	}
	if puts != 2 {
		t.Errorf("expected 2 cache puts, got %d", puts)
	}
	if res.TotalTokens != 4 {
		t.Errorf("TotalTokens = %d, want 4", res.TotalTokens)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) {
		return vectorToCacheBytes([]float32{0.1}), nil
	}

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 0 {
		t.Errorf("expected no inner calls, got %d", inner.batchCalls)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: errors.New("boom")}
	ce, _ := newTestCachedEmbedder(t, inner)

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner)

	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 || inner.batchCalls != 0 {
		t.Errorf("expected no work for empty input")
	}
}
