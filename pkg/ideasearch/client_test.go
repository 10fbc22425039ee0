package ideasearch

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/localembed"
)

func TestNew_NoStore(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no store configured")
	}
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := openBackend(context.Background(), cfg, 8)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestEmbedderAdapter(t *testing.T) {
	called := false
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			called = true
			return EmbeddingResult{
				Embedding:    []float32{1, 2, 3},
				PromptTokens: 5,
				TotalTokens:  10,
			}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	res, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("inner embedder was not called")
	}
	if len(res.Embedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(res.Embedding))
	}
	if res.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", res.TotalTokens)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	adapter := &embedderAdapter{inner: mock}
	if _, err := adapter.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestEmbedderAdapter_BatchFallback(t *testing.T) {
	calls := 0
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			calls++
			return EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 2}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	res, err := adapter.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("inner calls = %d, want 3", calls)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("embeddings = %d, want 3", len(res.Embeddings))
	}
}

func TestEmbedderAdapter_NativeBatch(t *testing.T) {
	mock := &mockBatchEmbedder{
		mockEmbedder: mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			t.Error("single Embed should not be called")
			return EmbeddingResult{}, nil
		}},
		batchFn: func(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{0, 1}
			}
			return BatchEmbeddingResult{Embeddings: out, TotalTokens: 9}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	res, err := adapter.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 9 {
		t.Errorf("result = %+v", res)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	cfg2 := &clientConfig{}
	WithRedis("localhost:6380", "pass").apply(cfg2)
	if cfg2.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg2.driver)
	}

	cfg3 := &clientConfig{}
	WithPostgres("postgres://localhost/ideas").apply(cfg3)
	if cfg3.driver != "postgres" || cfg3.dsn != "postgres://localhost/ideas" {
		t.Errorf("postgres = (%q, %q)", cfg3.driver, cfg3.dsn)
	}

	WithVectorProvider("openai").apply(cfg3)
	WithLocalDimensions(128).apply(cfg3)
	WithOutageTolerance().apply(cfg3)
	WithBatchSize(25).apply(cfg3)
	if cfg3.vectorProvider != "openai" || cfg3.localDims != 128 || !cfg3.tolerateOutage || cfg3.batchSize != 25 {
		t.Errorf("config = %+v", cfg3)
	}

	cfg4 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg4)
	if cfg4.logger != logger {
		t.Error("expected logger to be set")
	}

	cfg5 := &clientConfig{}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestWithEmbedder_KeepsOrder(t *testing.T) {
	mock := &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{}, nil
	}}
	cfg := &clientConfig{}
	WithEmbedder("openai", mock, 1536).apply(cfg)
	WithEmbedder("ollama", mock, 768).apply(cfg)

	if len(cfg.embedders) != 2 {
		t.Fatalf("embedders = %d, want 2", len(cfg.embedders))
	}
	if cfg.embedders[0].name != "openai" || cfg.embedders[1].name != "ollama" {
		t.Errorf("order = %s, %s", cfg.embedders[0].name, cfg.embedders[1].name)
	}
	if cfg.embedders[1].dims != 768 {
		t.Errorf("dims = %d, want 768", cfg.embedders[1].dims)
	}
}

func TestNewPipeline_LocalOnly(t *testing.T) {
	p, err := newPipeline(&clientConfig{localDims: localembed.DefaultDimensions})
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if p.vectorProvider != domain.ProviderLocal {
		t.Errorf("vectorProvider = %q, want %q", p.vectorProvider, domain.ProviderLocal)
	}
	if p.dims != localembed.DefaultDimensions {
		t.Errorf("dims = %d, want %d", p.dims, localembed.DefaultDimensions)
	}
	got := p.gateway.Providers()
	if len(got) != 1 || got[0] != domain.ProviderLocal {
		t.Errorf("chain = %v", got)
	}
}

func TestNewPipeline_FirstEmbedderHoldsStore(t *testing.T) {
	mock := &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: make([]float32, 8)}, nil
	}}
	cfg := &clientConfig{localDims: 16}
	WithEmbedder("remote", mock, 8).apply(cfg)

	p, err := newPipeline(cfg)
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if p.vectorProvider != "remote" {
		t.Errorf("vectorProvider = %q, want remote", p.vectorProvider)
	}
	if p.dims != 8 {
		t.Errorf("dims = %d, want 8", p.dims)
	}
	got := p.gateway.Providers()
	if len(got) != 2 || got[1] != domain.ProviderLocal {
		t.Errorf("chain = %v, want local last", got)
	}
}

func TestNewPipeline_UnknownVectorProvider(t *testing.T) {
	cfg := &clientConfig{localDims: 16, vectorProvider: "missing"}
	_, err := newPipeline(cfg)
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestNewPipeline_DuplicateProvider(t *testing.T) {
	mock := &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{}, nil
	}}
	cfg := &clientConfig{localDims: 16}
	WithEmbedder(domain.ProviderLocal, mock, 16).apply(cfg)

	if _, err := newPipeline(cfg); err == nil {
		t.Fatal("expected error for a provider named like the local embedder")
	}
}

func TestWireClient_IncompleteBackend(t *testing.T) {
	p, err := newPipeline(&clientConfig{localDims: 16})
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if _, err := wireClient(backend{}, p, &clientConfig{}, nil); err == nil {
		t.Fatal("expected error for backend without repo")
	}
}

func TestClient_Close_NilCloser(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_Ping(t *testing.T) {
	c := &Client{pinger: &mockPinger{}}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	c = &Client{pinger: &mockPinger{err: errors.New("conn refused")}}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "ideasearch_client_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("ideasearch_client_operations_total not found")
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first observer: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("second client should reuse the registered counter")
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("index", time.Now(), nil)
	obs.observe("index", time.Now(), errors.New("test error"))
}
