package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

func embeddingServer(t *testing.T, vecs ...[]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}

		data := make([]map[string]any, 0, len(vecs))
		for i, v := range vecs {
			data = append(data, map[string]any{"object": "embedding", "embedding": v, "index": i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func newTestEmbedder(t *testing.T, url string, dims int) *Embedder {
	t.Helper()
	emb, err := NewEmbedder(&Config{BaseURL: url, Model: "nomic-embed-text", Dimensions: dims})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	return emb
}

func TestEmbedder_Embed(t *testing.T) {
	srv := embeddingServer(t, []float32{0.5, 0.5, 0.5})
	defer srv.Close()

	res, err := newTestEmbedder(t, srv.URL, 3).Embed(context.Background(), "supply chain\nforecasting")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.Provider != domain.ProviderOllama {
		t.Errorf("Provider = %q", res.Provider)
	}
	if len(res.Embedding) != 3 {
		t.Errorf("dims = %d, want 3", len(res.Embedding))
	}
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	srv := embeddingServer(t, []float32{1, 0}, []float32{0, 1})
	defer srv.Close()

	res, err := newTestEmbedder(t, srv.URL, 2).BatchEmbed(context.Background(), []string{"a b c", "d e f"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][1] != 1 {
		t.Errorf("embeddings = %v", res.Embeddings)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, []float32{1, 0})
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 768).Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestEmbedder_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token"}}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 2).Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderAuth) {
		t.Fatalf("expected ErrProviderAuth, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	e := &Embedder{provider: "ollama"}
	tests := []struct {
		err  error
		want domain.ProviderErrorKind
	}{
		{errors.New("API returned unexpected status code: 429: slow down"), domain.ProviderErrRateLimit},
		{errors.New("API returned unexpected status code: 503: busy"), domain.ProviderErrNetwork},
		{errors.New("API returned unexpected status code: 403: no"), domain.ProviderErrAuth},
		{errors.New("decode: unexpected EOF"), domain.ProviderErrOther},
	}
	for _, tt := range tests {
		if got := e.classify(tt.err).Kind; got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
