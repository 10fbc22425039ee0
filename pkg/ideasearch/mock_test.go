package ideasearch

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	dombatch "github.com/kailas-cloud/ideasearch/internal/domain/batch"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
	batchuc "github.com/kailas-cloud/ideasearch/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/ideasearch/internal/usecase/health"
)

// --- embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// --- use case mocks ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (result.Page, error)
	facetsFn func(ctx context.Context) (result.Histograms, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) Facets(ctx context.Context) (result.Histograms, error) {
	return m.facetsFn(ctx)
}

type mockBatchUC struct {
	indexFn func(ctx context.Context, rows []batchuc.Row) ([]dombatch.Result, dombatch.Summary, error)
}

func (m *mockBatchUC) Index(ctx context.Context, rows []batchuc.Row) ([]dombatch.Result, dombatch.Summary, error) {
	return m.indexFn(ctx, rows)
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- in-memory store ---

// memRepo matches candidates by substring over title and summary and keeps vectors in memory.
type memRepo struct {
	mu      sync.Mutex
	records map[string]idea.Record
	vectors map[string][]float32
	order   []string
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string]idea.Record{}, vectors: map[string][]float32{}}
}

func (m *memRepo) EnsureSchema(context.Context) error { return nil }

func (m *memRepo) Upsert(_ context.Context, items []idea.Indexed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		id := items[i].Record.ID
		if _, ok := m.records[id]; !ok {
			m.order = append(m.order, id)
		}
		m.records[id] = items[i].Record
		if items[i].Document.Vector != nil {
			m.vectors[id] = items[i].Document.Vector
		}
	}
	return nil
}

func (m *memRepo) Candidates(_ context.Context, terms []string, _ filter.Filters, limit int) ([]idea.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []idea.Record
	for _, id := range m.order {
		rec := m.records[id]
		text := strings.ToLower(rec.Title + " " + rec.Summary)
		for _, t := range terms {
			if strings.Contains(text, strings.ToLower(t)) {
				out = append(out, rec)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) VectorDistances(_ context.Context, vector []float32, ids []string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if v, ok := m.vectors[id]; ok {
			out[id] = 1 - cosine(vector, v)
		}
	}
	return out, nil
}

func (m *memRepo) CreatedAt(_ context.Context, ids []string) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out[id] = rec.CreatedAt
		}
	}
	return out, nil
}

func (m *memRepo) Sample(_ context.Context, limit int) ([]idea.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]idea.Record, 0, len(m.order))
	for _, id := range m.order {
		if len(out) == limit {
			break
		}
		out = append(out, m.records[id])
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
