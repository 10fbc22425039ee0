package ideas

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/db"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hmgetMultiFn  func(ctx context.Context, keys []string, fields ...string) ([]map[string]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchTextFn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HMGetMulti(ctx context.Context, keys []string, fields ...string) ([]map[string]string, error) {
	if m.hmgetMultiFn != nil {
		return m.hmgetMultiFn(ctx, keys, fields...)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, index, query, offset, limit, fields)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

const testPrefix = "ideasearch:idea:"

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Config{
		IndexName:        "ideasearch:ideas:idx",
		KeyPrefix:        testPrefix,
		VectorDimensions: 4,
	})
	return repo, ms
}

func sampleIndexed() idea.Indexed {
	rec := idea.Record{
		ID:            "7",
		Title:         "Blockchain payment ledger for retail banking",
		Summary:       "Settles card payments on a permissioned ledger.",
		Domain:        "AI for Industry",
		BusinessGroup: "Finance",
		TechStack:     []string{"Java", "Hyperledger"},
		BuildPhase:    "Prototype",
		Score:         81.5,
		CreatedAt:     time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	doc := idea.NewDocument(&rec)
	doc.Vector = []float32{0.5, 0.5, 0.5, 0.5}
	return idea.Indexed{Record: rec, Document: doc}
}
