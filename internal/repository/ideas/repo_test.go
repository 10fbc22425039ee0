package ideas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/db"
	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

func TestEnsureSchema_CreatesMissingIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected CreateIndex call")
	}
	if created.Prefixes[0] != testPrefix {
		t.Errorf("prefix = %q", created.Prefixes[0])
	}
	last := created.Fields[len(created.Fields)-1]
	if last.Name != fieldEmbedding || last.VectorDim != 4 || last.VectorDistance != db.DistanceCosine {
		t.Errorf("vector field = %+v", last)
	}
}

func TestEnsureSchema_ExistingIndexIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		t.Fatal("CreateIndex should not be called")
		return nil
	}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureSchema_RaceOnCreateIsTolerated(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsert_WritesHashes(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	if err := repo.Upsert(context.Background(), []idea.Indexed{sampleIndexed()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hash, got %d", len(got))
	}
	if got[0].Key != testPrefix+"7" {
		t.Errorf("key = %q", got[0].Key)
	}
	f := got[0].Fields
	if f[fieldTechStack] != "Java,Hyperledger" {
		t.Errorf("tech_stack = %q", f[fieldTechStack])
	}
	if f[fieldCreatedAt] != "1714521600" {
		t.Errorf("created_at = %q", f[fieldCreatedAt])
	}
	if len(f[fieldEmbedding]) != 16 {
		t.Errorf("embedding blob length = %d, want 16", len(f[fieldEmbedding]))
	}
}

func TestUpsert_StoreErrorIsRetrievalError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error { return errors.New("conn reset") }

	err := repo.Upsert(context.Background(), []idea.Indexed{sampleIndexed()})
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestCandidates_BuildsQueryAndParses(t *testing.T) {
	repo, ms := newTestRepo(t)

	var q *db.TextQuery
	ms.searchTextFn = func(_ context.Context, tq *db.TextQuery) (*db.SearchResult, error) {
		q = tq
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: testPrefix + "7", Fields: buildHashFields(ptr(sampleIndexed()))},
			{Key: testPrefix + "8", Fields: map[string]string{fieldTitle: "Mobile scheduling app"}},
		}}, nil
	}

	f, err := filter.New([]string{"AI for Industry"}, nil, nil, nil, []int{2024},
		map[string][]string{"novelty": {"high"}})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}

	recs, err := repo.Candidates(context.Background(), []string{"blockchain", "finance"}, f, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Limit != 150 || len(q.Terms) != 2 {
		t.Errorf("query = %+v", q)
	}
	if len(q.Filter.Tags) != 2 {
		t.Fatalf("tags = %+v, want domain and novelty only", q.Filter.Tags)
	}
	if q.Filter.Tags[0].Field != filter.FacetDomain || q.Filter.Tags[1].Field != "novelty" {
		t.Errorf("tags = %+v", q.Filter.Tags)
	}
	if len(q.Filter.Ranges) != 1 || q.Filter.Ranges[0].From != 1704067200 {
		t.Errorf("ranges = %+v", q.Filter.Ranges)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "7" || recs[0].Score != 81.5 || len(recs[0].TechStack) != 2 {
		t.Errorf("record[0] = %+v", recs[0])
	}
	if !recs[0].CreatedAt.Equal(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", recs[0].CreatedAt)
	}
	if recs[1].ID != "8" {
		t.Errorf("record[1] id = %q, want id from key", recs[1].ID)
	}
}

func TestCandidates_NoTermsSkipsStore(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchTextFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		t.Fatal("SearchText should not be called")
		return nil, nil
	}
	recs, err := repo.Candidates(context.Background(), nil, filter.Filters{}, 150)
	if err != nil || recs != nil {
		t.Fatalf("expected nil, nil; got %v, %v", recs, err)
	}
}

func TestCandidates_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchTextFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, errors.New("timeout")
	}
	_, err := repo.Candidates(context.Background(), []string{"x"}, filter.Filters{}, 10)
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestMissingIndexReadsAsEmpty(t *testing.T) {
	repo, ms := newTestRepo(t)
	missing := &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	ms.searchTextFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) { return nil, missing }
	ms.searchListFn = func(context.Context, string, string, int, int, []string) (*db.SearchResult, error) {
		return nil, missing
	}
	ms.searchCountFn = func(context.Context, string, string) (int, error) { return 0, missing }

	if recs, err := repo.Candidates(context.Background(), []string{"ai"}, filter.Filters{}, 10); err != nil || recs != nil {
		t.Errorf("Candidates() = %v, %v", recs, err)
	}
	if recs, err := repo.Sample(context.Background(), 10); err != nil || recs != nil {
		t.Errorf("Sample() = %v, %v", recs, err)
	}
	if n, err := repo.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestVectorDistances(t *testing.T) {
	repo, ms := newTestRepo(t)

	var q *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, kq *db.KNNQuery) (*db.SearchResult, error) {
		q = kq
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: testPrefix + "7", Score: 0.3},
		}}, nil
	}

	got, err := repo.VectorDistances(context.Background(), []float32{1, 0, 0, 0}, []string{"7", "8"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.RawScores || q.K != 2 || q.VectorField != fieldEmbedding {
		t.Errorf("query = %+v", q)
	}
	if q.Filter.Tags[0].Field != fieldID || len(q.Filter.Tags[0].Values) != 2 {
		t.Errorf("id prefilter = %+v", q.Filter.Tags)
	}
	if got["7"] != 0.3 {
		t.Errorf("distance[7] = %v", got["7"])
	}
	if _, ok := got["8"]; ok {
		t.Error("idea without vector should be absent")
	}
}

func TestCreatedAt(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hmgetMultiFn = func(_ context.Context, keys []string, fields ...string) ([]map[string]string, error) {
		if keys[0] != testPrefix+"1" || fields[0] != fieldCreatedAt {
			t.Errorf("keys = %v fields = %v", keys, fields)
		}
		return []map[string]string{
			{fieldCreatedAt: "1704067200"},
			{},
		}, nil
	}

	got, err := repo.CreatedAt(context.Background(), []string{"1", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["1"].Year() != 2024 {
		t.Errorf("created_at[1] = %v", got["1"])
	}
	if _, ok := got["2"]; ok {
		t.Error("missing timestamp should be absent")
	}
}

func TestSampleAndCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, _, query string, _, limit int, _ []string) (*db.SearchResult, error) {
		if query != "*" || limit != 1000 {
			t.Errorf("query=%q limit=%d", query, limit)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: testPrefix + "1"}}}, nil
	}
	ms.searchCountFn = func(context.Context, string, string) (int, error) { return 12, nil }

	recs, err := repo.Sample(context.Background(), 1000)
	if err != nil || len(recs) != 1 || recs[0].ID != "1" {
		t.Fatalf("Sample() = %v, %v", recs, err)
	}
	n, err := repo.Count(context.Background())
	if err != nil || n != 12 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
}

func ptr[T any](v T) *T { return &v }
