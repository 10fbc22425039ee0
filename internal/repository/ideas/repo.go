// Package ideas is the Redis/Valkey idea repository: hash per idea plus one FT index.
package ideas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/db"
	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

// store is the consumer interface for idea operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HMGetMulti(ctx context.Context, keys []string, fields ...string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config names the index and key layout.
type Config struct {
	IndexName        string
	KeyPrefix        string
	VectorDimensions int
	HNSWM            int
	HNSWEFConstruct  int
}

// Repo implements the idea repository contracts of the search and batch use cases.
type Repo struct {
	store store
	cfg   Config
}

// New creates an idea repository.
func New(s store, cfg Config) *Repo {
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = 16
	}
	if cfg.HNSWEFConstruct <= 0 {
		cfg.HNSWEFConstruct = 200
	}
	return &Repo{store: s, cfg: cfg}
}

func (r *Repo) key(id string) string { return r.cfg.KeyPrefix + id }

func (r *Repo) idFromKey(key string) string { return strings.TrimPrefix(key, r.cfg.KeyPrefix) }

// EnsureSchema creates the FT index when it does not exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return domain.NewRetrieval("index exists", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.cfg)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return domain.NewRetrieval("create index", err)
	}
	return nil
}

// Upsert writes a batch of ideas in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, items []idea.Indexed) error {
	if len(items) == 0 {
		return nil
	}
	hashes := make([]db.HashSetItem, len(items))
	for i := range items {
		hashes[i] = db.HashSetItem{
			Key:    r.key(items[i].Record.ID),
			Fields: buildHashFields(&items[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, hashes); err != nil {
		return domain.NewRetrieval("upsert ideas", err)
	}
	return nil
}

// Candidates runs the bounded lexical pass: terms OR-ed across text fields, AND-ed with facet constraints.
// Results keep the store's arrival order. Before the first indexing run there is no index and no candidates.
func (r *Repo) Candidates(ctx context.Context, terms []string, f filter.Filters, limit int) ([]idea.Record, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.cfg.IndexName,
		Terms:        terms,
		Filter:       prefilterFrom(f),
		Limit:        limit,
		ReturnFields: recordFields,
	})
	if errors.Is(err, db.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewRetrieval("candidates", err)
	}
	return r.records(res), nil
}

// VectorDistances returns the cosine distance between vector and each stored idea in ids.
// Ideas without a stored vector are absent from the map.
func (r *Repo) VectorDistances(ctx context.Context, vector []float32, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  fieldEmbedding,
		Filter:       db.Prefilter{Tags: []db.TagMatch{{Field: fieldID, Values: ids}}},
		Vector:       vector,
		K:            len(ids),
		ReturnFields: []string{fieldID, "__" + fieldEmbedding + "_score"},
		RawScores:    true,
	})
	if err != nil {
		return nil, domain.NewRetrieval("vector distances", err)
	}

	out := make(map[string]float64, len(res.Entries))
	for _, e := range res.Entries {
		out[r.idFromKey(e.Key)] = e.Score
	}
	return out, nil
}

// CreatedAt reads the authoritative creation time of each idea straight from its hash.
func (r *Repo) CreatedAt(ctx context.Context, ids []string) (map[string]time.Time, error) {
	if len(ids) == 0 {
		return map[string]time.Time{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	rows, err := r.store.HMGetMulti(ctx, keys, fieldCreatedAt)
	if err != nil {
		return nil, domain.NewRetrieval("created_at", err)
	}

	out := make(map[string]time.Time, len(ids))
	for i, row := range rows {
		if ts := parseUnix(row[fieldCreatedAt]); !ts.IsZero() {
			out[ids[i]] = ts
		}
	}
	return out, nil
}

// Sample returns up to limit ideas in index order, used for corpus-wide facet counts.
func (r *Repo) Sample(ctx context.Context, limit int) ([]idea.Record, error) {
	res, err := r.store.SearchList(ctx, r.cfg.IndexName, "*", 0, limit, recordFields)
	if errors.Is(err, db.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewRetrieval("sample", err)
	}
	return r.records(res), nil
}

// Count returns the number of indexed ideas.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, "*")
	if errors.Is(err, db.ErrIndexNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.NewRetrieval("count", err)
	}
	return n, nil
}

func (r *Repo) records(res *db.SearchResult) []idea.Record {
	if res == nil || len(res.Entries) == 0 {
		return nil
	}
	out := make([]idea.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, parseHashFields(r.idFromKey(e.Key), e.Fields))
	}
	return out
}

// prefilterFrom maps facet selections onto index TAG fields and the created_at range.
func prefilterFrom(f filter.Filters) db.Prefilter {
	var p db.Prefilter
	for _, c := range f.Categories() {
		p.Tags = append(p.Tags, db.TagMatch{Field: c.Name, Values: c.Values})
	}
	for _, yr := range f.YearRanges() {
		p.Ranges = append(p.Ranges, db.NumericRange{
			Field: fieldCreatedAt,
			From:  float64(yr.From),
			To:    float64(yr.To),
		})
	}
	return p
}

func buildIndex(cfg Config) (*db.IndexDefinition, error) {
	b := db.NewIndex(cfg.IndexName).
		Prefix(cfg.KeyPrefix).
		TextWeighted(fieldTitle, 2).
		Text(fieldBlob).
		Tag(fieldID).
		Tag(fieldDomain).
		Tag(fieldBusinessGroup).
		TagWithOpts(fieldTechStack, ",", false).
		Tag(fieldBuildPhase).
		Tag(fieldBuildPreference).
		Tag(fieldScalability).
		Tag(fieldNovelty).
		Numeric(fieldScore).
		Numeric(fieldCreatedAt)
	if cfg.VectorDimensions > 0 {
		b = b.VectorHNSW(fieldEmbedding, cfg.VectorDimensions, db.DistanceCosine, cfg.HNSWM, cfg.HNSWEFConstruct)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("index %s (dim %d): %w", cfg.IndexName, cfg.VectorDimensions, err)
	}
	return def, nil
}
