// Package pgideas is the Postgres idea repository: one table with a pgvector column.
package pgideas

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

// Pool is the subset of pgxpool.Pool the repository uses.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repo implements the idea repository contracts on Postgres.
type Repo struct {
	pool Pool
	dims int
}

// New creates a Postgres idea repository. dims sizes the vector column.
func New(pool Pool, dims int) *Repo {
	return &Repo{pool: pool, dims: dims}
}

const selectColumns = `id, COALESCE(submitter_id, ''), title, summary, domain, business_group, tech_stack,
	build_phase, build_preference, scalability, novelty, benefits, additional_info,
	expected_outcomes, business_model, prototype_url, score, created_at, updated_at`

// EnsureSchema creates the pgvector extension and the ideas table when missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ideas (
	id TEXT PRIMARY KEY,
	submitter_id TEXT,
	title TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL DEFAULT '',
	business_group TEXT NOT NULL DEFAULT '',
	tech_stack TEXT[] NOT NULL DEFAULT '{}',
	build_phase TEXT NOT NULL DEFAULT '',
	build_preference TEXT NOT NULL DEFAULT '',
	scalability TEXT NOT NULL DEFAULT '',
	novelty TEXT NOT NULL DEFAULT '',
	benefits TEXT NOT NULL DEFAULT '',
	additional_info TEXT NOT NULL DEFAULT '',
	expected_outcomes TEXT NOT NULL DEFAULT '',
	business_model TEXT NOT NULL DEFAULT '',
	prototype_url TEXT NOT NULL DEFAULT '',
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	blob TEXT NOT NULL DEFAULT '',
	embedding vector(%d)
)`, r.dims),
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return domain.NewRetrieval("ensure schema", err)
		}
	}
	return nil
}

const upsertSQL = `INSERT INTO ideas (id, submitter_id, title, summary, domain, business_group, tech_stack,
	build_phase, build_preference, scalability, novelty, benefits, additional_info,
	expected_outcomes, business_model, prototype_url, score, created_at, updated_at, blob, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
	COALESCE($18, now()), COALESCE($19, now()), $20, $21)
ON CONFLICT (id) DO UPDATE SET
	submitter_id = EXCLUDED.submitter_id, title = EXCLUDED.title, summary = EXCLUDED.summary,
	domain = EXCLUDED.domain, business_group = EXCLUDED.business_group, tech_stack = EXCLUDED.tech_stack,
	build_phase = EXCLUDED.build_phase, build_preference = EXCLUDED.build_preference,
	scalability = EXCLUDED.scalability, novelty = EXCLUDED.novelty, benefits = EXCLUDED.benefits,
	additional_info = EXCLUDED.additional_info, expected_outcomes = EXCLUDED.expected_outcomes,
	business_model = EXCLUDED.business_model, prototype_url = EXCLUDED.prototype_url,
	score = EXCLUDED.score, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at,
	blob = EXCLUDED.blob, embedding = EXCLUDED.embedding`

// Upsert writes a batch of ideas in one transaction.
func (r *Repo) Upsert(ctx context.Context, items []idea.Indexed) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewRetrieval("begin upsert", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range items {
		if _, err := tx.Exec(ctx, upsertSQL, upsertArgs(&items[i])...); err != nil {
			return domain.NewRetrieval("upsert idea "+items[i].Record.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.NewRetrieval("commit upsert", err)
	}
	return nil
}

func upsertArgs(in *idea.Indexed) []any {
	rec := &in.Record
	techStack := rec.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	var embedding any
	if len(in.Document.Vector) > 0 {
		embedding = pgvector.NewVector(in.Document.Vector)
	}
	return []any{
		rec.ID, rec.SubmitterID, rec.Title, rec.Summary, rec.Domain, rec.BusinessGroup, techStack,
		rec.BuildPhase, rec.BuildPreference, rec.Scalability, rec.Novelty, rec.Benefits, rec.AdditionalInfo,
		rec.ExpectedOutcomes, rec.BusinessModel, rec.PrototypeURL, rec.Score,
		nullTime(rec.CreatedAt), nullTime(rec.UpdatedAt), in.Document.Text, embedding,
	}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Candidates runs the bounded lexical pass: whole-word terms OR-ed over the text blob, AND-ed with
// facet constraints.
func (r *Repo) Candidates(ctx context.Context, terms []string, f filter.Filters, limit int) ([]idea.Record, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	sql, args := buildCandidateQuery(terms, f, limit)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewRetrieval("candidates", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, domain.NewRetrieval("candidates", err)
	}
	return recs, nil
}

// VectorDistances returns the cosine distance between vector and each stored idea in ids.
func (r *Repo) VectorDistances(ctx context.Context, vector []float32, ids []string) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, embedding <=> $1 AS distance FROM ideas WHERE id = ANY($2) AND embedding IS NOT NULL`,
		pgvector.NewVector(vector), ids)
	if err != nil {
		return nil, domain.NewRetrieval("vector distances", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var d float64
		if err := rows.Scan(&id, &d); err != nil {
			return nil, domain.NewRetrieval("vector distances", err)
		}
		out[id] = d
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRetrieval("vector distances", err)
	}
	return out, nil
}

// CreatedAt reads the authoritative creation time of each idea.
func (r *Repo) CreatedAt(ctx context.Context, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, created_at FROM ideas WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.NewRetrieval("created_at", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var ts time.Time
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, domain.NewRetrieval("created_at", err)
		}
		out[id] = ts.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRetrieval("created_at", err)
	}
	return out, nil
}

// Sample returns up to limit ideas ordered by id, used for corpus-wide facet counts.
func (r *Repo) Sample(ctx context.Context, limit int) ([]idea.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM ideas ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, domain.NewRetrieval("sample", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, domain.NewRetrieval("sample", err)
	}
	return recs, nil
}

// Count returns the number of stored ideas.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&n); err != nil {
		return 0, domain.NewRetrieval("count", err)
	}
	return int(n), nil
}

func scanRecords(rows pgx.Rows) ([]idea.Record, error) {
	defer rows.Close()

	var out []idea.Record
	for rows.Next() {
		var rec idea.Record
		if err := rows.Scan(
			&rec.ID, &rec.SubmitterID, &rec.Title, &rec.Summary, &rec.Domain, &rec.BusinessGroup,
			&rec.TechStack, &rec.BuildPhase, &rec.BuildPreference, &rec.Scalability, &rec.Novelty,
			&rec.Benefits, &rec.AdditionalInfo, &rec.ExpectedOutcomes, &rec.BusinessModel,
			&rec.PrototypeURL, &rec.Score, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// facetColumns maps facet names to scalar columns.
var facetColumns = map[string]string{
	filter.FacetDomain:          "domain",
	filter.FacetBusinessGroup:   "business_group",
	filter.FacetBuildPhase:      "build_phase",
	filter.FacetScalability:     "scalability",
	filter.FacetNovelty:         "novelty",
	filter.FacetBuildPreference: "build_preference",
}

// wordPattern matches term as a whole word or phrase, case-insensitively via ~*.
func wordPattern(term string) string {
	return `\m` + regexp.QuoteMeta(term) + `\M`
}

// buildCandidateQuery renders the candidate SELECT with positional args.
func buildCandidateQuery(terms []string, f filter.Filters, limit int) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	termParts := make([]string, 0, len(terms))
	for _, t := range terms {
		termParts = append(termParts, "blob ~* "+arg(wordPattern(t)))
	}
	where := []string{"(" + strings.Join(termParts, " OR ") + ")"}

	for _, c := range f.Categories() {
		values := lowerAll(c.Values)
		if c.Name == filter.FacetTechStack {
			where = append(where, "EXISTS (SELECT 1 FROM unnest(tech_stack) AS t WHERE lower(t) = ANY("+arg(values)+"))")
			continue
		}
		col, ok := facetColumns[c.Name]
		if !ok {
			continue
		}
		where = append(where, "lower("+col+") = ANY("+arg(values)+")")
	}

	if ranges := f.YearRanges(); len(ranges) > 0 {
		parts := make([]string, 0, len(ranges))
		for _, yr := range ranges {
			from := time.Unix(yr.From, 0).UTC()
			to := time.Unix(yr.To, 0).UTC()
			parts = append(parts, "(created_at >= "+arg(from)+" AND created_at < "+arg(to)+")")
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}

	sql := "SELECT " + selectColumns + " FROM ideas WHERE " + strings.Join(where, " AND ") + " LIMIT " + arg(limit)
	return sql, args
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
