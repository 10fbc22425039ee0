package pgideas

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

var ideaColumns = []string{
	"id", "submitter_id", "title", "summary", "domain", "business_group", "tech_stack",
	"build_phase", "build_preference", "scalability", "novelty", "benefits", "additional_info",
	"expected_outcomes", "business_model", "prototype_url", "score", "created_at", "updated_at",
}

func ideaRow(rows *pgxmock.Rows, id, title string, created time.Time) *pgxmock.Rows {
	return rows.AddRow(id, "u-1", title, "summary", "AI for Industry", "Finance", []string{"Java"},
		"Prototype", "", "", "", "", "", "", "", "", 70.0, created, created)
}

func TestCandidates_ScansRowsInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	created := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(ideaColumns)
	ideaRow(rows, "2", "Blockchain payment ledger", created)
	ideaRow(rows, "1", "Finance dashboard", created)

	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs(`\mblockchain\M`, `\mfinance\M`, []string{"ai for industry"}, 150).
		WillReturnRows(rows)

	f, err := filter.New([]string{"AI for Industry"}, nil, nil, nil, nil, nil)
	require.NoError(t, err)

	recs, err := repo.Candidates(context.Background(), []string{"blockchain", "finance"}, f, 150)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID)
	assert.Equal(t, "1", recs[1].ID)
	assert.Equal(t, []string{"Java"}, recs[0].TechStack)
	assert.Equal(t, 2024, recs[0].Year())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidates_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection refused"))

	_, err = repo.Candidates(context.Background(), []string{"x"}, filter.Filters{}, 10)
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestBuildCandidateQuery(t *testing.T) {
	f, err := filter.New(nil, nil, []string{"AI/ML"}, nil, []int{2023, 2024},
		map[string][]string{"novelty": {"High"}})
	require.NoError(t, err)

	sql, args := buildCandidateQuery([]string{"supply chain"}, f, 150)

	assert.Contains(t, sql, "(blob ~* $1)")
	assert.NotContains(t, sql, "ILIKE")
	assert.Contains(t, sql, "unnest(tech_stack)")
	assert.Contains(t, sql, "lower(novelty) = ANY($3)")
	assert.Contains(t, sql, "((created_at >= $4 AND created_at < $5) OR (created_at >= $6 AND created_at < $7))")
	assert.Contains(t, sql, "LIMIT $8")

	require.Len(t, args, 8)
	assert.Equal(t, `\msupply chain\M`, args[0])
	assert.Equal(t, []string{"ai/ml"}, args[1])
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), args[3])
	assert.Equal(t, 150, args[7])
}

func TestBuildCandidateQuery_WholeWordTerms(t *testing.T) {
	sql, args := buildCandidateQuery([]string{"machine", "learning", "a.i"}, filter.Filters{}, 150)

	assert.Contains(t, sql, "(blob ~* $1 OR blob ~* $2 OR blob ~* $3)")
	require.Len(t, args, 4)
	assert.Equal(t, `\mmachine\M`, args[0])
	assert.Equal(t, `\mlearning\M`, args[1])
	assert.Equal(t, `\ma\.i\M`, args[2], "regexp metacharacters are escaped")
}

func TestWordPattern_MatchesWholeWordsOnly(t *testing.T) {
	re := regexp.MustCompile(`(?i)` + strings.NewReplacer(`\m`, `\b`, `\M`, `\b`).Replace(wordPattern("chain")))

	assert.True(t, re.MatchString("Supply chain tracker"))
	assert.False(t, re.MatchString("Blockchain payment ledger"))
	assert.False(t, re.MatchString("Chains of custody"))
}

func TestVectorDistances(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	mock.ExpectQuery("SELECT id, embedding").
		WithArgs(pgxmock.AnyArg(), []string{"1", "2"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "distance"}).AddRow("1", 0.42))

	got, err := repo.VectorDistances(context.Background(), []float32{1, 0, 0, 0}, []string{"1", "2"})
	require.NoError(t, err)
	assert.InDelta(t, 0.42, got["1"], 1e-9)
	_, ok := got["2"]
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatedAt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	ts := time.Date(2022, time.July, 9, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, created_at FROM ideas").
		WithArgs([]string{"1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("1", ts))

	got, err := repo.CreatedAt(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.True(t, got["1"].Equal(ts))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_CommitsTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	rec := idea.Record{ID: "9", Title: "Ledger", Score: 50}
	doc := idea.NewDocument(&rec)
	doc.Vector = []float32{1, 0, 0, 0}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ideas").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = repo.Upsert(context.Background(), []idea.Indexed{{Record: rec, Document: doc}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ExecErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ideas").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err = repo.Upsert(context.Background(), []idea.Indexed{{Record: idea.Record{ID: "9", Title: "x"}}})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 384)
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`embedding vector\(384\)`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock, 4)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
