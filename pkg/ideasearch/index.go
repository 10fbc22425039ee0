package ideasearch

import (
	"context"
	"fmt"
	"io"
	"time"

	dombatch "github.com/kailas-cloud/ideasearch/internal/domain/batch"
	batchuc "github.com/kailas-cloud/ideasearch/internal/usecase/batch"
)

// Index validates, embeds and upserts ideas. Invalid ideas are skipped and reported;
// Line is the 1-based position in ideas. A store failure stops the run and returns the
// results gathered so far together with the error.
func (c *Client) Index(ctx context.Context, ideas []Idea) (results []IndexResult, summary IndexSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index", start, err) }()

	rows := make([]batchuc.Row, len(ideas))
	for i := range ideas {
		rows[i] = batchuc.Row{Line: i + 1, Record: ideas[i], Err: ideas[i].Validate()}
	}
	return c.index(ctx, rows)
}

// IndexCSV reads an ideas export with a header row and indexes every row.
// Lines are CSV line numbers.
func (c *Client) IndexCSV(ctx context.Context, r io.Reader) (results []IndexResult, summary IndexSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_csv", start, err) }()

	rows, err := batchuc.ReadCSV(r)
	if err != nil {
		return nil, IndexSummary{}, fmt.Errorf("read csv: %w", err)
	}
	return c.index(ctx, rows)
}

func (c *Client) index(ctx context.Context, rows []batchuc.Row) ([]IndexResult, IndexSummary, error) {
	res, sum, err := c.batchSvc.Index(ctx, rows)
	out := make([]IndexResult, len(res))
	for i, r := range res {
		out[i] = IndexResult{
			ID:   r.ID(),
			Line: r.Line(),
			OK:   r.Status() == dombatch.StatusOK,
			Err:  r.Err(),
		}
	}
	summary := IndexSummary{Indexed: sum.Indexed, Skipped: sum.Skipped, Batches: sum.Batches}
	if err != nil {
		return out, summary, fmt.Errorf("index: %w", err)
	}
	return out, summary, nil
}
