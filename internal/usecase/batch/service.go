package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	dombatch "github.com/kailas-cloud/ideasearch/internal/domain/batch"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// DefaultBatchSize is the number of records embedded and written per batch.
const DefaultBatchSize = 100

// Service indexes idea records into the backing store in sequential batches.
type Service struct {
	store      Store
	embed      domain.BatchEmbedder
	dimensions int
	batchSize  int
	logger     *zap.Logger
}

// New creates a batch indexing service. embed may be nil to index without vectors;
// vectors whose length differs from dimensions are dropped.
func New(store Store, embed domain.BatchEmbedder, dimensions int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		embed:      embed,
		dimensions: dimensions,
		batchSize:  DefaultBatchSize,
		logger:     logger,
	}
}

// WithBatchSize configures the batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Index writes every valid row and reports one result per row, in input order.
// Rows that fail parsing or validation are logged and skipped. A store failure aborts the
// run and returns the results gathered so far.
func (s *Service) Index(ctx context.Context, rows []Row) ([]dombatch.Result, dombatch.Summary, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, dombatch.Summary{}, fmt.Errorf("ensure schema: %w", err)
	}

	results := make([]dombatch.Result, len(rows))
	pending := make([]int, 0, s.batchSize)
	batches := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batches++
		batch := make([]Row, len(pending))
		for j, i := range pending {
			batch[j] = rows[i]
		}
		if err := s.writeBatch(ctx, batch); err != nil {
			return fmt.Errorf("batch %d: %w", batches, err)
		}
		for _, i := range pending {
			results[i] = dombatch.NewOK(rows[i].Record.ID, rows[i].Line)
		}
		metrics.IndexedRecordsTotal.WithLabelValues(string(dombatch.StatusOK)).Add(float64(len(pending)))
		pending = pending[:0]
		return nil
	}

	for i, r := range rows {
		if r.Err != nil {
			s.logger.Warn("skipping idea row",
				zap.Int("line", r.Line),
				zap.String("id", r.Record.ID),
				zap.Error(r.Err),
			)
			results[i] = dombatch.NewSkipped(r.Record.ID, r.Line, r.Err)
			metrics.IndexedRecordsTotal.WithLabelValues(string(dombatch.StatusSkipped)).Inc()
			continue
		}
		pending = append(pending, i)
		if len(pending) == s.batchSize {
			if err := flush(); err != nil {
				done := settled(results)
				return done, dombatch.Summarize(done, batches), err
			}
		}
	}
	if err := flush(); err != nil {
		done := settled(results)
		return done, dombatch.Summarize(done, batches), err
	}

	summary := dombatch.Summarize(results, batches)
	s.logger.Info("indexing finished",
		zap.Int("indexed", summary.Indexed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("batches", summary.Batches),
	)
	return results, summary, nil
}

// writeBatch embeds the batch's documents and upserts them. An embedding failure indexes
// the batch without vectors.
func (s *Service) writeBatch(ctx context.Context, rows []Row) error {
	items := make([]idea.Indexed, len(rows))
	texts := make([]string, len(rows))
	for i := range rows {
		items[i] = idea.Indexed{Record: rows[i].Record, Document: idea.NewDocument(&rows[i].Record)}
		texts[i] = items[i].Document.Text
	}

	if s.embed != nil {
		res, err := s.embed.BatchEmbed(ctx, texts)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("embedding batch failed, indexing without vectors",
				zap.Int("records", len(rows)),
				zap.Error(err),
			)
		case len(res.Embeddings) != len(items):
			s.logger.Warn("embedding count mismatch, indexing without vectors",
				zap.Int("want", len(items)),
				zap.Int("got", len(res.Embeddings)),
			)
		default:
			for i, vec := range res.Embeddings {
				if s.dimensions > 0 && len(vec) != s.dimensions {
					s.logger.Warn("dropping vector with unexpected dimensions",
						zap.String("id", items[i].Record.ID),
						zap.String("provider", res.Provider),
						zap.Int("dims", len(vec)),
					)
					continue
				}
				items[i].Document.Vector = vec
			}
		}
	}

	if err := s.store.Upsert(ctx, items); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// settled returns the results that reached a final status, in input order.
func settled(results []dombatch.Result) []dombatch.Result {
	out := make([]dombatch.Result, 0, len(results))
	for _, r := range results {
		if r.Status() != "" {
			out = append(out, r)
		}
	}
	return out
}
