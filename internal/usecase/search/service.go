package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/query"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/source"
	logpkg "github.com/kailas-cloud/ideasearch/internal/logger"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
	"github.com/kailas-cloud/ideasearch/internal/usecase/facets"
	"github.com/kailas-cloud/ideasearch/internal/usecase/guard"
	"github.com/kailas-cloud/ideasearch/internal/usecase/ranking"
)

// Algorithm names the ranking recipe reported in page metadata.
const Algorithm = "bm25+rrf+weighted"

// FacetSampleSize bounds how many records the facet overview counts.
const FacetSampleSize = 1000

// DefaultCandidateLimit caps lexical candidate retrieval when none is configured.
const DefaultCandidateLimit = 150

// Config tunes the pipeline.
type Config struct {
	CandidateLimit int
	Fuser          ranking.Fuser
	BM25           ranking.BM25Params
	BoostPerFacet  int
	// VectorProvider is the provider whose vectors the store holds.
	VectorProvider string
	// LocalProvider is the chain name of the local embedder.
	LocalProvider string
	// TolerateOutage degrades to lexical-only ranking when every provider fails.
	TolerateOutage bool
}

// Service runs the hybrid idea ranking pipeline.
type Service struct {
	repo     Repository
	gateway  Gateway
	local    LocalEmbedder
	enhancer Enhancer
	facets   *facets.Engine
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service. local may be nil when no local embedder is configured.
func New(
	repo Repository, gateway Gateway, local LocalEmbedder, enhancer Enhancer,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.Fuser.K <= 0 {
		cfg.Fuser = ranking.NewFuser(ranking.DefaultRRFK, ranking.DefaultWeights())
	}
	if cfg.BM25 == (ranking.BM25Params{}) {
		cfg.BM25 = ranking.DefaultBM25()
	}
	if cfg.LocalProvider == "" {
		cfg.LocalProvider = domain.ProviderLocal
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		gateway:  gateway,
		local:    local,
		enhancer: enhancer,
		facets:   facets.NewEngine(repo, cfg.BoostPerFacet, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// retrieval holds what the concurrent lexical and embedding stages produced.
type retrieval struct {
	candidates []idea.Record
	lexical    []float64
	embedding  domain.EmbeddingResult
	embedErr   error
}

// Search ranks ideas for req and returns one page of hits.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	start := time.Now()
	log := logpkg.FromContextOr(ctx, s.logger)

	verdict := guard.Check(req.Query())
	observe("guard", start)
	if verdict.Garbage {
		metrics.GarbageQueriesTotal.Inc()
		log.Debug("garbage query rejected",
			zap.Error(fmt.Errorf("%w: %s", domain.ErrGarbageQuery, verdict.Reason)))
		page := result.Empty(source.None)
		page.Query = query.New(req.Query(), req.Query(), nil, nil, 0, false)
		return s.finish(page), nil
	}

	stage := time.Now()
	env := s.enhancer.Enhance(ctx, req.Query(), req.Themes())
	observe("enhance", stage)

	terms := env.SearchTerms()
	if len(terms) == 0 {
		page := result.Empty(source.None)
		page.Query = env
		return s.finish(page), nil
	}
	if err := ctx.Err(); err != nil {
		return result.Page{}, err
	}

	f := req.Filters()
	if y, ok := env.Year(); ok && !f.HasYear() {
		f = f.WithYear(y)
	}

	r, err := s.retrieve(ctx, req, env, terms, f)
	if err != nil {
		return result.Page{}, err
	}
	if r.embedErr == nil {
		domain.UsageFromContext(ctx).Record(r.embedding)
	}

	meta := result.Metadata{
		Algorithm:      Algorithm,
		CandidateCount: len(r.candidates),
		QueryTermCount: len(terms),
		AIEnhanced:     env.AIEnhanced(),
	}

	if len(r.candidates) == 0 {
		page := result.Empty(source.Database)
		page.Query = env
		page.Metadata = meta
		page.Metadata.Weights = s.cfg.Fuser.Weights
		return s.finish(page), nil
	}

	stage = time.Now()
	vector, err := s.vectorScores(ctx, r)
	observe("vector", stage)
	if err != nil {
		return result.Page{}, err
	}

	lexical := r.lexical
	if allZero(lexical) && vector != nil {
		lexical = nil
		meta.Degraded = true
		metrics.DegradedSearchesTotal.WithLabelValues("lexical").Inc()
		log.Warn("ranking without lexical signal",
			zap.Error(domain.ErrScoringDegraded),
			zap.Int("candidates", len(r.candidates)),
		)
	}
	if vector == nil {
		meta.Degraded = true
		metrics.DegradedSearchesTotal.WithLabelValues("vector").Inc()
		log.Warn("ranking without vector signal",
			zap.Error(domain.ErrScoringDegraded),
			zap.String("provider", r.embedding.Provider),
		)
	} else {
		meta.Provider = r.embedding.Provider
		meta.EmbeddingDimensions = len(r.embedding.Embedding)
	}
	meta.Weights = s.cfg.Fuser.EffectiveWeights(lexical != nil, vector != nil)

	stage = time.Now()
	scores := s.cfg.Fuser.Fuse(lexical, vector)
	hits := make([]result.Hit, 0, len(scores))
	for _, i := range ranking.Order(scores) {
		hits = append(hits, result.New(r.candidates[i], scores[i]))
	}
	observe("fusion", stage)

	stage = time.Now()
	hits, err = s.facets.Apply(ctx, hits, f, req.Mode())
	observe("facets", stage)
	if err != nil {
		return result.Page{}, fmt.Errorf("apply facets: %w", err)
	}

	page := result.Page{
		Hits:     paginate(hits, req.Offset(), req.Limit()),
		Total:    len(hits),
		Source:   sourceOf(lexical, vector),
		Facets:   facets.Histograms(hits),
		Metadata: meta,
		Query:    env,
	}

	log.Debug("search ranked",
		zap.String("source", string(page.Source)),
		zap.Int("candidates", meta.CandidateCount),
		zap.Int("total", page.Total),
		zap.Bool("degraded", meta.Degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return s.finish(page), nil
}

// Facets returns value counts over a sample of the stored ideas.
func (s *Service) Facets(ctx context.Context) (result.Histograms, error) {
	recs, err := s.repo.Sample(ctx, FacetSampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample ideas: %w", err)
	}
	return facets.RecordHistograms(recs), nil
}

// retrieve runs lexical candidate retrieval and query embedding concurrently.
func (s *Service) retrieve(
	ctx context.Context, req *request.Request, env query.Envelope, terms []string, f filter.Filters,
) (retrieval, error) {
	var r retrieval

	// boost mode ranks over the unfiltered candidate set
	storeFilters := f
	if req.Mode() == mode.Boost {
		storeFilters = filter.Filters{}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		defer observe("candidates", start)

		recs, err := s.repo.Candidates(gctx, terms, storeFilters, s.cfg.CandidateLimit)
		if err != nil {
			return fmt.Errorf("retrieve candidates: %w", err)
		}
		texts := make([]string, len(recs))
		for i := range recs {
			texts[i] = idea.NewDocument(&recs[i]).Text
		}
		r.candidates = recs
		r.lexical = ranking.BM25Plus(terms, ranking.Documents(texts), s.cfg.BM25)
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		defer observe("embedding", start)

		res, err := s.gateway.Embed(gctx, env.EmbeddingText(), req.ProviderHint())
		if err == nil {
			r.embedding = res
			return nil
		}
		if s.cfg.TolerateOutage && errors.Is(err, domain.ErrEmbeddingUnavailable) && gctx.Err() == nil {
			logpkg.FromContextOr(ctx, s.logger).Warn("embedding unavailable, ranking lexically", zap.Error(err))
			r.embedErr = err
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return retrieval{}, err
	}
	return r, nil
}

// vectorScores maps the query vector to per-candidate similarities. A nil slice means the
// vector signal is missing.
func (s *Service) vectorScores(ctx context.Context, r retrieval) ([]float64, error) {
	if r.embedErr != nil || len(r.embedding.Embedding) == 0 {
		return nil, nil
	}

	switch {
	case r.embedding.Provider == s.cfg.VectorProvider:
		ids := make([]string, len(r.candidates))
		for i := range r.candidates {
			ids[i] = r.candidates[i].ID
		}
		dists, err := s.repo.VectorDistances(ctx, r.embedding.Embedding, ids)
		if err != nil {
			return nil, fmt.Errorf("vector distances: %w", err)
		}
		out := make([]float64, len(ids))
		for i, id := range ids {
			if d, ok := dists[id]; ok {
				out[i] = ranking.DistanceToSimilarity(d)
			}
		}
		return out, nil

	case r.embedding.Provider == s.cfg.LocalProvider && s.local != nil:
		out := make([]float64, len(r.candidates))
		for i := range r.candidates {
			doc, err := s.local.Embed(ctx, idea.NewDocument(&r.candidates[i]).Text)
			if err != nil {
				return nil, fmt.Errorf("embed candidate %s: %w", r.candidates[i].ID, err)
			}
			out[i] = ranking.Cosine(r.embedding.Embedding, doc.Embedding)
		}
		return out, nil

	default:
		logpkg.FromContextOr(ctx, s.logger).Warn("query vector not comparable with stored vectors",
			zap.String("provider", r.embedding.Provider),
			zap.String("store_provider", s.cfg.VectorProvider),
		)
		return nil, nil
	}
}

func (s *Service) finish(page result.Page) result.Page {
	metrics.SearchesTotal.WithLabelValues(string(page.Source)).Inc()
	return page
}

func sourceOf(lexical, vector []float64) source.Source {
	switch {
	case vector == nil:
		return source.Database
	case lexical == nil:
		return source.Semantic
	default:
		return source.Hybrid
	}
}

func paginate(hits []result.Hit, offset, limit int) []result.Hit {
	if offset >= len(hits) {
		return []result.Hit{}
	}
	end := min(offset+limit, len(hits))
	return hits[offset:end]
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func observe(stage string, start time.Time) {
	metrics.SearchStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
