package ideasearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbPostgres "github.com/kailas-cloud/ideasearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/ideasearch/internal/db/redis"
	"github.com/kailas-cloud/ideasearch/internal/domain"
	dombatch "github.com/kailas-cloud/ideasearch/internal/domain/batch"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
	"github.com/kailas-cloud/ideasearch/internal/localembed"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
	ideasrepo "github.com/kailas-cloud/ideasearch/internal/repository/ideas"
	"github.com/kailas-cloud/ideasearch/internal/repository/pgideas"
	batchuc "github.com/kailas-cloud/ideasearch/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/ideasearch/internal/usecase/embedding"
	"github.com/kailas-cloud/ideasearch/internal/usecase/enhance"
	healthuc "github.com/kailas-cloud/ideasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ideasearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
	Facets(ctx context.Context) (result.Histograms, error)
}

type batchUseCase interface {
	Index(ctx context.Context, rows []batchuc.Row) ([]dombatch.Result, dombatch.Summary, error)
}

// ideaRepo is what the use cases need from the backing store.
type ideaRepo interface {
	searchuc.Repository
	batchuc.Store
}

// backend is an opened store.
type backend struct {
	repo   ideaRepo
	pinger healthuc.StorePinger
	close  func()
}

// Client is the ideasearch library entry point.
type Client struct {
	pinger    healthuc.StorePinger
	closeFn   func()
	searchSvc searchUseCase
	batchSvc  batchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		localDims: localembed.DefaultDimensions,
		batchSize: batchuc.DefaultBatchSize,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("ideasearch: store required (use WithValkey, WithRedis or WithPostgres)")
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg, p.dims)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(b, p, cfg, obs)
	if err != nil {
		b.close()
		return nil, err
	}
	return c, nil
}

// pipeline is the store-independent part of the client: provider chain and enhancer.
type pipeline struct {
	gateway        *embeddinguc.Gateway
	local          *localembed.Embedder
	indexer        domain.BatchEmbedder
	vectorProvider string
	dims           int
	providers      map[string]healthuc.ProviderChecker
	enhancer       *enhance.Enhancer
}

func newPipeline(cfg *clientConfig) (*pipeline, error) {
	local := localembed.New(cfg.localDims, localembed.NewCache(localembed.CacheConfig{}), metrics.LocalEmbeddingCacheTotal)

	chain := make([]embeddinguc.Strategy, 0, len(cfg.embedders)+1)
	for _, ne := range cfg.embedders {
		chain = append(chain, embeddinguc.Strategy{
			Name:       ne.name,
			Embedder:   embeddinguc.NewRetryingEmbedder(&embedderAdapter{inner: ne.emb}, ne.name, embeddinguc.DefaultRetryPolicy()),
			Dimensions: ne.dims,
		})
	}
	chain = append(chain, embeddinguc.Strategy{
		Name:       domain.ProviderLocal,
		Embedder:   local,
		Dimensions: local.Dimensions(),
	})

	gateway, err := embeddinguc.NewGateway(chain, nil)
	if err != nil {
		return nil, fmt.Errorf("ideasearch: %w", err)
	}

	vectorProvider := cfg.vectorProvider
	if vectorProvider == "" {
		vectorProvider = chain[0].Name
	}
	var indexer domain.BatchEmbedder
	for _, s := range chain {
		if s.Name == vectorProvider {
			indexer, _ = s.Embedder.(domain.BatchEmbedder)
		}
	}
	if indexer == nil {
		return nil, fmt.Errorf("ideasearch: vector provider %q: %w", vectorProvider, domain.ErrUnknownProvider)
	}

	providers := make(map[string]healthuc.ProviderChecker, len(chain))
	for _, s := range chain {
		if hc, ok := s.Embedder.(healthuc.ProviderChecker); ok {
			providers[s.Name] = hc
		}
	}

	var ai *enhance.AI
	if cfg.completer != nil {
		ai, err = enhance.NewAI(cfg.completer, cfg.enhanceTimeout, 0)
		if err != nil {
			return nil, fmt.Errorf("ideasearch: %w", err)
		}
	}

	return &pipeline{
		gateway:        gateway,
		local:          local,
		indexer:        indexer,
		vectorProvider: vectorProvider,
		dims:           gateway.Dimensions(vectorProvider),
		providers:      providers,
		enhancer:       enhance.New(enhance.NewRules(enhance.DefaultDictionary()), ai, nil),
	}, nil
}

func openBackend(ctx context.Context, cfg *clientConfig, dims int) (backend, error) {
	switch cfg.driver {
	case "postgres":
		pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return backend{}, fmt.Errorf("ideasearch: create postgres pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, defaultReadinessTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return backend{}, fmt.Errorf("ideasearch: database not ready: %w", err)
		}
		return backend{repo: pgideas.New(pool, dims), pinger: pool, close: pool.Close}, nil

	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return backend{}, fmt.Errorf("ideasearch: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return backend{}, fmt.Errorf("ideasearch: database not ready: %w", err)
		}
		repo := ideasrepo.New(s, ideasrepo.Config{
			IndexName:        "ideasearch:ideas:idx",
			KeyPrefix:        "ideasearch:idea:",
			VectorDimensions: dims,
		})
		return backend{repo: repo, pinger: s, close: s.Close}, nil

	default:
		return backend{}, fmt.Errorf("ideasearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(b backend, p *pipeline, cfg *clientConfig, obs *observer) (*Client, error) {
	if b.repo == nil || b.pinger == nil {
		return nil, errors.New("ideasearch: incomplete backend")
	}
	nop := zap.NewNop()

	searchSvc := searchuc.New(b.repo, p.gateway, p.local, p.enhancer, searchuc.Config{
		VectorProvider: p.vectorProvider,
		LocalProvider:  domain.ProviderLocal,
		TolerateOutage: cfg.tolerateOutage,
	}, nop)
	batchSvc := batchuc.New(b.repo, p.indexer, p.dims, nop).WithBatchSize(cfg.batchSize)
	healthSvc := healthuc.New(b.pinger, p.providers, nop)

	return &Client{
		pinger:    b.pinger,
		closeFn:   b.close,
		searchSvc: searchSvc,
		batchSvc:  batchSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
