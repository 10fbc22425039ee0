package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/config"
	"github.com/kailas-cloud/ideasearch/internal/db"
	dbPostgres "github.com/kailas-cloud/ideasearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/ideasearch/internal/db/redis"
	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
	"github.com/kailas-cloud/ideasearch/internal/localembed"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
	"github.com/kailas-cloud/ideasearch/internal/repository/embcache"
	ideasrepo "github.com/kailas-cloud/ideasearch/internal/repository/ideas"
	"github.com/kailas-cloud/ideasearch/internal/repository/pgideas"
	"github.com/kailas-cloud/ideasearch/internal/transport/llm"
	ollamaEmb "github.com/kailas-cloud/ideasearch/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/ideasearch/internal/transport/openai"
	batchuc "github.com/kailas-cloud/ideasearch/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/ideasearch/internal/usecase/embedding"
	"github.com/kailas-cloud/ideasearch/internal/usecase/enhance"
	healthuc "github.com/kailas-cloud/ideasearch/internal/usecase/health"
	"github.com/kailas-cloud/ideasearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/ideasearch/internal/usecase/search"
)

// ideaRepo is what the search and batch use cases need from the backing store.
type ideaRepo interface {
	searchuc.Repository
	batchuc.Store
	Count(ctx context.Context) (int, error)
}

// app is the wired object graph.
type app struct {
	repo   ideaRepo
	search *searchuc.Service
	batch  *batchuc.Service
	health *healthuc.Service
	close  func()
}

// buildApp is the composition root: store, embedder chain, enhancer and use cases.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	logger.Info("Connecting to store",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	st, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	local := localembed.New(
		cfg.LocalEmbedder.Dimensions,
		localembed.NewCache(localembed.CacheConfig{
			MaxEntries: cfg.LocalEmbedder.CacheMaxEntries,
			EvictBatch: cfg.LocalEmbedder.CacheEvictBatch,
			KeyChars:   cfg.LocalEmbedder.CacheKeyChars,
		}),
		metrics.LocalEmbeddingCacheTotal,
	)

	strategies, err := buildStrategies(cfg, local, st.kv, logger)
	if err != nil {
		st.close()
		return nil, err
	}

	chain := make([]embeddinguc.Strategy, 0, len(cfg.Embedding.Chain))
	for _, name := range cfg.Embedding.Chain {
		chain = append(chain, strategies[name])
	}
	gateway, err := embeddinguc.NewGateway(chain, logger)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("build embedding gateway: %w", err)
	}

	enhancer, err := buildEnhancer(&cfg.Enhancer, logger)
	if err != nil {
		st.close()
		return nil, err
	}

	searchSvc := searchuc.New(st.repo, gateway, local, enhancer, searchuc.Config{
		CandidateLimit: cfg.Search.CandidateLimit,
		Fuser: ranking.NewFuser(cfg.Search.RRFK, result.Weights{
			Lexical: cfg.Search.LexicalWeight,
			Vector:  cfg.Search.VectorWeight,
			RRF:     cfg.Search.RRFWeight,
		}),
		BoostPerFacet:  cfg.Search.BoostPerFacet,
		VectorProvider: cfg.Database.VectorProvider,
		LocalProvider:  localProviderName(cfg),
		TolerateOutage: cfg.Embedding.TolerateOutage,
	}, logger)

	// Documents are embedded by the store's provider only, so every stored vector shares one space.
	indexer := strategies[cfg.Database.VectorProvider]
	batchSvc := batchuc.New(st.repo, asBatchEmbedder(indexer.Embedder), cfg.Database.VectorDimensions, logger).
		WithBatchSize(cfg.Indexing.BatchSize)

	providers := make(map[string]healthuc.ProviderChecker, len(chain))
	for _, s := range chain {
		if hc, ok := s.Embedder.(healthuc.ProviderChecker); ok {
			providers[s.Name] = hc
		}
	}
	healthSvc := healthuc.New(st.pinger, providers, logger)

	logger.Info("Pipeline ready",
		zap.Strings("embedding_chain", gateway.Providers()),
		zap.String("vector_provider", cfg.Database.VectorProvider),
		zap.Int("vector_dimensions", cfg.Database.VectorDimensions),
		zap.Bool("ai_enhancer", cfg.Enhancer.AIEnabled),
	)

	return &app{repo: st.repo, search: searchSvc, batch: batchSvc, health: healthSvc, close: st.close}, nil
}

// store bundles the driver-specific handles the use cases consume.
type store struct {
	repo   ideaRepo
	pinger healthuc.StorePinger
	// kv backs the remote embedding cache; nil when the driver has no key-value store.
	kv    db.KVStore
	close func()
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (store, error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	if cfg.IsPostgres() {
		pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return store{}, fmt.Errorf("create postgres pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return store{}, fmt.Errorf("postgres not ready: %w", err)
		}
		return store{
			repo:   pgideas.New(pool, cfg.VectorDimensions),
			pinger: pool,
			close:  pool.Close,
		}, nil
	}

	// valkey speaks the same protocol and search module commands as redis
	rs, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		return store{}, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := rs.WaitForReady(ctx, readiness); err != nil {
		rs.Close()
		return store{}, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	return store{
		repo: ideasrepo.New(rs, ideasrepo.Config{
			IndexName:        cfg.IndexName,
			KeyPrefix:        cfg.KeyPrefix,
			VectorDimensions: cfg.VectorDimensions,
		}),
		pinger: rs,
		kv:     rs,
		close:  rs.Close,
	}, nil
}

// buildStrategies wraps every configured provider:
// transport -> Retrying -> Instrumented -> Cached (remote providers with a KV store).
func buildStrategies(
	cfg *config.Config, local *localembed.Embedder, kv db.KVStore, logger *zap.Logger,
) (map[string]embeddinguc.Strategy, error) {
	policy := embeddinguc.RetryPolicy{
		Attempts:  cfg.Embedding.Retry.Attempts,
		BaseDelay: time.Duration(cfg.Embedding.Retry.BaseDelaySec) * time.Second,
	}

	out := make(map[string]embeddinguc.Strategy, len(cfg.Embedding.Providers))
	for name, p := range cfg.Embedding.Providers {
		if p.Type == config.ProviderTypeLocal {
			out[name] = embeddinguc.Strategy{
				Name:       name,
				Embedder:   embeddinguc.NewInstrumentedEmbedder(local, name, "hashing", logger),
				Dimensions: local.Dimensions(),
			}
			continue
		}

		var base domain.Embedder
		switch p.Type {
		case config.ProviderTypeOpenAI:
			base = openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:     p.APIKey,
				BaseURL:    p.BaseURL,
				Model:      p.Model,
				Dimensions: p.Dimensions,
				Provider:   name,
				Logger:     logger,
			})
		case config.ProviderTypeOllama:
			e, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
				BaseURL:    p.BaseURL,
				APIKey:     p.APIKey,
				Model:      p.Model,
				Dimensions: p.Dimensions,
				Provider:   name,
				Logger:     logger,
			})
			if err != nil {
				return nil, fmt.Errorf("create provider %s: %w", name, err)
			}
			base = e
		default:
			return nil, fmt.Errorf("provider %s: %w: %q", name, domain.ErrUnknownProvider, p.Type)
		}

		var e domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
			embeddinguc.NewRetryingEmbedder(base, name, policy), name, p.Model, logger,
		)
		if kv != nil && cfg.Embedding.Cache.Enabled {
			e = embcache.New(e, kv, embcache.Config{
				Provider: name,
				TTL:      time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second,
			}, metrics.EmbeddingCacheTotal, logger)
		}
		out[name] = embeddinguc.Strategy{Name: name, Embedder: e, Dimensions: p.Dimensions}
	}
	return out, nil
}

func buildEnhancer(cfg *config.EnhancerConfig, logger *zap.Logger) (*enhance.Enhancer, error) {
	rules := enhance.NewRules(enhance.DefaultDictionary())
	if !cfg.AIEnabled {
		return enhance.New(rules, nil, logger), nil
	}

	client, err := llm.New(llm.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create enhancer client: %w", err)
	}
	ai, err := enhance.NewAI(client, time.Duration(cfg.TimeoutSec)*time.Second, cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create ai enhancer: %w", err)
	}
	return enhance.New(rules, ai, logger), nil
}

// localProviderName is the chain name under which the local embedder is configured.
func localProviderName(cfg *config.Config) string {
	for _, name := range cfg.Embedding.Chain {
		if cfg.Embedding.Providers[name].Type == config.ProviderTypeLocal {
			return name
		}
	}
	return domain.ProviderLocal
}

func asBatchEmbedder(e domain.Embedder) domain.BatchEmbedder {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be
	}
	return batchFallback{e}
}

type batchFallback struct{ domain.Embedder }

func (b batchFallback) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, b.Embedder, texts) //nolint:wrapcheck // passthrough
}
