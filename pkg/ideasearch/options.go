package ideasearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "postgres"
	addrs    []string
	password string
	dsn      string

	embedders      []namedEmbedder
	vectorProvider string
	localDims      int
	tolerateOutage bool

	completer      Completer
	enhanceTimeout time.Duration

	batchSize int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

type namedEmbedder struct {
	name string
	emb  Embedder
	dims int
}

// WithValkey stores ideas in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores ideas in a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres stores ideas in Postgres. The pgvector extension must be installable.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithEmbedder appends a remote provider to the embedding chain. Providers are tried in the
// order they were added; the local embedder always comes last. dims is the vector length
// the provider must return.
func WithEmbedder(name string, e Embedder, dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedders = append(c.embedders, namedEmbedder{name: name, emb: e, dims: dims})
	})
}

// WithVectorProvider names the provider whose vectors the store holds.
// Defaults to the first provider of the chain.
func WithVectorProvider(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorProvider = name
	})
}

// WithLocalDimensions sets the local embedder's vector length. Default: 384.
func WithLocalDimensions(dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.localDims = dims
	})
}

// WithOutageTolerance ranks lexically instead of failing when every provider is down.
func WithOutageTolerance() Option {
	return optionFunc(func(c *clientConfig) {
		c.tolerateOutage = true
	})
}

// WithCompleter enables AI query expansion. timeout bounds each completion call.
func WithCompleter(cm Completer, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
		c.enhanceTimeout = timeout
	})
}

// WithBatchSize sets the number of ideas embedded and written per batch. Default: 100.
func WithBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
