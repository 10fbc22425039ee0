package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// Retry defaults.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// RetryPolicy retries a provider call with exponential backoff: the wait after failed
// attempt n (0-based) is BaseDelay·2^n, without jitter.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// OnRetry is called with the failed attempt's error and the wait before the next one.
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetryPolicy returns 3 attempts with 1s, 2s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	if ceiling := p.BaseDelay << p.attempts(); ceiling > bo.MaxInterval {
		bo.MaxInterval = ceiling
	}
	return bo
}

// Retryable reports whether err can succeed on another attempt against the same provider.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrVectorDimMismatch) {
		return false
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return true
}

// do runs fn under the policy. provider labels the retry counter.
func do[T any](ctx context.Context, p RetryPolicy, provider string, fn func(context.Context) (T, error)) (T, error) {
	op := func() (T, error) {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, backoff.Permanent(err)
		}
		res, err := fn(ctx)
		if err != nil && !Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, wait time.Duration) {
		metrics.EmbeddingRetriesTotal.WithLabelValues(provider).Inc()
		if p.OnRetry != nil {
			p.OnRetry(err, wait)
		}
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.attempts())),
		backoff.WithNotify(notify),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

// RetryingEmbedder applies a RetryPolicy to every call of the wrapped provider.
type RetryingEmbedder struct {
	inner    domain.Embedder
	provider string
	policy   RetryPolicy
}

// NewRetryingEmbedder wraps inner with policy.
func NewRetryingEmbedder(inner domain.Embedder, provider string, policy RetryPolicy) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, provider: provider, policy: policy}
}

// Embed implements domain.Embedder.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return do(ctx, r.policy, r.provider, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return r.inner.Embed(ctx, text)
	})
}

// BatchEmbed implements domain.BatchEmbedder. The whole batch is retried as one unit.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return do(ctx, r.policy, r.provider, func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
		if be, ok := r.inner.(domain.BatchEmbedder); ok {
			return be.BatchEmbed(ctx, texts)
		}
		return domain.BatchFallback(ctx, r.inner, texts)
	})
}

// HealthCheck delegates when the wrapped provider supports it.
func (r *RetryingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
