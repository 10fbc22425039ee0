// Package facets applies facet selections to fused results and builds facet histograms.
package facets

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// DefaultBoostPerFacet is the score added for each matched facet value in boost mode.
const DefaultBoostPerFacet = 10

// CreatedAtFetcher reads authoritative creation times from the backing store.
type CreatedAtFetcher interface {
	CreatedAt(ctx context.Context, ids []string) (map[string]time.Time, error)
}

// Engine is the post-fusion facet filter.
type Engine struct {
	store         CreatedAtFetcher
	boostPerFacet int
	logger        *zap.Logger
}

// NewEngine creates an engine. boostPerFacet <= 0 uses DefaultBoostPerFacet.
func NewEngine(store CreatedAtFetcher, boostPerFacet int, logger *zap.Logger) *Engine {
	if boostPerFacet <= 0 {
		boostPerFacet = DefaultBoostPerFacet
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, boostPerFacet: boostPerFacet, logger: logger}
}

// Apply runs the selected mode. Hits must be in fused order; the result keeps that order
// in filter mode and orders by facet score (then fused order) in boost mode.
func (e *Engine) Apply(ctx context.Context, hits []result.Hit, f filter.Filters, m mode.Mode) ([]result.Hit, error) {
	if f.IsEmpty() || len(hits) == 0 {
		return hits, nil
	}

	var err error
	if f.HasYear() {
		if hits, err = e.refreshCreatedAt(ctx, hits); err != nil {
			return nil, err
		}
	}

	if m == mode.Boost {
		return e.boost(hits, f), nil
	}
	return e.filter(hits, f), nil
}

// filter keeps hits that satisfy every category (AND) with any of its values (OR).
func (e *Engine) filter(hits []result.Hit, f filter.Filters) []result.Hit {
	cats := f.Categories()
	years := f.Years()

	out := hits[:0:0]
	for _, h := range hits {
		rec := h.Record()
		ok := true
		for _, c := range cats {
			if matchCount(rec.FacetValues(c.Name), c.Values) == 0 {
				ok = false
				break
			}
		}
		if ok && len(years) > 0 && !slices.Contains(years, rec.Year()) {
			ok = false
		}
		if ok {
			out = append(out, h)
		}
	}
	return out
}

// boost scores boostPerFacet per matched facet value and drops hits with no match.
func (e *Engine) boost(hits []result.Hit, f filter.Filters) []result.Hit {
	cats := f.Categories()
	years := f.Years()

	out := make([]result.Hit, 0, len(hits))
	for _, h := range hits {
		rec := h.Record()
		var matched int
		for _, c := range cats {
			matched += matchCount(rec.FacetValues(c.Name), c.Values)
		}
		if len(years) > 0 && slices.Contains(years, rec.Year()) {
			matched++
		}
		if matched == 0 {
			continue
		}
		out = append(out, h.WithFacetScore(matched*e.boostPerFacet))
	}

	slices.SortStableFunc(out, func(a, b result.Hit) int {
		return cmp.Compare(b.FacetScore(), a.FacetScore())
	})
	return out
}

// refreshCreatedAt replaces each hit's creation time with the store's current value.
// Hits the store no longer has keep their cached time.
func (e *Engine) refreshCreatedAt(ctx context.Context, hits []result.Hit) ([]result.Hit, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID()
	}
	fresh, err := e.store.CreatedAt(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("refresh created_at: %w", err)
	}

	out := make([]result.Hit, len(hits))
	for i, h := range hits {
		ts, ok := fresh[h.ID()]
		if !ok {
			e.logger.Debug("created_at missing from store", zap.String("id", h.ID()))
			out[i] = h
			continue
		}
		rec := h.Record()
		rec.CreatedAt = ts
		out[i] = h.WithCreatedAt(rec)
	}
	return out, nil
}

// matchCount returns how many of want appear in have, case-insensitively.
func matchCount(have, want []string) int {
	var n int
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				n++
				break
			}
		}
	}
	return n
}
