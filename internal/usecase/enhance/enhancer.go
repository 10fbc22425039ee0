// Package enhance turns a raw query into a query.Envelope: normalized, spell-corrected and
// expanded with related terms, by rules or with the help of a completion model.
package enhance

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/domain/query"
	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

// Enhancer runs the AI path when configured and falls back to rules on any failure.
type Enhancer struct {
	rules  *Rules
	ai     *AI
	logger *zap.Logger
}

// New creates an enhancer. ai may be nil.
func New(rules *Rules, ai *AI, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{rules: rules, ai: ai, logger: logger}
}

// Enhance builds the envelope for raw. themes are external keywords added as extra terms.
func (e *Enhancer) Enhance(ctx context.Context, raw string, themes []string) query.Envelope {
	base := e.rules.Enhance(raw)

	if e.ai == nil {
		metrics.QueryEnhancementsTotal.WithLabelValues("rules").Inc()
		return withExtra(base, nil, themes, false)
	}

	terms, err := e.ai.Terms(ctx, raw)
	if err != nil {
		metrics.QueryEnhancementsTotal.WithLabelValues("ai_fallback").Inc()
		e.logger.Warn("AI query expansion failed, using rules", zap.Error(err))
		return withExtra(base, nil, themes, false)
	}

	metrics.QueryEnhancementsTotal.WithLabelValues("ai").Inc()
	e.logger.Debug("AI query expansion",
		zap.String("query", raw),
		zap.Strings("terms", terms),
	)
	return withExtra(base, terms, themes, true)
}

// withExtra appends ai terms and themes to base's expansions, skipping duplicates and
// the stated year (carried separately by the envelope).
func withExtra(base query.Envelope, aiTerms, themes []string, aiEnhanced bool) query.Envelope {
	year, _ := base.Year()
	yearText := ""
	if year > 0 {
		yearText = strconv.Itoa(year)
	}

	terms := base.Terms()
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		seen[t] = struct{}{}
	}

	var expanded []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == yearText {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		expanded = append(expanded, t)
	}
	for _, t := range aiTerms {
		add(t)
	}
	for _, t := range base.Expanded() {
		add(t)
	}
	for _, t := range themes {
		add(t)
	}

	return query.New(base.Raw(), base.Corrected(), terms, expanded, year, aiEnhanced)
}
