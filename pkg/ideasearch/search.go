package ideasearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// Search ranks stored ideas for q and returns one page.
func (c *Client) Search(ctx context.Context, q Query) (page Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := toRequest(&q)
	if err != nil {
		return Page{}, err
	}
	p, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return fromPage(&p), nil
}

// Facets returns value counts over a sample of the stored ideas.
func (c *Client) Facets(ctx context.Context) (facets map[string][]Bucket, err error) {
	start := time.Now()
	defer func() { c.obs.observe("facets", start, err) }()

	h, err := c.searchSvc.Facets(ctx)
	if err != nil {
		return nil, fmt.Errorf("facets: %w", err)
	}
	return h, nil
}

func toRequest(q *Query) (request.Request, error) {
	f, err := filter.New(
		q.Filters.Domain, q.Filters.BusinessGroup, q.Filters.TechStack, q.Filters.BuildPhase,
		q.Filters.Years, q.Filters.Extra,
	)
	if err != nil {
		return request.Request{}, err //nolint:wrapcheck // validation errors are returned as-is
	}
	return request.New(q.Text, q.Provider, f, mode.Mode(q.Mode), q.Limit, q.Offset, q.Themes) //nolint:wrapcheck // validation
}

func fromPage(p *result.Page) Page {
	hits := make([]Hit, len(p.Hits))
	for i := range p.Hits {
		h := &p.Hits[i]
		s := h.Scores()
		hits[i] = Hit{
			Idea:       h.Record(),
			Score:      h.Score(),
			FacetScore: h.FacetScore(),
			Lexical:    s.Lexical,
			Vector:     s.Vector,
			RRF:        s.RRF,
			Weighted:   s.Weighted,
		}
	}
	facets := map[string][]Bucket(p.Facets)
	if facets == nil {
		facets = map[string][]Bucket{}
	}
	return Page{
		Hits:      hits,
		Total:     p.Total,
		Source:    Source(p.Source),
		Facets:    facets,
		Provider:  p.Metadata.Provider,
		Degraded:  p.Metadata.Degraded,
		Terms:     p.Query.Terms(),
		Expanded:  p.Query.Expanded(),
		Corrected: p.Query.Corrected(),
	}
}
