package chi

import (
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain/query"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query    string        `json:"query"`
	Provider string        `json:"provider,omitempty"`
	Filters  *FilterParams `json:"filters,omitempty"`
	Mode     string        `json:"mode,omitempty"`
	Limit    *int          `json:"limit,omitempty"`
	Offset   *int          `json:"offset,omitempty"`
	Themes   []string      `json:"themes,omitempty"`
}

// FilterParams are the facet selections of a search.
type FilterParams struct {
	Domain        []string            `json:"domain,omitempty"`
	BusinessGroup []string            `json:"business_group,omitempty"`
	TechStack     []string            `json:"tech_stack,omitempty"`
	BuildPhase    []string            `json:"build_phase,omitempty"`
	Year          []int               `json:"year,omitempty"`
	Extra         map[string][]string `json:"extra,omitempty"`
}

// SearchResponse is one ranked page.
type SearchResponse struct {
	Results  []HitResponse     `json:"results"`
	Total    int               `json:"total"`
	Source   string            `json:"source"`
	Facets   result.Histograms `json:"facets"`
	Metadata result.Metadata   `json:"metadata"`
	Query    QueryResponse     `json:"query"`
}

// HitResponse is one ranked idea.
type HitResponse struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Summary       string         `json:"summary"`
	Domain        string         `json:"domain,omitempty"`
	BusinessGroup string         `json:"business_group,omitempty"`
	TechStack     []string       `json:"tech_stack,omitempty"`
	BuildPhase    string         `json:"build_phase,omitempty"`
	PrototypeURL  string         `json:"prototype_url,omitempty"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	Score         int            `json:"score"`
	FacetScore    int            `json:"facet_score,omitempty"`
	Scores        ScoresResponse `json:"scores"`
}

// ScoresResponse exposes every ranking signal of a hit.
type ScoresResponse struct {
	Lexical  float64 `json:"lexical"`
	Vector   float64 `json:"vector"`
	RRF      float64 `json:"rrf"`
	Weighted float64 `json:"weighted"`
}

// QueryResponse describes how the query text was interpreted.
type QueryResponse struct {
	Raw        string   `json:"raw"`
	Corrected  string   `json:"corrected,omitempty"`
	Terms      []string `json:"terms"`
	Expanded   []string `json:"expanded"`
	Year       int      `json:"year,omitempty"`
	AIEnhanced bool     `json:"ai_enhanced"`
}

// FacetsResponse is the body of GET /v1/facets.
type FacetsResponse struct {
	Facets result.Histograms `json:"facets"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchRequestFromBody(body SearchRequest) (request.Request, error) {
	f, err := filtersFromParams(body.Filters)
	if err != nil {
		return request.Request{}, err
	}
	return request.New( //nolint:wrapcheck // validation errors are returned as-is
		body.Query,
		body.Provider,
		f,
		mode.Mode(body.Mode),
		derefInt(body.Limit),
		derefInt(body.Offset),
		body.Themes,
	)
}

func filtersFromParams(p *FilterParams) (filter.Filters, error) {
	if p == nil {
		return filter.Filters{}, nil
	}
	return filter.New(p.Domain, p.BusinessGroup, p.TechStack, p.BuildPhase, p.Year, p.Extra) //nolint:wrapcheck // validation
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// NewSearchResponse renders a ranked page in its wire form.
func NewSearchResponse(page *result.Page) SearchResponse {
	items := make([]HitResponse, len(page.Hits))
	for i := range page.Hits {
		items[i] = hitToResponse(&page.Hits[i])
	}
	facets := page.Facets
	if facets == nil {
		facets = result.Histograms{}
	}
	return SearchResponse{
		Results:  items,
		Total:    page.Total,
		Source:   string(page.Source),
		Facets:   facets,
		Metadata: page.Metadata,
		Query:    queryToResponse(page.Query),
	}
}

func hitToResponse(h *result.Hit) HitResponse {
	rec := h.Record()
	s := h.Scores()
	item := HitResponse{
		ID:            rec.ID,
		Title:         rec.Title,
		Summary:       rec.Summary,
		Domain:        rec.Domain,
		BusinessGroup: rec.BusinessGroup,
		TechStack:     rec.TechStack,
		BuildPhase:    rec.BuildPhase,
		PrototypeURL:  rec.PrototypeURL,
		Score:         h.Score(),
		FacetScore:    h.FacetScore(),
		Scores:        ScoresResponse{Lexical: s.Lexical, Vector: s.Vector, RRF: s.RRF, Weighted: s.Weighted},
	}
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt.UTC()
		item.CreatedAt = &t
	}
	return item
}

func queryToResponse(env query.Envelope) QueryResponse {
	year, _ := env.Year()
	terms, expanded := env.Terms(), env.Expanded()
	if terms == nil {
		terms = []string{}
	}
	if expanded == nil {
		expanded = []string{}
	}
	return QueryResponse{
		Raw:        env.Raw(),
		Corrected:  env.Corrected(),
		Terms:      terms,
		Expanded:   expanded,
		Year:       year,
		AIEnhanced: env.AIEnhanced(),
	}
}
