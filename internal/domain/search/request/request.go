package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
	MaxOffset      = 10000
	// MaxThemes caps externally supplied theme keywords.
	MaxThemes = 20
)

// Request is a validated search query.
type Request struct {
	query        string
	providerHint string
	filters      filter.Filters
	filterMode   mode.Mode
	limit        int
	offset       int
	themes       []string
}

// New validates and normalizes search parameters.
// Defaults: mode=filter, limit=20. Whitespace-only queries are rejected.
func New(
	query, providerHint string,
	filters filter.Filters,
	m mode.Mode,
	limit, offset int,
	themes []string,
) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, domain.NewValidation("query", "must not be empty")
	}
	if len(query) > MaxQueryLength {
		return Request{}, domain.NewValidation("query", fmt.Sprintf("too long (max %d chars)", MaxQueryLength))
	}
	if m == "" {
		m = mode.Filter
	}
	if !m.IsValid() {
		return Request{}, domain.NewValidation("mode", fmt.Sprintf("invalid filter mode %q", m))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 || offset > MaxOffset {
		return Request{}, domain.NewValidation("offset", fmt.Sprintf("must be between 0 and %d", MaxOffset))
	}
	if len(themes) > MaxThemes {
		themes = themes[:MaxThemes]
	}
	cleanThemes := make([]string, 0, len(themes))
	for _, th := range themes {
		if th = strings.TrimSpace(th); th != "" {
			cleanThemes = append(cleanThemes, th)
		}
	}

	return Request{
		query:        strings.TrimSpace(query),
		providerHint: strings.ToLower(strings.TrimSpace(providerHint)),
		filters:      filters,
		filterMode:   m,
		limit:        limit,
		offset:       offset,
		themes:       cleanThemes,
	}, nil
}

// Query returns the raw search text.
func (r *Request) Query() string { return r.query }

// ProviderHint returns the preferred embedding provider ("" for the configured chain).
func (r *Request) ProviderHint() string { return r.providerHint }

// Filters returns the facet selections.
func (r *Request) Filters() filter.Filters { return r.filters }

// Mode returns how facets are applied.
func (r *Request) Mode() mode.Mode { return r.filterMode }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the page offset.
func (r *Request) Offset() int { return r.offset }

// Themes returns external keywords consumed as extra query terms.
func (r *Request) Themes() []string { return r.themes }
