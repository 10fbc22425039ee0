package result

import (
	"math"

	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/query"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/source"
)

// ScoreSet holds every signal computed for one candidate. Absent signals are 0, never omitted.
type ScoreSet struct {
	Lexical  float64
	Vector   float64
	RRF      float64
	Weighted float64
}

// Hit is a single ranked idea.
type Hit struct {
	record     idea.Record
	scores     ScoreSet
	facetScore int
}

// New creates a ranked hit.
func New(rec idea.Record, scores ScoreSet) Hit {
	return Hit{record: rec, scores: scores}
}

// Record returns the idea projection.
func (h *Hit) Record() idea.Record { return h.record }

// ID returns the idea identifier.
func (h *Hit) ID() string { return h.record.ID }

// Scores returns the per-signal scores.
func (h *Hit) Scores() ScoreSet { return h.scores }

// Score returns the weighted score as an integer match percentage in [0, 100].
func (h *Hit) Score() int { return Percent(h.scores.Weighted) }

// FacetScore returns the additive facet boost (boost mode only).
func (h *Hit) FacetScore() int { return h.facetScore }

// WithFacetScore returns a copy carrying the facet boost.
func (h Hit) WithFacetScore(s int) Hit {
	h.facetScore = s
	return h
}

// WithCreatedAt returns a copy with an authoritative creation time.
func (h Hit) WithCreatedAt(rec idea.Record) Hit {
	h.record.CreatedAt = rec.CreatedAt
	return h
}

// Percent maps a [0,1] score to an integer percentage, clamping out-of-range input.
func Percent(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 100
	}
	return int(math.Round(v * 100))
}

// Weights is the linear combination applied to the normalized signals.
type Weights struct {
	Lexical float64 `json:"lexical"`
	Vector  float64 `json:"vector"`
	RRF     float64 `json:"rrf"`
}

// Metadata describes how a page was produced, for observability and reproducibility.
type Metadata struct {
	Algorithm           string  `json:"algorithm"`
	Weights             Weights `json:"weights"`
	CandidateCount      int     `json:"candidateCount"`
	QueryTermCount      int     `json:"queryTermCount"`
	EmbeddingDimensions int     `json:"embeddingDimensions"`
	Provider            string  `json:"provider,omitempty"`
	Degraded            bool    `json:"degraded,omitempty"`
	AIEnhanced          bool    `json:"aiEnhanced"`
}

// Bucket is one facet value with its document count.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Histograms maps facet name to its value counts.
type Histograms map[string][]Bucket

// Page is one ranked page of results.
type Page struct {
	Hits     []Hit
	Total    int
	Source   source.Source
	Facets   Histograms
	Metadata Metadata
	// Query is the enhanced form of the search text that drove retrieval.
	Query query.Envelope
}

// Empty returns an explicit zero-result page tagged with the stage that produced it.
func Empty(src source.Source) Page {
	return Page{Source: src, Facets: Histograms{}}
}

// IsEmpty reports whether the page has no hits.
func (p *Page) IsEmpty() bool { return len(p.Hits) == 0 }
