package ideasearch

import (
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// Idea is one idea record as stored and returned.
type Idea = idea.Record

// Bucket is one facet value with its document count.
type Bucket = result.Bucket

// FacetMode controls how facet selections shape the result set.
type FacetMode string

// Facet mode constants.
const (
	// ModeFilter drops hits that match no selected value of some facet.
	ModeFilter FacetMode = "filter"
	// ModeBoost reorders hits by how many selected values they match.
	ModeBoost FacetMode = "boost"
)

// Source tags which stage produced a page.
type Source string

// Source constants.
const (
	SourceNone     Source = "none"
	SourceDatabase Source = "database"
	SourceSemantic Source = "semantic"
	SourceHybrid   Source = "hybrid"
)

// Filters are facet selections. Values within one facet are alternatives.
type Filters struct {
	Domain        []string
	BusinessGroup []string
	TechStack     []string
	BuildPhase    []string
	Years         []int
	Extra         map[string][]string
}

// Query is a search request. Zero Limit takes the default page size.
type Query struct {
	Text     string
	Provider string
	Filters  Filters
	Mode     FacetMode
	Limit    int
	Offset   int
	Themes   []string
}

// Hit is one ranked idea with every ranking signal.
type Hit struct {
	Idea Idea
	// Score is the weighted score as a match percentage.
	Score      int
	FacetScore int
	Lexical    float64
	Vector     float64
	RRF        float64
	Weighted   float64
}

// Page is one page of ranked ideas.
type Page struct {
	Hits     []Hit
	Total    int
	Source   Source
	Facets   map[string][]Bucket
	Provider string
	Degraded bool
	// Terms and Expanded are the query terms that drove retrieval.
	Terms     []string
	Expanded  []string
	Corrected string
}

// IndexResult is the outcome of indexing one idea.
type IndexResult struct {
	ID   string
	Line int
	OK   bool
	Err  error
}

// IndexSummary counts the outcomes of one indexing run.
type IndexSummary struct {
	Indexed int
	Skipped int
	Batches int
}
