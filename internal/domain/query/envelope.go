package query

import (
	"slices"
	"unicode/utf8"
)

// MinTermLength is the shortest term that takes part in retrieval and lexical scoring.
const MinTermLength = 3

// Envelope is the enhanced form of one raw query. Immutable after construction.
type Envelope struct {
	raw        string
	corrected  string
	terms      []string
	expanded   []string
	year       int
	aiEnhanced bool
}

// New builds an envelope. terms are the corrected query tokens, expanded are the added
// synonyms or model-suggested terms. year is 0 when the user stated none.
func New(raw, corrected string, terms, expanded []string, year int, aiEnhanced bool) Envelope {
	return Envelope{
		raw:        raw,
		corrected:  corrected,
		terms:      slices.Clone(terms),
		expanded:   slices.Clone(expanded),
		year:       year,
		aiEnhanced: aiEnhanced,
	}
}

// Raw returns the text exactly as the user sent it.
func (e Envelope) Raw() string { return e.raw }

// Corrected returns the spell-corrected query text.
func (e Envelope) Corrected() string { return e.corrected }

// Terms returns the corrected query terms.
func (e Envelope) Terms() []string { return slices.Clone(e.terms) }

// Expanded returns terms added by expansion.
func (e Envelope) Expanded() []string { return slices.Clone(e.expanded) }

// AllTerms returns the corrected terms followed by the expansions.
func (e Envelope) AllTerms() []string {
	out := make([]string, 0, len(e.terms)+len(e.expanded))
	out = append(out, e.terms...)
	return append(out, e.expanded...)
}

// SearchTerms returns AllTerms without the terms shorter than MinTermLength.
func (e Envelope) SearchTerms() []string {
	all := e.AllTerms()
	out := all[:0]
	for _, t := range all {
		if utf8.RuneCountInString(t) >= MinTermLength {
			out = append(out, t)
		}
	}
	return out
}

// Year returns the explicit year stated in the query.
func (e Envelope) Year() (int, bool) { return e.year, e.year > 0 }

// AIEnhanced reports whether the AI-assisted path produced the expansion.
func (e Envelope) AIEnhanced() bool { return e.aiEnhanced }

// EmbeddingText is the text sent to the embedding gateway.
func (e Envelope) EmbeddingText() string {
	if e.corrected != "" {
		return e.corrected
	}
	return e.raw
}
