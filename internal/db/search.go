package db

// TagMatch matches documents whose TAG field holds any of Values.
type TagMatch struct {
	Field  string
	Values []string
}

// NumericRange matches documents whose NUMERIC field lies in [From, To).
type NumericRange struct {
	Field string
	From  float64
	To    float64
}

// Prefilter narrows a search: every TagMatch must hold (AND across fields, OR within one),
// and when Ranges is non-empty at least one of them must hold.
type Prefilter struct {
	Tags   []TagMatch
	Ranges []NumericRange
}

// IsEmpty reports whether the prefilter constrains nothing.
func (p Prefilter) IsEmpty() bool {
	return len(p.Tags) == 0 && len(p.Ranges) == 0
}

// TextQuery is the input for the lexical candidate pass. Terms are OR-ed across all TEXT
// fields; a term containing spaces is matched as an exact phrase.
type TextQuery struct {
	IndexName    string
	Terms        []string
	Filter       Prefilter
	Limit        int
	ReturnFields []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filter       Prefilter
	Vector       []float32
	K            int
	ReturnFields []string
	RawScores    bool // return the distance as-is instead of 1-distance
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
