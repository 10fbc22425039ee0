package enhance

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/ideasearch/internal/domain/query"
)

const (
	minTermLen = 3
	// minFuzzyLen is the shortest token considered for edit-distance correction.
	minFuzzyLen = 4
	maxEditDist = 2
	minYear     = 1990
	maxYear     = 2099
)

// Rules is the deterministic query enhancer.
type Rules struct {
	dict       Dictionary
	vocabulary []string
}

// NewRules builds the enhancer and its correction vocabulary from dict.
func NewRules(dict Dictionary) *Rules {
	seen := make(map[string]struct{})
	add := func(w string) {
		for _, part := range strings.Fields(w) {
			if utf8.RuneCountInString(part) >= minFuzzyLen {
				seen[part] = struct{}{}
			}
		}
	}
	for _, v := range dict.Misspellings {
		add(v)
	}
	for k, vs := range dict.Synonyms {
		add(k)
		for _, v := range vs {
			add(v)
		}
	}

	vocab := make([]string, 0, len(seen))
	for w := range seen {
		vocab = append(vocab, w)
	}
	slices.Sort(vocab)
	return &Rules{dict: dict, vocabulary: vocab}
}

// Enhance normalizes, corrects and expands raw.
func (r *Rules) Enhance(raw string) query.Envelope {
	tokens := query.Tokenize(raw)

	var (
		year      int
		corrected = make([]string, 0, len(tokens))
		terms     = make([]string, 0, len(tokens))
	)
	for _, tok := range tokens {
		if y, ok := parseYear(tok); ok {
			year = y
			corrected = append(corrected, tok)
			continue
		}
		fixed := r.Correct(tok)
		corrected = append(corrected, fixed)
		if utf8.RuneCountInString(fixed) < minTermLen || r.dict.skip(fixed) {
			continue
		}
		if !slices.Contains(terms, fixed) {
			terms = append(terms, fixed)
		}
	}

	return query.New(raw, strings.Join(corrected, " "), terms, r.Expand(terms), year, false)
}

// Correct returns the dictionary correction of token, else the closest vocabulary word
// within edit distance 2, else token itself.
func (r *Rules) Correct(token string) string {
	if fixed, ok := r.dict.Misspellings[token]; ok {
		return fixed
	}
	n := utf8.RuneCountInString(token)
	if n < minFuzzyLen || r.dict.skip(token) || isNumeric(token) {
		return token
	}
	if _, ok := r.dict.Synonyms[token]; ok {
		return token
	}
	if slices.Contains(r.vocabulary, token) {
		return token
	}

	best, bestDist := token, maxEditDist+1
	for _, w := range r.vocabulary {
		if d := utf8.RuneCountInString(w) - n; d > maxEditDist || -d > maxEditDist {
			continue
		}
		if dist := levenshtein(token, w, maxEditDist); dist < bestDist {
			best, bestDist = w, dist
		}
	}
	return best
}

// Expand returns synonyms of terms (and of adjacent term pairs) plus a naive
// singular/plural toggle of each term, excluding anything already in terms.
func (r *Rules) Expand(terms []string) []string {
	have := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		have[t] = struct{}{}
	}
	var out []string
	add := func(w string) {
		if _, ok := have[w]; ok {
			return
		}
		have[w] = struct{}{}
		out = append(out, w)
	}

	for i, t := range terms {
		for _, s := range r.dict.Synonyms[t] {
			add(s)
		}
		if i+1 < len(terms) {
			for _, s := range r.dict.Synonyms[t+" "+terms[i+1]] {
				add(s)
			}
		}
	}
	for _, t := range terms {
		if alt := togglePlural(t); alt != "" {
			add(alt)
		}
	}
	return out
}

// togglePlural flips a word between singular and plural with suffix rules only.
func togglePlural(w string) string {
	if utf8.RuneCountInString(w) <= minTermLen || isNumeric(w) {
		return ""
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return ""
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	case strings.HasSuffix(w, "y") && !strings.ContainsAny(w[len(w)-2:len(w)-1], "aeiou"):
		return strings.TrimSuffix(w, "y") + "ies"
	}
	return w + "s"
}

func parseYear(tok string) (int, bool) {
	if len(tok) != 4 || !isNumeric(tok) {
		return 0, false
	}
	y, err := strconv.Atoi(tok)
	if err != nil || y < minYear || y > maxYear {
		return 0, false
	}
	return y, true
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
