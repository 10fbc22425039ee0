// Package guard rejects degenerate queries before any retrieval or embedding work.
package guard

import "github.com/kailas-cloud/ideasearch/internal/domain/query"

const (
	// MinTermLen is the shortest token that counts as a query term.
	MinTermLen = 3
	// MaxVowellessLen is the longest single token accepted without a vowel pair.
	MaxVowellessLen = 15
)

// Verdict explains a guard decision.
type Verdict struct {
	Garbage bool
	Reason  string
	Tokens  []string
}

// Check classifies q. A query is garbage when, after stripping punctuation, it has no
// token longer than two characters, or exactly one token longer than 15 characters that
// contains no two adjacent vowels (keyboard mashing).
func Check(q string) Verdict {
	tokens := query.Tokenize(q)

	var terms int
	for _, t := range tokens {
		if len([]rune(t)) >= MinTermLen {
			terms++
		}
	}
	if terms == 0 {
		return Verdict{Garbage: true, Reason: "no terms", Tokens: tokens}
	}

	if len(tokens) == 1 {
		t := tokens[0]
		if len([]rune(t)) > MaxVowellessLen && !hasVowelPair(t) {
			return Verdict{Garbage: true, Reason: "unreadable token", Tokens: tokens}
		}
	}
	return Verdict{Tokens: tokens}
}

// IsGarbage is Check(q).Garbage.
func IsGarbage(q string) bool { return Check(q).Garbage }

func hasVowelPair(s string) bool {
	prev := false
	for _, r := range s {
		v := isVowel(r)
		if v && prev {
			return true
		}
		prev = v
	}
	return false
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
