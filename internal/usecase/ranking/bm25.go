// Package ranking scores candidates: BM25+ for the lexical signal, cosine similarity or a
// distance mapping for the vector signal, and RRF plus weighted min-max fusion.
package ranking

import (
	"math"
	"strings"

	"github.com/kailas-cloud/ideasearch/internal/domain/query"
)

// BM25Params tunes BM25+. Delta is the floor added to every matched term's
// term-frequency component so long-document normalization cannot drive it to zero.
type BM25Params struct {
	K1    float64
	B     float64
	Delta float64
}

// DefaultBM25 returns k1=1.2, b=0.75, delta=1.0.
func DefaultBM25() BM25Params {
	return BM25Params{K1: 1.2, B: 0.75, Delta: 1.0}
}

// BM25Plus scores each document against terms. Documents are token sequences; a term
// may be a multi-word phrase, matched as consecutive tokens. Document frequency and
// average length are taken over docs (the candidate set). Unmatched terms add nothing.
func BM25Plus(terms []string, docs [][]string, p BM25Params) []float64 {
	scores := make([]float64, len(docs))
	if len(docs) == 0 {
		return scores
	}

	phrases := uniquePhrases(terms)
	if len(phrases) == 0 {
		return scores
	}

	var totalLen int
	for _, d := range docs {
		totalLen += len(d)
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		return scores
	}

	n := float64(len(docs))
	for _, phrase := range phrases {
		tfs := make([]int, len(docs))
		var df int
		for i, d := range docs {
			tfs[i] = countPhrase(d, phrase)
			if tfs[i] > 0 {
				df++
			}
		}
		if df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for i, d := range docs {
			tf := float64(tfs[i])
			if tf == 0 {
				continue
			}
			norm := p.K1 * (1 - p.B + p.B*float64(len(d))/avgLen)
			scores[i] += idf * (tf*(p.K1+1)/(tf+norm) + p.Delta)
		}
	}
	return scores
}

// Documents tokenizes texts for BM25Plus.
func Documents(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = query.Tokenize(t)
	}
	return out
}

func uniquePhrases(terms []string) [][]string {
	seen := make(map[string]struct{}, len(terms))
	var out [][]string
	for _, t := range terms {
		words := query.Tokenize(t)
		if len(words) == 0 {
			continue
		}
		key := strings.Join(words, " ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, words)
	}
	return out
}

func countPhrase(doc, phrase []string) int {
	var n int
	for i := 0; i+len(phrase) <= len(doc); i++ {
		match := true
		for j, w := range phrase {
			if doc[i+j] != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}
