package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// DefaultWeights returns lexical 0.30, vector 0.50, RRF 0.20.
func DefaultWeights() result.Weights {
	return result.Weights{Lexical: 0.30, Vector: 0.50, RRF: 0.20}
}

// Fuser combines the lexical and vector signals of one candidate set.
type Fuser struct {
	K       int
	Weights result.Weights
}

// NewFuser returns a fuser with defaults for zero fields.
func NewFuser(k int, w result.Weights) Fuser {
	if k <= 0 {
		k = DefaultRRFK
	}
	if w == (result.Weights{}) {
		w = DefaultWeights()
	}
	return Fuser{K: k, Weights: w}
}

// Fuse returns one ScoreSet per candidate, aligned with the inputs. lexical and vector are
// raw scores in candidate order; a nil slice means the signal is missing, in which case
// its weight is dropped and the rest rescaled to sum to 1.
func (f Fuser) Fuse(lexical, vector []float64) []result.ScoreSet {
	n := max(len(lexical), len(vector))
	lex := pad(lexical, n)
	vec := pad(vector, n)

	rrf := RRF(f.K, lex, vec)
	lexN, vecN, rrfN := MinMax(lex), MinMax(vec), MinMax(rrf)
	w := f.EffectiveWeights(lexical != nil, vector != nil)

	out := make([]result.ScoreSet, n)
	for i := range out {
		out[i] = result.ScoreSet{
			Lexical:  lex[i],
			Vector:   vec[i],
			RRF:      rrf[i],
			Weighted: w.Lexical*lexN[i] + w.Vector*vecN[i] + w.RRF*rrfN[i],
		}
	}
	return out
}

// EffectiveWeights reports the weights Fuse applies for the given signal availability.
func (f Fuser) EffectiveWeights(hasLexical, hasVector bool) result.Weights {
	w := f.Weights
	if hasLexical && hasVector {
		return w
	}
	if !hasLexical {
		w.Lexical = 0
	}
	if !hasVector {
		w.Vector = 0
	}
	sum := w.Lexical + w.Vector + w.RRF
	if sum == 0 {
		return w
	}
	return result.Weights{Lexical: w.Lexical / sum, Vector: w.Vector / sum, RRF: w.RRF / sum}
}

// RRF sums 1/(k+rank) over every ranking a candidate appears in. A candidate appears in a
// ranking when its score there is positive. Ranks are 1-based; equal scores share the
// better rank.
func RRF(k int, rankings ...[]float64) []float64 {
	var n int
	for _, r := range rankings {
		n = max(n, len(r))
	}
	out := make([]float64, n)
	for _, scores := range rankings {
		for i, rank := range ranks(scores) {
			if rank > 0 {
				out[i] += 1.0 / float64(k+rank)
			}
		}
	}
	return out
}

// ranks returns the 1-based competition rank of each positive score ("1224" ranking),
// 0 for scores that did not match.
func ranks(scores []float64) []int {
	idx := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 && !math.IsNaN(s) {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })

	out := make([]int, len(scores))
	for pos, i := range idx {
		if pos > 0 && scores[idx[pos-1]] == scores[i] {
			out[i] = out[idx[pos-1]]
			continue
		}
		out[i] = pos + 1
	}
	return out
}

// MinMax scales v to [0,1]. A constant array maps to 0.5.
func MinMax(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if math.IsInf(lo, 1) || hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, x := range v {
		if math.IsNaN(x) {
			continue
		}
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// Order returns candidate indices sorted by weighted score, highest first. The sort is
// stable: equal scores keep candidate-retrieval order, which itself depends on the store.
func Order(scores []result.ScoreSet) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(scores[b].Weighted, scores[a].Weighted)
	})
	return idx
}

func pad(v []float64, n int) []float64 {
	if len(v) >= n {
		return v
	}
	out := make([]float64, n)
	copy(out, v)
	return out
}
