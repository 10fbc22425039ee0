// Package localembed implements a deterministic, network-free approximate embedder.
//
// Each term (word longer than two characters, or adjacent word pair) gets a tf·idf-style
// weight and is scattered into four vector positions chosen by repeated FNV-1a hashing,
// with decreasing damping. Spreading one term over several slots lowers the variance
// introduced by hash collisions. The result is L2-normalized.
package localembed

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/ideasearch/internal/domain"
)

// DefaultDimensions is the vector length when none is configured.
const DefaultDimensions = 384

const (
	minTokenLen  = 3
	bigramWeight = 1.5
)

// dampings are the weights applied to a term's successive hash positions.
var dampings = [4]float64{1.0, 0.6, 0.4, 0.2}

// Embedder is the local approximate embedder.
type Embedder struct {
	dims       int
	cache      *Cache
	cacheTotal *prometheus.CounterVec
}

// New creates a local embedder. cache may be nil to disable caching.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"evict"), may be nil.
func New(dims int, cache *Cache, cacheTotal *prometheus.CounterVec) *Embedder {
	if dims < len(dampings) {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims, cache: cache, cacheTotal: cacheTotal}
}

// Dimensions returns the fixed vector length.
func (e *Embedder) Dimensions() int { return e.dims }

// Embed returns the vector for text. Empty or term-less text yields a zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}

	if e.cache != nil {
		if vec, ok := e.cache.Get(text); ok {
			e.inc("hit", 1)
			return domain.EmbeddingResult{Embedding: vec, Provider: domain.ProviderLocal}, nil
		}
		e.inc("miss", 1)
	}

	vec := Vectorize(text, e.dims)

	if e.cache != nil {
		if n := e.cache.Put(text, vec); n > 0 {
			e.inc("evict", n)
		}
	}
	return domain.EmbeddingResult{Embedding: vec, Provider: domain.ProviderLocal}, nil
}

// BatchEmbed vectorizes texts in order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		res, err := e.Embed(ctx, t)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out[i] = res.Embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: out, Provider: domain.ProviderLocal}, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) inc(result string, n int) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

// Vectorize computes the normalized hashed vector of text without caching.
func Vectorize(text string, dims int) []float32 {
	if dims < len(dampings) {
		dims = DefaultDimensions
	}
	acc := make([]float64, dims)

	for _, tw := range termWeights(Tokenize(text)) {
		for i, pos := range positions(tw.term, dims) {
			acc[pos] += tw.weight * dampings[i]
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}

	vec := make([]float32, dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Tokenize lowercases text, splits on anything that is not a letter or digit and keeps
// words longer than two characters.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) >= minTokenLen {
			out = append(out, w)
		}
	}
	return out
}

type weightedTerm struct {
	term   string
	weight float64
}

// termWeights returns tf·idf-style weights for words and adjacent bigrams, sorted by term
// so accumulation order (and therefore every float bit) is stable.
// tf is the term's share of all terms; the idf factor grows with term length as a
// corpus-free specificity proxy. Bigrams get an extra 1.5x.
func termWeights(tokens []string) []weightedTerm {
	counts := make(map[string]int, len(tokens)*2)
	for _, t := range tokens {
		counts[t]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		counts[tokens[i]+" "+tokens[i+1]]++
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return nil
	}

	weights := make([]weightedTerm, 0, len(counts))
	for term, c := range counts {
		tf := float64(c) / float64(total)
		idf := math.Log(1 + float64(len([]rune(term))))
		w := tf * idf
		if strings.Contains(term, " ") {
			w *= bigramWeight
		}
		weights = append(weights, weightedTerm{term: term, weight: w})
	}
	slices.SortFunc(weights, func(a, b weightedTerm) int { return strings.Compare(a.term, b.term) })
	return weights
}

// maxRehash bounds the search for a free slot before falling back to linear probing.
const maxRehash = 64

// positions returns four distinct slots for term: FNV-1a of the term, then FNV-1a of the
// previous hash until a new slot comes up.
func positions(term string, dims int) [4]int {
	var out [4]int
	h := fnv1a([]byte(term))

	for i := range out {
		pos := int(h % uint32(dims))
		for attempt := 0; slices.Contains(out[:i], pos); attempt++ {
			if attempt < maxRehash {
				h = rehash(h)
				pos = int(h % uint32(dims))
			} else {
				pos = (pos + 1) % dims
			}
		}
		out[i] = pos
		h = rehash(h)
	}
	return out
}

func rehash(h uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], h)
	return fnv1a(buf[:])
}

func fnv1a(b []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32()
}
