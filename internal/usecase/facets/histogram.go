package facets

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/result"
)

// HistogramFacets are the categories counted for faceting.
var HistogramFacets = []string{
	filter.FacetDomain,
	filter.FacetBusinessGroup,
	filter.FacetTechStack,
	filter.FacetBuildPhase,
	filter.FacetYear,
}

// Histograms counts facet values over hits.
func Histograms(hits []result.Hit) result.Histograms {
	recs := make([]idea.Record, len(hits))
	for i := range hits {
		recs[i] = hits[i].Record()
	}
	return RecordHistograms(recs)
}

// RecordHistograms counts facet values over records, case-insensitively, keeping the
// first spelling seen. Buckets are sorted by count descending, then value ascending.
func RecordHistograms(recs []idea.Record) result.Histograms {
	out := make(result.Histograms, len(HistogramFacets))
	for _, name := range HistogramFacets {
		counts := make(map[string]*result.Bucket)
		var order []string
		for i := range recs {
			for _, v := range recs[i].FacetValues(name) {
				v = strings.TrimSpace(v)
				if v == "" {
					continue
				}
				key := strings.ToLower(v)
				b, ok := counts[key]
				if !ok {
					b = &result.Bucket{Value: v}
					counts[key] = b
					order = append(order, key)
				}
				b.Count++
			}
		}

		buckets := make([]result.Bucket, 0, len(order))
		for _, k := range order {
			buckets = append(buckets, *counts[k])
		}
		slices.SortFunc(buckets, func(a, b result.Bucket) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(strings.ToLower(a.Value), strings.ToLower(b.Value))
		})
		out[name] = buckets
	}
	return out
}
