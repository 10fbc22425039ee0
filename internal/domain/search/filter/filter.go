package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain"
)

// MaxValuesPerFacet is the maximum number of selected values per facet category.
const MaxValuesPerFacet = 32

// Known facet categories.
const (
	FacetDomain        = "domain"
	FacetBusinessGroup = "business_group"
	FacetTechStack     = "tech_stack"
	FacetBuildPhase    = "build_phase"
	FacetYear          = "year"
)

// Extension facets: idea attributes selectable through the extra map.
const (
	FacetScalability     = "scalability"
	FacetNovelty         = "novelty"
	FacetBuildPreference = "build_preference"
)

// KnownFacets lists the typed facet categories in evaluation order.
var KnownFacets = []string{FacetDomain, FacetBusinessGroup, FacetTechStack, FacetBuildPhase, FacetYear}

// ExtensionFacets lists the facets accepted in the extra map.
var ExtensionFacets = []string{FacetScalability, FacetNovelty, FacetBuildPreference}

// Filters is the set of facet selections for one request.
// Values within a category are alternatives (OR); categories combine with AND.
type Filters struct {
	domain        []string
	businessGroup []string
	techStack     []string
	buildPhase    []string
	years         []int
	extra         map[string][]string
}

// Category is one non-empty facet selection.
type Category struct {
	Name   string
	Values []string
}

// New validates and normalizes facet selections.
// Blank values are dropped and duplicates collapsed case-insensitively.
func New(
	domainValues, businessGroups, techStack, buildPhases []string,
	years []int, extra map[string][]string,
) (Filters, error) {
	var f Filters
	var err error

	if f.domain, err = clean(FacetDomain, domainValues); err != nil {
		return Filters{}, err
	}
	if f.businessGroup, err = clean(FacetBusinessGroup, businessGroups); err != nil {
		return Filters{}, err
	}
	if f.techStack, err = clean(FacetTechStack, techStack); err != nil {
		return Filters{}, err
	}
	if f.buildPhase, err = clean(FacetBuildPhase, buildPhases); err != nil {
		return Filters{}, err
	}

	if len(years) > MaxValuesPerFacet {
		return Filters{}, domain.NewValidation(FacetYear, fmt.Sprintf("too many values (max %d)", MaxValuesPerFacet))
	}
	for _, y := range years {
		if y < 1970 || y > 9999 {
			return Filters{}, domain.NewValidation(FacetYear, fmt.Sprintf("invalid year %d", y))
		}
		if !slices.Contains(f.years, y) {
			f.years = append(f.years, y)
		}
	}

	for name, values := range extra {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return Filters{}, domain.NewValidation("extra", "facet name is required")
		}
		if slices.Contains(KnownFacets, key) {
			return Filters{}, domain.NewValidation("extra", fmt.Sprintf("%q is a typed facet", key))
		}
		if !slices.Contains(ExtensionFacets, key) {
			return Filters{}, domain.NewValidation("extra", fmt.Sprintf("unknown facet %q", key))
		}
		cleaned, err := clean(key, values)
		if err != nil {
			return Filters{}, err
		}
		if len(cleaned) == 0 {
			continue
		}
		if f.extra == nil {
			f.extra = make(map[string][]string)
		}
		f.extra[key] = cleaned
	}

	return f, nil
}

func clean(name string, values []string) ([]string, error) {
	if len(values) > MaxValuesPerFacet {
		return nil, domain.NewValidation(name, fmt.Sprintf("too many values (max %d)", MaxValuesPerFacet))
	}
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Domain returns the selected domains.
func (f Filters) Domain() []string { return f.domain }

// BusinessGroup returns the selected business groups.
func (f Filters) BusinessGroup() []string { return f.businessGroup }

// TechStack returns the selected technologies.
func (f Filters) TechStack() []string { return f.techStack }

// BuildPhase returns the selected build phases.
func (f Filters) BuildPhase() []string { return f.buildPhase }

// Years returns the selected creation years.
func (f Filters) Years() []int { return f.years }

// Extra returns selections on extension facets.
func (f Filters) Extra() map[string][]string { return f.extra }

// IsEmpty reports whether no facet is selected.
func (f Filters) IsEmpty() bool {
	return len(f.domain) == 0 && len(f.businessGroup) == 0 && len(f.techStack) == 0 &&
		len(f.buildPhase) == 0 && len(f.years) == 0 && len(f.extra) == 0
}

// HasYear reports whether a year selection is present.
func (f Filters) HasYear() bool { return len(f.years) > 0 }

// WithYear returns a copy with y added to the year selection.
func (f Filters) WithYear(y int) Filters {
	if slices.Contains(f.years, y) {
		return f
	}
	f.years = append(slices.Clone(f.years), y)
	return f
}

// Categories returns the non-empty string-valued selections: typed facets first, then
// extension facets sorted by name. Years are excluded; see YearRanges.
func (f Filters) Categories() []Category {
	var out []Category
	add := func(name string, values []string) {
		if len(values) > 0 {
			out = append(out, Category{Name: name, Values: values})
		}
	}
	add(FacetDomain, f.domain)
	add(FacetBusinessGroup, f.businessGroup)
	add(FacetTechStack, f.techStack)
	add(FacetBuildPhase, f.buildPhase)

	names := make([]string, 0, len(f.extra))
	for name := range f.extra {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		add(name, f.extra[name])
	}
	return out
}

// Range is a half-open [From, To) interval of unix seconds.
type Range struct {
	From int64
	To   int64
}

// Contains reports whether ts falls inside the range.
func (r Range) Contains(ts int64) bool { return ts >= r.From && ts < r.To }

// YearRanges converts the year selection into UTC creation-time ranges.
func (f Filters) YearRanges() []Range {
	out := make([]Range, 0, len(f.years))
	for _, y := range f.years {
		out = append(out, Range{
			From: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
			To:   time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
		})
	}
	return out
}
