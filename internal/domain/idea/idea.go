package idea

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
)

// Projection limits for the per-cycle searchable view.
const (
	MaxBlobChars = 2000
	MaxMetaChars = 200
	MaxIDLength  = 128
)

// Record is the fixed projection of an idea row the ranking core reads. Never mutated by the core.
type Record struct {
	ID               string
	SubmitterID      string
	Title            string
	Summary          string
	Domain           string
	BusinessGroup    string
	TechStack        []string
	BuildPhase       string
	BuildPreference  string
	Scalability      string
	Novelty          string
	Benefits         string
	AdditionalInfo   string
	ExpectedOutcomes string
	BusinessModel    string
	PrototypeURL     string
	Score            float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the fields the search index requires.
func (r *Record) Validate() error {
	if r.ID == "" {
		return domain.NewValidation("id", "is required")
	}
	if len(r.ID) > MaxIDLength {
		return domain.NewValidation("id", fmt.Sprintf("too long (max %d)", MaxIDLength))
	}
	if strings.ContainsAny(r.ID, " \t\n:") {
		return domain.NewValidation("id", "must not contain whitespace or ':'")
	}
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Summary) == "" {
		return domain.NewValidation("title", "title or summary is required")
	}
	if r.Score < 0 || r.Score > 100 {
		return domain.NewValidation("score", "must be between 0 and 100")
	}
	return nil
}

// Year returns the UTC creation year, 0 when unknown.
func (r *Record) Year() int {
	if r.CreatedAt.IsZero() {
		return 0
	}
	return r.CreatedAt.UTC().Year()
}

// FacetValues returns the record's values for a facet category.
func (r *Record) FacetValues(name string) []string {
	switch name {
	case filter.FacetDomain:
		return nonEmpty(r.Domain)
	case filter.FacetBusinessGroup:
		return nonEmpty(r.BusinessGroup)
	case filter.FacetTechStack:
		return r.TechStack
	case filter.FacetBuildPhase:
		return nonEmpty(r.BuildPhase)
	case filter.FacetYear:
		if y := r.Year(); y > 0 {
			return []string{fmt.Sprintf("%d", y)}
		}
		return nil
	case filter.FacetScalability:
		return nonEmpty(r.Scalability)
	case filter.FacetNovelty:
		return nonEmpty(r.Novelty)
	case filter.FacetBuildPreference:
		return nonEmpty(r.BuildPreference)
	}
	return nil
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

// TextFields returns the textual fields the candidate pass matches against, in weight order.
func (r *Record) TextFields() []string {
	return []string{
		r.Title,
		r.Summary,
		r.Domain,
		r.BusinessGroup,
		strings.Join(r.TechStack, " "),
		r.Benefits,
		r.AdditionalInfo,
		r.ExpectedOutcomes,
		r.BusinessModel,
	}
}

// Document is the ephemeral searchable view of a record for one indexing pass or query.
type Document struct {
	ID     string
	Text   string
	Meta   map[string]string
	Vector []float32
}

// NewDocument builds the bounded text blob and lowercased metadata snapshot.
func NewDocument(r *Record) Document {
	var b strings.Builder
	for _, field := range r.TextFields() {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(field)
	}

	meta := map[string]string{
		"title":          truncate(strings.ToLower(r.Title), MaxMetaChars),
		"domain":         truncate(strings.ToLower(r.Domain), MaxMetaChars),
		"business_group": truncate(strings.ToLower(r.BusinessGroup), MaxMetaChars),
		"tech_stack":     truncate(strings.ToLower(strings.Join(r.TechStack, ",")), MaxMetaChars),
		"build_phase":    truncate(strings.ToLower(r.BuildPhase), MaxMetaChars),
	}

	return Document{
		ID:   r.ID,
		Text: truncate(b.String(), MaxBlobChars),
		Meta: meta,
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// SplitList parses a comma or semicolon separated list, trimming blanks.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Indexed pairs a record with its searchable document for a write.
// Document.Vector may be nil when no provider produced one.
type Indexed struct {
	Record   Record
	Document Document
}
