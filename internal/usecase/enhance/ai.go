package enhance

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Completer sends a system prompt and user text to a completion model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	// maxAITermLen drops runaway model output; terms this long are not search terms.
	maxAITermLen = 50
	maxAITerms   = 10
	// DefaultMemoSize bounds the AI expansion memo.
	DefaultMemoSize = 512
)

const systemPrompt = `You expand search queries for a database of innovation ideas.
Fix spelling mistakes in the query and add 3 to 5 closely related search terms.
Preserve multi-word technical phrases exactly (for example "machine learning", "supply chain").
Never add a year or date unless one appears in the original query.
Answer with a single flat comma-separated list of terms and nothing else.`

var yearPattern = regexp.MustCompile(`\b(199[0-9]|20[0-9]{2})\b`)

// AI asks a completion model for corrected and related terms.
type AI struct {
	completer Completer
	timeout   time.Duration
	memo      *lru.Cache[string, []string]
}

// NewAI creates the AI path. memoSize <= 0 uses DefaultMemoSize; timeout <= 0 disables
// the per-call deadline.
func NewAI(c Completer, timeout time.Duration, memoSize int) (*AI, error) {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	memo, err := lru.New[string, []string](memoSize)
	if err != nil {
		return nil, fmt.Errorf("create expansion memo: %w", err)
	}
	return &AI{completer: c, timeout: timeout, memo: memo}, nil
}

// Terms returns the post-processed term list for raw.
func (a *AI) Terms(ctx context.Context, raw string) ([]string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if terms, ok := a.memo.Get(key); ok {
		return terms, nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := a.completer.Complete(ctx, systemPrompt, raw)
	if err != nil {
		return nil, fmt.Errorf("ai expansion: %w", err)
	}
	terms := PostProcess(out, raw)
	if len(terms) == 0 {
		return nil, fmt.Errorf("ai expansion: no usable terms in %q", truncate(out, 80))
	}

	a.memo.Add(key, terms)
	return terms, nil
}

// PostProcess cleans a comma-separated model answer: drops terms of 50+ characters,
// removes years absent from original, de-duplicates case-insensitively, caps the list
// (9 when original states a year, else 10) and re-appends the original's year if the
// model dropped it.
func PostProcess(answer, original string) []string {
	userYear := yearPattern.FindString(original)

	limit := maxAITerms
	if userYear != "" {
		limit = maxAITerms - 1
	}

	seen := make(map[string]struct{})
	var terms []string
	for _, part := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == '\n' }) {
		t := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'.;:-*`))
		t = yearPattern.ReplaceAllStringFunc(t, func(y string) string {
			if y == userYear {
				return y
			}
			return ""
		})
		t = strings.Join(strings.Fields(t), " ")
		if t == "" || utf8.RuneCountInString(t) >= maxAITermLen {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	if len(terms) > limit {
		terms = terms[:limit]
	}
	if userYear != "" {
		if !slices.Contains(terms, userYear) {
			terms = append(terms, userYear)
		}
	}
	return terms
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
