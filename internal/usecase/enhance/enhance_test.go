package enhance

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

type fakeCompleter struct {
	answer string
	err    error
	calls  int
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.user = user
	return f.answer, f.err
}

func newRules() *Rules { return NewRules(DefaultDictionary()) }

func TestRules_Enhance_CorrectsAndExpands(t *testing.T) {
	env := newRules().Enhance("Blokchain, finnance!")

	if env.Raw() != "Blokchain, finnance!" {
		t.Errorf("Raw() = %q", env.Raw())
	}
	if env.Corrected() != "blockchain finance" {
		t.Errorf("Corrected() = %q", env.Corrected())
	}
	if got := env.Terms(); !slices.Equal(got, []string{"blockchain", "finance"}) {
		t.Errorf("Terms() = %v", got)
	}
	exp := env.Expanded()
	for _, want := range []string{"distributed ledger", "banking"} {
		if !slices.Contains(exp, want) {
			t.Errorf("Expanded() = %v, missing %q", exp, want)
		}
	}
	if env.AIEnhanced() {
		t.Error("rules path must not set aiEnhanced")
	}
}

func TestRules_Enhance_DropsStopwordsAndKeepsYear(t *testing.T) {
	env := newRules().Enhance("hello, show me healthcare ideas from 2024")

	if got := env.Terms(); !slices.Equal(got, []string{"healthcare"}) {
		t.Errorf("Terms() = %v", got)
	}
	if y, ok := env.Year(); !ok || y != 2024 {
		t.Errorf("Year() = %d, %v", y, ok)
	}
	if !strings.Contains(env.Corrected(), "2024") {
		t.Errorf("Corrected() lost the year: %q", env.Corrected())
	}
}

func TestRules_Correct(t *testing.T) {
	r := newRules()
	tests := []struct{ in, want string }{
		{"blokchain", "blockchain"},           // exact dictionary
		{"logisticz", "logistics"},            // edit distance 1
		{"sustainabilitty", "sustainability"}, // edit distance 1, longer word
		{"qqqqqqqq", "qqqqqqqq"},              // nothing close
		{"app", "app"},                        // too short
		{"please", "please"},                  // greeting
		{"2024", "2024"},                      // numbers untouched
		{"healthcare", "healthcare"},          // already known
	}
	for _, tt := range tests {
		if got := r.Correct(tt.in); got != tt.want {
			t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRules_Expand_PhraseAndPlural(t *testing.T) {
	exp := newRules().Expand([]string{"supply", "chain", "companies"})
	for _, want := range []string{"logistics", "procurement", "company", "supplies"} {
		if !slices.Contains(exp, want) {
			t.Errorf("Expand() = %v, missing %q", exp, want)
		}
	}
}

func TestTogglePlural(t *testing.T) {
	tests := []struct{ in, want string }{
		{"payments", "payment"},
		{"payment", "payments"},
		{"companies", "company"},
		{"company", "companies"},
		{"business", ""},
		{"analysis", ""},
		{"app", ""},
	}
	for _, tt := range tests {
		if got := togglePlural(tt.in); got != tt.want {
			t.Errorf("togglePlural(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b  string
		limit int
		want  int
	}{
		{"kitten", "sitting", 5, 3},
		{"kitten", "sitting", 2, 3},
		{"same", "same", 2, 0},
		{"a", "abcd", 2, 3},
		{"finnance", "finance", 2, 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b, tt.limit); got != tt.want {
			t.Errorf("levenshtein(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.limit, got, tt.want)
		}
	}
}

func TestPostProcess(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		original string
		want     []string
	}{
		{
			name:     "dedupe and lowercase",
			answer:   "Blockchain, blockchain, Distributed Ledger, banking",
			original: "blokchain",
			want:     []string{"blockchain", "distributed ledger", "banking"},
		},
		{
			name:     "strip injected year",
			answer:   "solar 2023, renewable energy, 2022",
			original: "solar",
			want:     []string{"solar", "renewable energy"},
		},
		{
			name:     "reappend user year",
			answer:   "healthcare, medical",
			original: "healthcare 2024",
			want:     []string{"healthcare", "medical", "2024"},
		},
		{
			name:     "drop oversized",
			answer:   "ai, " + strings.Repeat("x", 50),
			original: "ai",
			want:     []string{"ai"},
		},
		{
			name:     "cap at ten",
			answer:   "a1,a2,a3,a4,a5,a6,a7,a8,a9,a10,a11,a12",
			original: "a",
			want:     []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10"},
		},
		{
			name:     "cap at nine plus year",
			answer:   "a1,a2,a3,a4,a5,a6,a7,a8,a9,a10,a11",
			original: "a 2021",
			want:     []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "2021"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PostProcess(tt.answer, tt.original); !slices.Equal(got, tt.want) {
				t.Errorf("PostProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAI_Terms_Memoized(t *testing.T) {
	c := &fakeCompleter{answer: "blockchain, finance, banking"}
	ai, err := NewAI(c, time.Second, 4)
	if err != nil {
		t.Fatalf("NewAI: %v", err)
	}

	for range 3 {
		terms, err := ai.Terms(context.Background(), "Blokchain finnance")
		if err != nil {
			t.Fatalf("Terms: %v", err)
		}
		if len(terms) != 3 {
			t.Fatalf("terms = %v", terms)
		}
	}
	if c.calls != 1 {
		t.Errorf("completer calls = %d, want 1", c.calls)
	}
}

func TestAI_Terms_EmptyAnswer(t *testing.T) {
	ai, _ := NewAI(&fakeCompleter{answer: " , ,"}, 0, 0)
	if _, err := ai.Terms(context.Background(), "x"); err == nil {
		t.Fatal("expected error for unusable answer")
	}
}

func TestEnhancer_AIPath(t *testing.T) {
	c := &fakeCompleter{answer: "blockchain, finance, distributed ledger, crypto payments"}
	ai, _ := NewAI(c, time.Second, 8)
	e := New(newRules(), ai, zap.NewNop())

	before := testutil.ToFloat64(metrics.QueryEnhancementsTotal.WithLabelValues("ai"))
	env := e.Enhance(context.Background(), "blokchain finnance", []string{"Tokenization"})

	if !env.AIEnhanced() {
		t.Fatal("expected aiEnhanced")
	}
	if env.Raw() != "blokchain finnance" {
		t.Errorf("Raw() = %q", env.Raw())
	}
	exp := env.Expanded()
	for _, want := range []string{"crypto payments", "distributed ledger", "tokenization"} {
		if !slices.Contains(exp, want) {
			t.Errorf("Expanded() = %v, missing %q", exp, want)
		}
	}
	if slices.Contains(exp, "blockchain") {
		t.Errorf("Expanded() repeats a term: %v", exp)
	}
	if got := testutil.ToFloat64(metrics.QueryEnhancementsTotal.WithLabelValues("ai")) - before; got != 1 {
		t.Errorf("ai enhancements counted = %v", got)
	}
}

func TestEnhancer_AIFailureFallsBack(t *testing.T) {
	ai, _ := NewAI(&fakeCompleter{err: errors.New("503")}, time.Second, 8)
	e := New(newRules(), ai, zap.NewNop())

	before := testutil.ToFloat64(metrics.QueryEnhancementsTotal.WithLabelValues("ai_fallback"))
	env := e.Enhance(context.Background(), "blokchain finnance", nil)

	if env.AIEnhanced() {
		t.Error("fallback must not set aiEnhanced")
	}
	if env.Corrected() != "blockchain finance" || !slices.Contains(env.Expanded(), "banking") {
		t.Errorf("fallback envelope = %q %v", env.Corrected(), env.Expanded())
	}
	if got := testutil.ToFloat64(metrics.QueryEnhancementsTotal.WithLabelValues("ai_fallback")) - before; got != 1 {
		t.Errorf("fallbacks counted = %v", got)
	}
}

func TestEnhancer_YearNotDuplicatedAsTerm(t *testing.T) {
	ai, _ := NewAI(&fakeCompleter{answer: "healthcare, medical"}, 0, 8)
	env := New(newRules(), ai, nil).Enhance(context.Background(), "healthcare 2024", nil)

	if slices.Contains(env.AllTerms(), "2024") {
		t.Errorf("year leaked into terms: %v", env.AllTerms())
	}
	if y, _ := env.Year(); y != 2024 {
		t.Errorf("Year() = %d", y)
	}
}
