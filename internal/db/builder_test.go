package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_IdeaSchema(t *testing.T) {
	idx, err := NewIndex("ideas:idx").
		Prefix("idea:").
		TextWeighted("title", 2).
		Text("blob").
		Tag("id").
		TagWithOpts("tech_stack", ",", false).
		Numeric("created_at").
		VectorHNSW("embedding", 384, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 6 {
		t.Fatalf("fields count = %d, want 6", len(idx.Fields))
	}
	if idx.Fields[0].TextWeight != 2 {
		t.Errorf("title weight = %v", idx.Fields[0].TextWeight)
	}
	if idx.Fields[3].TagSeparator != "," {
		t.Errorf("tech_stack separator = %q", idx.Fields[3].TagSeparator)
	}
	v := idx.Fields[5]
	if v.VectorAlgo != VectorHNSW || v.VectorDim != 384 || v.VectorM != 16 || v.VectorEFConstruct != 200 {
		t.Errorf("vector field = %+v", v)
	}
}

func TestIndexBuilder_VectorFlat(t *testing.T) {
	idx, err := NewIndex("vec-idx").VectorFlat("embedding", 1536, DistanceCosine).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Fields[0].VectorAlgo != VectorFlat {
		t.Errorf("algo = %q, want FLAT", idx.Fields[0].VectorAlgo)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("").Tag("a"), "index name is required"},
		{"bad name", NewIndex("ideas idx").Tag("a"), "invalid characters"},
		{"no fields", NewIndex("idx"), "at least one field"},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0), "positive DIM"},
		{"duplicate", NewIndex("idx").Tag("a").Text("a"), "duplicate field name"},
		{"negative weight", NewIndex("idx").TextWeighted("t", -1), "weight"},
		{"unknown type", &IndexBuilder{def: IndexDefinition{Name: "idx", Fields: []IndexField{{Name: "x", Type: 9}}}}, "unknown field type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_ArgsDefaults(t *testing.T) {
	idx, err := NewIndex("idx").VectorFlat("embedding", 3, "").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(idx.Args(), " ")
	want := "idx ON HASH SCHEMA embedding VECTOR FLAT 6 TYPE FLOAT32 DIM 3 DISTANCE_METRIC COSINE"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").Prefix("idea:").TextWeighted("title", 2).Tag("domain").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FT.CREATE idx ON HASH PREFIX 1 idea: SCHEMA title TEXT WEIGHT 2 domain TAG"
	if got := idx.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPrefilter_IsEmpty(t *testing.T) {
	if !(Prefilter{}).IsEmpty() {
		t.Error("zero prefilter should be empty")
	}
	p := Prefilter{Tags: []TagMatch{{Field: "domain", Values: []string{"ai"}}}}
	if p.IsEmpty() {
		t.Error("prefilter with tags should not be empty")
	}
}
