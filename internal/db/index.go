package db

import (
	"errors"
	"fmt"
	"strconv"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
// Ideas are compared by cosine distance only; the repository maps that range to similarity.
type DistanceMetric string

// DistanceCosine is cosine distance in [0, 2].
const DistanceCosine DistanceMetric = "COSINE"

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW algorithm.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses the FLAT (brute-force) algorithm.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field (score, created_at).
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field (facets).
	IndexFieldTag
	// IndexFieldText is a full-text field (title, blob).
	IndexFieldText
	// IndexFieldVector is the embedding field.
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	TextWeight float64

	TagSeparator     string
	TagCaseSensitive bool

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW max edges per node
	VectorEFConstruct int // HNSW build-time candidate list size
}

// IndexDefinition is a HASH-backed FT index definition.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field name is required at index %d", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case IndexFieldVector:
			if f.VectorDim <= 0 {
				return errors.New("vector field requires positive DIM")
			}
		case IndexFieldText:
			if f.TextWeight < 0 {
				return fmt.Errorf("text weight must not be negative: %s", f.Name)
			}
		case IndexFieldNumeric, IndexFieldTag:
		default:
			return fmt.Errorf("unknown field type %d: %s", f.Type, f.Name)
		}
	}
	return nil
}

// Args renders the FT.CREATE arguments that follow the command name.
// The definition must be valid.
func (idx *IndexDefinition) Args() []string {
	args := []string{idx.Name, "ON", "HASH"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		args = append(args, idx.Fields[i].args()...)
	}
	return args
}

func (f *IndexField) args() []string {
	out := []string{f.Name}
	switch f.Type {
	case IndexFieldNumeric:
		out = append(out, "NUMERIC")
	case IndexFieldText:
		out = append(out, "TEXT")
		if f.TextWeight > 0 {
			out = append(out, "WEIGHT", strconv.FormatFloat(f.TextWeight, 'g', -1, 64))
		}
	case IndexFieldTag:
		out = append(out, "TAG")
		if f.TagSeparator != "" {
			out = append(out, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			out = append(out, "CASESENSITIVE")
		}
	case IndexFieldVector:
		out = append(out, f.vectorArgs()...)
	}
	return out
}

func (f *IndexField) vectorArgs() []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = VectorFlat
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}
	return append([]string{"VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
