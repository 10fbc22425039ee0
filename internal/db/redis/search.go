package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ideasearch/internal/db"
)

const defaultVectorField = "embedding"

// SearchText runs the lexical candidate pass: terms OR-ed across TEXT fields, AND-ed with the prefilter.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	textPart := buildTermsClause(q.Terms)
	if textPart == "" {
		return nil, fmt.Errorf("at least one term is required")
	}

	queryStr := textPart
	if filterStr := buildPrefilter(q.Filter); filterStr != "" {
		queryStr = textPart + " " + filterStr
	}

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return parseListResult(raw)
}

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)
	var queryStr string
	if filterStr := buildPrefilter(q.Filter); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"LIMIT", "0", strconv.Itoa(q.K),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return parseKNNResult(raw, "__"+field+"_score", q.RawScores)
}

// SearchList performs paginated search via FT.SEARCH.
func (s *Store) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	args := []string{index, query, "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit)}

	if len(fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return parseListResult(raw)
}

// SearchCount returns document count via FT.SEARCH with LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, searchErr(err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// searchErr maps a missing index to db.ErrIndexNotFound; Redis and Valkey word it differently.
func searchErr(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// --- Result parsing ---

// parseKNNResult reads the distance the server reports under scoreField (e.g. __embedding_score).
func parseKNNResult(raw []rueidis.RedisMessage, scoreField string, rawScores bool) (*db.SearchResult, error) {
	res, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}

	for i := range res.Entries {
		entry := &res.Entries[i]
		scoreStr, ok := entry.Fields[scoreField]
		if !ok {
			continue
		}
		if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
			if rawScores {
				entry.Score = d
			} else {
				entry.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}
		delete(entry.Fields, scoreField)
	}
	return res, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, min(int(total), len(raw)/2))
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildTermsClause ORs the terms into one group; multi-word terms become quoted phrases.
func buildTermsClause(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		words := strings.Fields(term)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = queryEscaper.Replace(w)
		}
		if len(words) == 1 {
			parts = append(parts, words[0])
			continue
		}
		parts = append(parts, `"`+strings.Join(words, " ")+`"`)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// buildPrefilter translates a db.Prefilter into FT.SEARCH query syntax.
func buildPrefilter(p db.Prefilter) string {
	if p.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(p.Tags)+1)
	for _, t := range p.Tags {
		if clause := buildTagFilter(t); clause != "" {
			parts = append(parts, clause)
		}
	}

	if len(p.Ranges) > 0 {
		ranges := make([]string, 0, len(p.Ranges))
		for _, r := range p.Ranges {
			ranges = append(ranges, buildNumericFilter(r))
		}
		if len(ranges) == 1 {
			parts = append(parts, ranges[0])
		} else {
			parts = append(parts, "("+strings.Join(ranges, " | ")+")")
		}
	}

	return strings.Join(parts, " ")
}

func buildTagFilter(t db.TagMatch) string {
	values := make([]string, 0, len(t.Values))
	for _, v := range t.Values {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, tagEscaper.Replace(v))
		}
	}
	if len(values) == 0 {
		return ""
	}
	return fmt.Sprintf("@%s:{%s}", t.Field, strings.Join(values, " | "))
}

// buildNumericFilter renders the half-open range [From, To).
func buildNumericFilter(r db.NumericRange) string {
	return fmt.Sprintf("@%s:[%s (%s]", r.Field,
		strconv.FormatFloat(r.From, 'f', -1, 64),
		strconv.FormatFloat(r.To, 'f', -1, 64))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`/`, `\/`,
	`.`, `\.`,
	`,`, `\,`,
	`:`, `\:`,
)

// vectorToBytes encodes a vector as little-endian FLOAT32, the layout FT vector fields expect.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// VectorToBytes exposes the FLOAT32 blob encoding for writers that store vectors in hashes.
func VectorToBytes(v []float32) string { return vectorToBytes(v) }
