package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ideasearch/internal/domain"
	"github.com/kailas-cloud/ideasearch/internal/domain/idea"
)

// Row is one parsed data row of an ideas export. Err is set when the row is unusable.
type Row struct {
	Line   int
	Record idea.Record
	Err    error
}

// timeLayouts are the created_at/updated_at formats accepted, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// columns maps header names to record setters. "id" and "idea_id" are both accepted.
var columns = map[string]func(r *idea.Record, v string) error{
	"id":                    func(r *idea.Record, v string) error { r.ID = v; return nil },
	"idea_id":               func(r *idea.Record, v string) error { r.ID = v; return nil },
	"submitter_id":          func(r *idea.Record, v string) error { r.SubmitterID = v; return nil },
	"title":                 func(r *idea.Record, v string) error { r.Title = v; return nil },
	"summary":               func(r *idea.Record, v string) error { r.Summary = v; return nil },
	"challenge_opportunity": func(r *idea.Record, v string) error { r.Domain = v; return nil },
	"business_group":        func(r *idea.Record, v string) error { r.BusinessGroup = v; return nil },
	"code_preference":       func(r *idea.Record, v string) error { r.TechStack = idea.SplitList(v); return nil },
	"build_phase":           func(r *idea.Record, v string) error { r.BuildPhase = v; return nil },
	"build_preference":      func(r *idea.Record, v string) error { r.BuildPreference = v; return nil },
	"scalability":           func(r *idea.Record, v string) error { r.Scalability = v; return nil },
	"novelty":               func(r *idea.Record, v string) error { r.Novelty = v; return nil },
	"benefits":              func(r *idea.Record, v string) error { r.Benefits = v; return nil },
	"additional_info":       func(r *idea.Record, v string) error { r.AdditionalInfo = v; return nil },
	"expected_outcomes":     func(r *idea.Record, v string) error { r.ExpectedOutcomes = v; return nil },
	"business_model":        func(r *idea.Record, v string) error { r.BusinessModel = v; return nil },
	"prototype_url":         func(r *idea.Record, v string) error { r.PrototypeURL = v; return nil },
	"score": func(r *idea.Record, v string) error {
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.NewValidation("score", fmt.Sprintf("not a number: %q", v))
		}
		r.Score = f
		return nil
	},
	"created_at": func(r *idea.Record, v string) (err error) {
		r.CreatedAt, err = parseTime("created_at", v)
		return err
	},
	"updated_at": func(r *idea.Record, v string) (err error) {
		r.UpdatedAt, err = parseTime("updated_at", v)
		return err
	},
}

// ReadCSV parses an ideas export with a header row. Unknown columns are ignored.
// Malformed rows come back with Err set; only a missing or unreadable header fails the read.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewValidation("csv", "missing header row")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make([]string, len(header))
	hasID := false
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[i] = name
		if name == "id" || name == "idea_id" {
			hasID = true
		}
	}
	if !hasID {
		return nil, domain.NewValidation("csv", "header has no id column")
	}

	var rows []Row
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rows = append(rows, Row{Line: perr.StartLine, Err: domain.NewValidation("csv", perr.Err.Error())})
				continue
			}
			return rows, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, parseRow(line, idx, fields))
	}
	return rows, nil
}

func parseRow(line int, header, fields []string) Row {
	row := Row{Line: line}
	if len(fields) != len(header) {
		row.Err = domain.NewValidation("csv", fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)))
		return row
	}
	for i, name := range header {
		set, ok := columns[name]
		if !ok {
			continue
		}
		if err := set(&row.Record, strings.TrimSpace(fields[i])); err != nil {
			row.Err = err
			return row
		}
	}
	row.Err = row.Record.Validate()
	return row
}

func parseTime(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidation(field, fmt.Sprintf("unrecognized time %q", v))
}
