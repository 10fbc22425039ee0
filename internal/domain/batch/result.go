package batch

// ItemStatus is the indexing outcome of a single record.
type ItemStatus string

// Item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of indexing one record. Line is the 1-based source row, 0 when unknown.
type Result struct {
	id     string
	line   int
	status ItemStatus
	err    error
}

// NewOK creates a successful result.
func NewOK(id string, line int) Result { return Result{id: id, line: line, status: StatusOK} }

// NewSkipped creates a result for a record that was logged and skipped.
func NewSkipped(id string, line int, err error) Result {
	return Result{id: id, line: line, status: StatusSkipped, err: err}
}

// ID returns the record identifier.
func (r Result) ID() string { return r.id }

// Line returns the source row number.
func (r Result) Line() int { return r.line }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates results of one indexing run.
type Summary struct {
	Indexed int
	Skipped int
	Batches int
}

// Summarize counts outcomes.
func Summarize(results []Result, batches int) Summary {
	s := Summary{Batches: batches}
	for _, r := range results {
		if r.status == StatusOK {
			s.Indexed++
		} else {
			s.Skipped++
		}
	}
	return s
}
