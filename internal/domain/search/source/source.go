package source

// Source tags which pipeline stage produced a page, so "did not run" is distinguishable
// from "ran and found nothing".
type Source string

// Source values.
const (
	// None means no stage ran: empty, garbage or term-less queries.
	None     Source = "none"
	Database Source = "database"
	Semantic Source = "semantic"
	Hybrid   Source = "hybrid"
)

// IsValid checks if the source is one of the supported values.
func (s Source) IsValid() bool {
	return s == None || s == Database || s == Semantic || s == Hybrid
}
