package mode

// Mode selects how facet selections are applied after fusion.
type Mode string

// Filter mode constants.
const (
	// Filter hard-excludes: AND across categories, OR within a category.
	Filter Mode = "filter"
	// Boost scores facet matches additively and drops zero-match documents.
	Boost Mode = "boost"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Filter || m == Boost
}
