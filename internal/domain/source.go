package domain

// Source represents the provenance of a token candidate.
type Source string

const (
	SourceTrending Source = "trending"
	SourceForced   Source = "forced"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}
