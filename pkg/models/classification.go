package models

// Pair is a source and destination record sharing a case-folded path
type Pair struct {
	Source *SourceFile
	Dest   *DestFile
}

// Outcome is the result of comparing one shared pair
type Outcome int

const (
	// OutcomeUnchanged means the destination already matches the source
	OutcomeUnchanged Outcome = iota
	// OutcomeCaseMismatch means the paths differ only by letter case
	OutcomeCaseMismatch
	// OutcomeChanged means the content differs
	OutcomeChanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCaseMismatch:
		return "case_mismatch"
	case OutcomeChanged:
		return "changed"
	default:
		return "unchanged"
	}
}

// Classification partitions the union of source and destination paths.
// Every case-folded path is in exactly one of the four sets, or is unchanged.
// Each set is sorted by case-folded path.
type Classification struct {
	SourceOnly   []*SourceFile
	DestOnly     []*DestFile
	CaseMismatch []Pair
	Changed      []Pair

	// Unchanged is the number of shared paths that already match
	Unchanged int
}

// HasDifference reports whether any action is needed
func (c *Classification) HasDifference() bool {
	return len(c.SourceOnly) > 0 || len(c.DestOnly) > 0 || len(c.CaseMismatch) > 0 || len(c.Changed) > 0
}

// Total returns the number of distinct case-folded paths classified
func (c *Classification) Total() int {
	return len(c.SourceOnly) + len(c.DestOnly) + len(c.CaseMismatch) + len(c.Changed) + c.Unchanged
}
