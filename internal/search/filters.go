package search

import (
	"strings"

	"github.com/naragtive/naragtive/internal/store"
)

// Filter restricts candidates by metadata after stage-1 scoring. All
// set fields must match. Matching is case-insensitive; dates compare
// lexically, which is correct for ISO YYYY-MM-DD strings.
type Filter struct {
	// Location matches the scene location exactly.
	Location string

	// POV matches the point-of-view character.
	POV string

	// Character must appear in the characters-present list.
	Character string

	// DateFrom and DateTo bound the in-world date, inclusive. Either
	// may be empty.
	DateFrom string
	DateTo   string
}

// Empty reports whether no constraint is set.
func (f *Filter) Empty() bool {
	return f == nil ||
		(f.Location == "" && f.POV == "" && f.Character == "" && f.DateFrom == "" && f.DateTo == "")
}

// Matches reports whether a record satisfies every set constraint.
func (f *Filter) Matches(meta *store.Metadata) bool {
	if f.Empty() {
		return true
	}

	if f.Location != "" && !strings.EqualFold(meta.Location, f.Location) {
		return false
	}
	if f.POV != "" && !strings.EqualFold(meta.POV, f.POV) {
		return false
	}
	if f.Character != "" && !containsFold(meta.Characters, f.Character) {
		return false
	}
	if f.DateFrom != "" && meta.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && meta.Date > f.DateTo {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
