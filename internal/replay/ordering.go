package replay

import (
	"fmt"
	"sort"

	"soulverse-ledger/internal/domain"
)

// SortEntries orders entries by sequence ASC.
func SortEntries(entries []*domain.JournalEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})
}

// CheckContiguous verifies that sorted entries continue directly from after
// with no gaps or repeats.
func CheckContiguous(entries []*domain.JournalEntry, after uint64) error {
	want := after + 1
	for _, e := range entries {
		if e.Sequence != want {
			return fmt.Errorf("%w: expected sequence %d, got %d", ErrInvalidOrdering, want, e.Sequence)
		}
		want++
	}
	return nil
}
