package structure

import "fmt"

// renumberWrite is one pending ordinal update for a slot row.
type renumberWrite struct {
	SlotID  string
	Ordinal int
}

// compileRenumber turns an old→new ordinal permutation into two write batches
// that are safe under a unique (quiz, ordinal) index. The first batch parks
// every affected row at the negated target ordinal, a range disjoint from all
// live ordinals, and the second batch writes the final values. Applying the
// batches in order never produces a transient duplicate, whatever the cycle
// structure of the permutation.
func compileRenumber(slots []Slot, perm map[int]int) (park, final []renumberWrite, err error) {
	if err := validatePerm(slots, perm); err != nil {
		return nil, nil, err
	}
	for _, s := range slots {
		n, ok := perm[s.Ordinal]
		if !ok || n == s.Ordinal {
			continue
		}
		park = append(park, renumberWrite{SlotID: s.ID, Ordinal: -n})
		final = append(final, renumberWrite{SlotID: s.ID, Ordinal: n})
	}
	return park, final, nil
}

// validatePerm rejects mappings that are not injective or that reference
// ordinals the quiz does not have. A bad mapping is a caller bug; failing
// here keeps the unique index from producing a confusing constraint error
// mid-transaction.
func validatePerm(slots []Slot, perm map[int]int) error {
	have := make(map[int]bool, len(slots))
	for _, s := range slots {
		have[s.Ordinal] = true
	}
	seen := make(map[int]bool, len(perm))
	for from, to := range perm {
		if !have[from] {
			return fmt.Errorf("renumber: unknown ordinal %d", from)
		}
		if to < 1 || to > len(slots) {
			return fmt.Errorf("renumber: target ordinal %d out of range 1..%d", to, len(slots))
		}
		if seen[to] {
			return fmt.Errorf("renumber: duplicate target ordinal %d", to)
		}
		seen[to] = true
	}
	// Targets already used by unmoved rows must not be claimed.
	for _, s := range slots {
		if _, moved := perm[s.Ordinal]; moved {
			continue
		}
		if seen[s.Ordinal] {
			return fmt.Errorf("renumber: target ordinal %d collides with unmoved slot", s.Ordinal)
		}
	}
	return nil
}
