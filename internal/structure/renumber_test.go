package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkSlots(n int) []Slot {
	out := make([]Slot, n)
	for i := range out {
		out[i] = Slot{ID: string(rune('a' + i)), Ordinal: i + 1, Page: 1}
	}
	return out
}

func TestCompileRenumberRotation(t *testing.T) {
	slots := mkSlots(5)
	// Move slot 2 to position 4: one cycle touching 2,3,4.
	perm := map[int]int{2: 4, 3: 2, 4: 3}

	park, final, err := compileRenumber(slots, perm)
	require.NoError(t, err)
	require.Len(t, park, 3)
	require.Len(t, final, 3)

	// Park batch writes negated targets, disjoint from live ordinals.
	for i, w := range park {
		assert.Negative(t, w.Ordinal)
		assert.Equal(t, -final[i].Ordinal, w.Ordinal)
		assert.Equal(t, final[i].SlotID, w.SlotID)
	}

	// Simulate applying both batches and check the unique index would hold
	// after every single write.
	ordinals := map[string]int{}
	for _, s := range slots {
		ordinals[s.ID] = s.Ordinal
	}
	apply := func(w renumberWrite) {
		ordinals[w.SlotID] = w.Ordinal
		seen := map[int]bool{}
		for _, o := range ordinals {
			require.False(t, seen[o], "transient duplicate ordinal %d", o)
			seen[o] = true
		}
	}
	for _, w := range park {
		apply(w)
	}
	for _, w := range final {
		apply(w)
	}

	want := map[string]int{"a": 1, "b": 4, "c": 2, "d": 3, "e": 5}
	assert.Equal(t, want, ordinals)
}

func TestCompileRenumberIdentityIsEmpty(t *testing.T) {
	slots := mkSlots(3)
	park, final, err := compileRenumber(slots, map[int]int{1: 1, 2: 2})
	require.NoError(t, err)
	assert.Empty(t, park)
	assert.Empty(t, final)
}

func TestCompileRenumberRejectsBadMappings(t *testing.T) {
	slots := mkSlots(3)

	_, _, err := compileRenumber(slots, map[int]int{7: 1})
	assert.Error(t, err, "unknown source ordinal")

	_, _, err = compileRenumber(slots, map[int]int{1: 9})
	assert.Error(t, err, "target out of range")

	_, _, err = compileRenumber(slots, map[int]int{1: 3, 2: 3})
	assert.Error(t, err, "duplicate target")

	// Target 3 still occupied by the unmoved third slot.
	_, _, err = compileRenumber(slots, map[int]int{1: 3})
	assert.Error(t, err, "collision with unmoved slot")
}
