package ordering

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestReorderKeepsGroupContiguous checks that any sequence of valid moves leaves
// indices {0..n-1} and preserves the set of items.
// Property: Verify(group) == nil after every Reorder
func TestReorderKeepsGroupContiguous(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("reorder preserves contiguity", prop.ForAll(
		func(size int, moves []int) bool {
			ids := make([]string, size)
			for i := range ids {
				ids[i] = fmt.Sprintf("i%d", i)
			}
			m := seedGroup("", ids...)
			r := New("speakers", m)
			ctx := context.Background()

			for k := 0; k+1 < len(moves); k += 2 {
				id := ids[moves[k]%size]
				to := moves[k+1] % size
				if err := r.Reorder(ctx, id, to, ""); err != nil {
					return false
				}
				if m.Indices("")[id] != to {
					return false
				}
				if r.Verify(ctx, "") != nil {
					return false
				}
			}
			return len(m.Snapshot("")) == size
		},
		gen.IntRange(1, 15),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("moving out and back restores the order", prop.ForAll(
		func(size, from, to int) bool {
			from, to = from%size, to%size
			ids := make([]string, size)
			for i := range ids {
				ids[i] = fmt.Sprintf("i%d", i)
			}
			m := seedGroup("", ids...)
			r := New("speakers", m)
			ctx := context.Background()
			before := m.Snapshot("")

			if r.Reorder(ctx, ids[from], to, "") != nil {
				return false
			}
			if r.Reorder(ctx, ids[from], from, "") != nil {
				return false
			}
			after := m.Snapshot("")
			for i := range before {
				if before[i] != after[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
