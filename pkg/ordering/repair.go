package ordering

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InvariantError describes a group whose indices are not exactly {0..n-1}.
type InvariantError struct {
	Group string `json:"group"`
	// Gaps are the indices in [0, n) that no item holds.
	Gaps []int `json:"gaps,omitempty"`
	// Duplicates maps an index to the items sharing it.
	Duplicates map[int][]string `json:"duplicates,omitempty"`
	// Outside lists items whose index is negative or >= n.
	Outside []string `json:"outside,omitempty"`
}

func (e *InvariantError) Error() string {
	var parts []string
	if len(e.Gaps) > 0 {
		parts = append(parts, fmt.Sprintf("gaps at %v", e.Gaps))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicated indices", len(e.Duplicates)))
	}
	if len(e.Outside) > 0 {
		parts = append(parts, fmt.Sprintf("out of range: %s", strings.Join(e.Outside, ",")))
	}
	return fmt.Sprintf("ordering: group %q is not contiguous: %s", e.Group, strings.Join(parts, "; "))
}

// Verify reports whether the group's indices form {0..n-1}. It returns nil or an *InvariantError.
func (r *Resequencer) Verify(ctx context.Context, group string) error {
	items, err := r.store.List(ctx, group)
	if err != nil {
		return fmt.Errorf("ordering: list group %q: %w", group, err)
	}
	return check(group, items)
}

func check(group string, items []Item) error {
	n := len(items)
	seen := make(map[int][]string, n)
	ie := &InvariantError{Group: group}
	for _, it := range items {
		if it.OrderIndex < 0 || it.OrderIndex >= n {
			ie.Outside = append(ie.Outside, it.ID)
			continue
		}
		seen[it.OrderIndex] = append(seen[it.OrderIndex], it.ID)
	}
	for i := 0; i < n; i++ {
		ids := seen[i]
		switch {
		case len(ids) == 0:
			ie.Gaps = append(ie.Gaps, i)
		case len(ids) > 1:
			if ie.Duplicates == nil {
				ie.Duplicates = make(map[int][]string)
			}
			ie.Duplicates[i] = ids
		}
	}
	if len(ie.Gaps) == 0 && len(ie.Duplicates) == 0 && len(ie.Outside) == 0 {
		return nil
	}
	return ie
}

// Compact renumbers the group to {0..n-1}, keeping the current relative order
// (order_index, then created_at, then id). It returns the number of rows rewritten.
func (r *Resequencer) Compact(ctx context.Context, group string) (changed int, err error) {
	ctx, span := r.tracer.Start(ctx, "ordering.Compact", trace.WithAttributes(
		attribute.String("ordering.collection", r.collection),
		attribute.String("ordering.group", group),
	))
	defer func() {
		span.SetAttributes(attribute.Int("ordering.changed", changed))
		endSpan(span, err)
	}()

	unlock, err := r.locker.Lock(ctx, r.lockKey(group))
	if err != nil {
		return 0, fmt.Errorf("ordering: lock group %q: %w", group, err)
	}
	defer unlock()

	err = r.run(ctx, func(s Store) error {
		changed = 0
		items, err := s.List(ctx, group)
		if err != nil {
			return fmt.Errorf("ordering: list group %q: %w", group, err)
		}
		var applied []string
		for i, it := range items {
			if it.OrderIndex == i {
				continue
			}
			if err := s.SetIndex(ctx, it.ID, i); err != nil {
				return &ShiftError{MovedID: it.ID, FailedID: it.ID, Applied: applied, Err: err}
			}
			applied = append(applied, it.ID)
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		r.logger.InfoContext(ctx, "group compacted", "group", group, "changed", changed)
	}
	return changed, nil
}
