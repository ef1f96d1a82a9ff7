// Package ordering keeps the order_index column of a collection contiguous while items move.
//
// Items are partitioned by a group key (a partner tier, or one implicit group for speakers
// and team members). Within a group the non-deleted indices are always {0..n-1} between
// successful operations. Moving an item shifts the siblings between its old and new
// position by one, then writes the moved item last.
//
// Writes are issued one at a time. Concurrent moves inside the same group are serialized
// through a Locker; stores that implement Transactor can additionally run a whole move as
// one atomic unit (ModeAtomic).
package ordering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrItemNotFound is returned when the item does not exist, is soft-deleted,
	// or belongs to another group.
	ErrItemNotFound = errors.New("ordering: item not found")
	// ErrIndexOutOfRange is returned when the target index is outside [0, groupSize).
	ErrIndexOutOfRange = errors.New("ordering: index out of range")
)

// Item is the ordering view of a row.
type Item struct {
	ID         string
	Group      string
	OrderIndex int
	CreatedAt  time.Time
}

// Store is the minimal contract the re-sequencer needs from the backing table.
// Every method only sees non-deleted rows.
type Store interface {
	// Get returns the item or ErrItemNotFound.
	Get(ctx context.Context, id string) (Item, error)
	// Range returns the items of group with lo <= order_index <= hi, ascending.
	Range(ctx context.Context, group string, lo, hi int) ([]Item, error)
	// List returns every item of group ordered by (order_index, created_at, id).
	List(ctx context.Context, group string) ([]Item, error)
	// Count returns the number of items in group.
	Count(ctx context.Context, group string) (int, error)
	// SetIndex persists a new order_index for one item.
	SetIndex(ctx context.Context, id string, index int) error
	// SoftDelete stamps deleted_at on one item.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// Regrouper is implemented by stores whose group key can be rewritten.
type Regrouper interface {
	SetGroup(ctx context.Context, id, group string, index int) error
}

// Transactor is implemented by stores able to run fn as one all-or-nothing unit.
// The Store passed to fn must be used for every read and write inside the unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Mode selects how a multi-row change is committed.
type Mode int

const (
	// ModeSequential commits every write on its own. A failure partway leaves the
	// earlier writes in place and must be repaired with Compact.
	ModeSequential Mode = iota
	// ModeAtomic runs all writes of one operation inside a single transaction when the
	// store supports it, and falls back to ModeSequential otherwise.
	ModeAtomic
)

// ParseMode maps a config string to a Mode. Unknown values yield ModeAtomic.
func ParseMode(s string) Mode {
	if s == "sequential" {
		return ModeSequential
	}
	return ModeAtomic
}

func (m Mode) String() string {
	if m == ModeSequential {
		return "sequential"
	}
	return "atomic"
}

// ShiftError reports a write that failed in the middle of a multi-row change.
type ShiftError struct {
	// MovedID is the item the operation was moving or removing.
	MovedID string
	// FailedID is the item whose update was rejected.
	FailedID string
	// Applied lists the items whose update was committed before the failure,
	// in write order. Empty when RolledBack is set.
	Applied []string
	// RolledBack is set when the store undid every write of the operation.
	RolledBack bool
	Err        error
}

func (e *ShiftError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("ordering: update of %s failed while moving %s (rolled back): %v", e.FailedID, e.MovedID, e.Err)
	}
	return fmt.Sprintf("ordering: update of %s failed while moving %s after %d committed updates, group needs repair: %v",
		e.FailedID, e.MovedID, len(e.Applied), e.Err)
}

func (e *ShiftError) Unwrap() error { return e.Err }

// Resequencer moves, removes and repairs items of one collection.
type Resequencer struct {
	collection string
	store      Store
	locker     Locker
	mode       Mode
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Resequencer.
type Option func(*Resequencer)

// WithLocker replaces the default in-process group locker.
func WithLocker(l Locker) Option {
	return func(r *Resequencer) { r.locker = l }
}

// WithMode selects sequential or atomic commits.
func WithMode(m Mode) Option {
	return func(r *Resequencer) { r.mode = m }
}

// WithClock sets the clock used for soft-delete timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resequencer) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resequencer) { r.logger = l }
}

// New creates a Resequencer for the named collection. The name scopes group locks,
// so two collections with the same group key never block each other.
func New(collection string, store Store, opts ...Option) *Resequencer {
	r := &Resequencer{
		collection: collection,
		store:      store,
		mode:       ModeAtomic,
		now:        time.Now,
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/eventdesk/dashboard/pkg/ordering"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locker == nil {
		r.locker = NewLocalLocker()
	}
	r.logger = r.logger.With("component", "ordering", "collection", collection)
	return r
}

// Collection returns the collection name.
func (r *Resequencer) Collection() string { return r.collection }

// Reorder moves itemID to newIndex inside group.
//
// Siblings between the old and new position are shifted by one toward the vacated
// slot, then the moved item is written. Moving an item to its current index writes
// nothing.
func (r *Resequencer) Reorder(ctx context.Context, itemID string, newIndex int, group string) (err error) {
	ctx, span := r.tracer.Start(ctx, "ordering.Reorder", trace.WithAttributes(
		attribute.String("ordering.collection", r.collection),
		attribute.String("ordering.group", group),
		attribute.String("ordering.item_id", itemID),
		attribute.Int("ordering.new_index", newIndex),
	))
	defer func() { endSpan(span, err) }()

	if newIndex < 0 {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, newIndex)
	}

	unlock, err := r.locker.Lock(ctx, r.lockKey(group))
	if err != nil {
		return fmt.Errorf("ordering: lock group %q: %w", group, err)
	}
	defer unlock()

	return r.run(ctx, func(s Store) error {
		return reorder(ctx, s, itemID, newIndex, group)
	})
}

func reorder(ctx context.Context, s Store, itemID string, newIndex int, group string) error {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Group != group {
		return fmt.Errorf("%w: %s is not in group %q", ErrItemNotFound, itemID, group)
	}

	oldIndex := item.OrderIndex
	if oldIndex == newIndex {
		return nil
	}

	size, err := s.Count(ctx, group)
	if err != nil {
		return fmt.Errorf("ordering: count group %q: %w", group, err)
	}
	if newIndex >= size {
		return fmt.Errorf("%w: %d (group size %d)", ErrIndexOutOfRange, newIndex, size)
	}

	var (
		siblings []Item
		delta    int
	)
	if oldIndex < newIndex {
		siblings, err = s.Range(ctx, group, oldIndex+1, newIndex)
		delta = -1
	} else {
		siblings, err = s.Range(ctx, group, newIndex, oldIndex-1)
		delta = 1
		reverse(siblings)
	}
	if err != nil {
		return fmt.Errorf("ordering: load siblings of %s: %w", itemID, err)
	}

	applied := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		if err := s.SetIndex(ctx, sib.ID, sib.OrderIndex+delta); err != nil {
			return &ShiftError{MovedID: itemID, FailedID: sib.ID, Applied: applied, Err: err}
		}
		applied = append(applied, sib.ID)
	}

	if err := s.SetIndex(ctx, itemID, newIndex); err != nil {
		return &ShiftError{MovedID: itemID, FailedID: itemID, Applied: applied, Err: err}
	}
	return nil
}

// NextIndex returns the index a new item appended to group should take.
func (r *Resequencer) NextIndex(ctx context.Context, group string) (int, error) {
	items, err := r.store.List(ctx, group)
	if err != nil {
		return 0, fmt.Errorf("ordering: list group %q: %w", group, err)
	}
	next := 0
	for _, it := range items {
		if it.OrderIndex >= next {
			next = it.OrderIndex + 1
		}
	}
	return next, nil
}

// Append locks group, computes its next index and calls insert with it, so two
// concurrent creates never receive the same position.
func (r *Resequencer) Append(ctx context.Context, group string, insert func(ctx context.Context, index int) error) (int, error) {
	unlock, err := r.locker.Lock(ctx, r.lockKey(group))
	if err != nil {
		return 0, fmt.Errorf("ordering: lock group %q: %w", group, err)
	}
	defer unlock()

	next, err := r.NextIndex(ctx, group)
	if err != nil {
		return 0, err
	}
	if err := insert(ctx, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Remove soft-deletes itemID and shifts every later sibling down by one.
func (r *Resequencer) Remove(ctx context.Context, itemID, group string) (err error) {
	ctx, span := r.tracer.Start(ctx, "ordering.Remove", trace.WithAttributes(
		attribute.String("ordering.collection", r.collection),
		attribute.String("ordering.group", group),
		attribute.String("ordering.item_id", itemID),
	))
	defer func() { endSpan(span, err) }()

	unlock, err := r.locker.Lock(ctx, r.lockKey(group))
	if err != nil {
		return fmt.Errorf("ordering: lock group %q: %w", group, err)
	}
	defer unlock()

	at := r.now().UTC()
	return r.run(ctx, func(s Store) error {
		item, err := s.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Group != group {
			return fmt.Errorf("%w: %s is not in group %q", ErrItemNotFound, itemID, group)
		}
		if err := s.SoftDelete(ctx, itemID, at); err != nil {
			return fmt.Errorf("ordering: soft delete %s: %w", itemID, err)
		}
		later, err := s.Range(ctx, group, item.OrderIndex+1, math.MaxInt32)
		if err != nil {
			return fmt.Errorf("ordering: load siblings of %s: %w", itemID, err)
		}
		applied := []string{itemID}
		for _, sib := range later {
			if err := s.SetIndex(ctx, sib.ID, sib.OrderIndex-1); err != nil {
				return &ShiftError{MovedID: itemID, FailedID: sib.ID, Applied: applied, Err: err}
			}
			applied = append(applied, sib.ID)
		}
		return nil
	})
}

// Transfer moves itemID from one group to the end of another. The gap left in the
// source group is closed before the item is appended. The store must implement Regrouper.
func (r *Resequencer) Transfer(ctx context.Context, itemID, from, to string) (newIndex int, err error) {
	ctx, span := r.tracer.Start(ctx, "ordering.Transfer", trace.WithAttributes(
		attribute.String("ordering.collection", r.collection),
		attribute.String("ordering.from", from),
		attribute.String("ordering.to", to),
		attribute.String("ordering.item_id", itemID),
	))
	defer func() { endSpan(span, err) }()

	if from == to {
		item, err := r.store.Get(ctx, itemID)
		if err != nil {
			return 0, err
		}
		if item.Group != from {
			return 0, fmt.Errorf("%w: %s is not in group %q", ErrItemNotFound, itemID, from)
		}
		return item.OrderIndex, nil
	}

	// Lock in a fixed order so two opposite transfers cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	unlockFirst, err := r.locker.Lock(ctx, r.lockKey(first))
	if err != nil {
		return 0, fmt.Errorf("ordering: lock group %q: %w", first, err)
	}
	defer unlockFirst()
	unlockSecond, err := r.locker.Lock(ctx, r.lockKey(second))
	if err != nil {
		return 0, fmt.Errorf("ordering: lock group %q: %w", second, err)
	}
	defer unlockSecond()

	err = r.run(ctx, func(s Store) error {
		rg, ok := s.(Regrouper)
		if !ok {
			return fmt.Errorf("ordering: store for %s cannot change groups", r.collection)
		}
		item, err := s.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Group != from {
			return fmt.Errorf("%w: %s is not in group %q", ErrItemNotFound, itemID, from)
		}
		size, err := s.Count(ctx, to)
		if err != nil {
			return fmt.Errorf("ordering: count group %q: %w", to, err)
		}
		later, err := s.Range(ctx, from, item.OrderIndex+1, math.MaxInt32)
		if err != nil {
			return fmt.Errorf("ordering: load siblings of %s: %w", itemID, err)
		}
		var applied []string
		for _, sib := range later {
			if err := s.SetIndex(ctx, sib.ID, sib.OrderIndex-1); err != nil {
				return &ShiftError{MovedID: itemID, FailedID: sib.ID, Applied: applied, Err: err}
			}
			applied = append(applied, sib.ID)
		}
		if err := rg.SetGroup(ctx, itemID, to, size); err != nil {
			return &ShiftError{MovedID: itemID, FailedID: itemID, Applied: applied, Err: err}
		}
		newIndex = size
		return nil
	})
	return newIndex, err
}

func (r *Resequencer) run(ctx context.Context, fn func(Store) error) error {
	tx, ok := r.store.(Transactor)
	if r.mode != ModeAtomic || !ok {
		err := fn(r.store)
		var se *ShiftError
		if errors.As(err, &se) {
			r.logger.WarnContext(ctx, "partial reorder, group needs repair",
				"moved_id", se.MovedID, "failed_id", se.FailedID, "applied", len(se.Applied), "error", se.Err)
		}
		return err
	}

	err := tx.InTx(ctx, fn)
	var se *ShiftError
	if errors.As(err, &se) {
		se.RolledBack = true
		se.Applied = nil
		r.logger.WarnContext(ctx, "reorder rolled back", "moved_id", se.MovedID, "failed_id", se.FailedID, "error", se.Err)
	}
	return err
}

func (r *Resequencer) lockKey(group string) string {
	return r.collection + "/" + group
}

func reverse(items []Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
