package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/eventdesk/dashboard/pkg/ordering"
)

// ErrUnknownCollection is returned by Repair for a collection nobody registered.
var ErrUnknownCollection = errors.New("content: unknown collection")

// GroupsFunc lists the group keys of a collection.
type GroupsFunc func(ctx context.Context) ([]string, error)

// RepairReport is the outcome of one Repair call.
type RepairReport struct {
	Collection string         `json:"collection"`
	Changed    int            `json:"changed"`
	Groups     map[string]int `json:"groups"`
}

// Repairer compacts every group of the ordered collections.
type Repairer struct {
	seqs   map[string]*ordering.Resequencer
	groups map[string]GroupsFunc
	logger *slog.Logger
}

func NewRepairer(logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{
		seqs:   map[string]*ordering.Resequencer{},
		groups: map[string]GroupsFunc{},
		logger: logger.With("component", "repair"),
	}
}

// Register adds a collection under seq.Collection().
func (r *Repairer) Register(seq *ordering.Resequencer, groups GroupsFunc) {
	r.seqs[seq.Collection()] = seq
	r.groups[seq.Collection()] = groups
}

// Collections returns the registered collection names, sorted.
func (r *Repairer) Collections() []string {
	out := make([]string, 0, len(r.seqs))
	for name := range r.seqs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Repair compacts every group of collection and reports how many rows moved.
func (r *Repairer) Repair(ctx context.Context, collection string) (RepairReport, error) {
	seq, ok := r.seqs[collection]
	if !ok {
		return RepairReport{}, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	groups, err := r.groups[collection](ctx)
	if err != nil {
		return RepairReport{}, fmt.Errorf("list groups of %s: %w", collection, err)
	}

	report := RepairReport{Collection: collection, Groups: map[string]int{}}
	for _, g := range groups {
		n, err := seq.Compact(ctx, g)
		if err != nil {
			return report, fmt.Errorf("compact %s/%s: %w", collection, g, err)
		}
		report.Groups[g] = n
		report.Changed += n
	}
	r.logger.InfoContext(ctx, "collection repaired", "collection", collection, "changed", report.Changed)
	return report, nil
}

// Verify reports the first group of collection that breaks contiguity.
func (r *Repairer) Verify(ctx context.Context, collection string) error {
	seq, ok := r.seqs[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	groups, err := r.groups[collection](ctx)
	if err != nil {
		return fmt.Errorf("list groups of %s: %w", collection, err)
	}
	for _, g := range groups {
		if err := seq.Verify(ctx, g); err != nil {
			return err
		}
	}
	return nil
}
