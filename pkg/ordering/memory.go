package ordering

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store, mainly for tests.
// InTx restores a full snapshot on failure, so it is only atomic with respect to
// operations that are serialized by the same Locker.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[string]Item
	deleted map[string]time.Time
	fail    map[string]error
	writes  int
}

// NewMemoryStore returns a store holding items.
func NewMemoryStore(items ...Item) *MemoryStore {
	m := &MemoryStore{
		items:   make(map[string]Item),
		deleted: make(map[string]time.Time),
		fail:    make(map[string]error),
	}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

// Put inserts or replaces an item.
func (m *MemoryStore) Put(it Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	delete(m.deleted, it.ID)
}

// FailOn makes every later write to id return err. A nil err clears the fault.
func (m *MemoryStore) FailOn(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, id)
		return
	}
	m.fail[id] = err
}

// Writes returns the number of successful writes so far.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Snapshot returns the IDs of group in order.
func (m *MemoryStore) Snapshot(group string) []string {
	items, _ := m.List(context.Background(), group)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Indices returns id -> order_index for every live item of group.
func (m *MemoryStore) Indices(group string) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for id, it := range m.items {
		if _, gone := m.deleted[id]; gone || it.Group != group {
			continue
		}
		out[id] = it.OrderIndex
	}
	return out
}

// DeletedAt reports when id was soft-deleted.
func (m *MemoryStore) DeletedAt(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.deleted[id]
	return t, ok
}

func (m *MemoryStore) Get(_ context.Context, id string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if _, gone := m.deleted[id]; gone {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return it, nil
}

func (m *MemoryStore) Range(ctx context.Context, group string, lo, hi int) ([]Item, error) {
	all, err := m.List(ctx, group)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range all {
		if it.OrderIndex >= lo && it.OrderIndex <= hi {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MemoryStore) List(_ context.Context, group string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for id, it := range m.items {
		if _, gone := m.deleted[id]; gone || it.Group != group {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context, group string) (int, error) {
	items, err := m.List(ctx, group)
	return len(items), err
}

func (m *MemoryStore) SetIndex(_ context.Context, id string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[id]; err != nil {
		return err
	}
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	it.OrderIndex = index
	m.items[id] = it
	m.writes++
	return nil
}

func (m *MemoryStore) SetGroup(_ context.Context, id, group string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[id]; err != nil {
		return err
	}
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	it.Group = group
	it.OrderIndex = index
	m.items[id] = it
	m.writes++
	return nil
}

func (m *MemoryStore) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[id]; err != nil {
		return err
	}
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	m.deleted[id] = at
	m.writes++
	return nil
}

// InTx runs fn against m and restores the previous state if fn fails.
func (m *MemoryStore) InTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	items := make(map[string]Item, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	deleted := make(map[string]time.Time, len(m.deleted))
	for k, v := range m.deleted {
		deleted[k] = v
	}
	writes := m.writes
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.items, m.deleted, m.writes = items, deleted, writes
		m.mu.Unlock()
		return err
	}
	return nil
}

var (
	_ Store      = (*MemoryStore)(nil)
	_ Regrouper  = (*MemoryStore)(nil)
	_ Transactor = (*MemoryStore)(nil)
)
