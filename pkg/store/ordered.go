package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventdesk/dashboard/pkg/ordering"
)

// OrderedTable exposes the order_index column of one table to the re-sequencer.
// Table and column names are compile-time constants of this package.
type OrderedTable struct {
	db    *sql.DB
	q     Querier
	table string
	group string
}

// NewOrderedTable returns the ordering view of table. groupColumn is empty when the
// whole table forms a single group.
func NewOrderedTable(db *sql.DB, table, groupColumn string) *OrderedTable {
	return &OrderedTable{db: db, q: db, table: table, group: groupColumn}
}

// scope returns the WHERE clause selecting the live rows of group and its arguments.
// Callers number their own placeholders from len(args)+1.
func (t *OrderedTable) scope(group string) (string, []any) {
	if t.group == "" {
		return "deleted_at IS NULL", nil
	}
	return t.group + " = $1 AND deleted_at IS NULL", []any{group}
}

func (t *OrderedTable) groupExpr() string {
	if t.group == "" {
		return "''"
	}
	return t.group
}

func (t *OrderedTable) Get(ctx context.Context, id string) (ordering.Item, error) {
	query := fmt.Sprintf(`SELECT id, %s, order_index, created_at FROM %s WHERE id = $1 AND deleted_at IS NULL`,
		t.groupExpr(), t.table)
	var it ordering.Item
	err := t.q.QueryRowContext(ctx, query, id).Scan(&it.ID, &it.Group, &it.OrderIndex, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ordering.Item{}, fmt.Errorf("%w: %s", ordering.ErrItemNotFound, id)
	}
	if err != nil {
		return ordering.Item{}, fmt.Errorf("get %s %s: %w", t.table, id, err)
	}
	return it, nil
}

func (t *OrderedTable) Range(ctx context.Context, group string, lo, hi int) ([]ordering.Item, error) {
	where, args := t.scope(group)
	n := len(args)
	query := fmt.Sprintf(`SELECT id, %s, order_index, created_at FROM %s WHERE %s AND order_index >= $%d AND order_index <= $%d ORDER BY order_index, created_at, id`,
		t.groupExpr(), t.table, where, n+1, n+2)
	return t.query(ctx, query, append(args, lo, hi)...)
}

func (t *OrderedTable) List(ctx context.Context, group string) ([]ordering.Item, error) {
	where, args := t.scope(group)
	query := fmt.Sprintf(`SELECT id, %s, order_index, created_at FROM %s WHERE %s ORDER BY order_index, created_at, id`,
		t.groupExpr(), t.table, where)
	return t.query(ctx, query, args...)
}

func (t *OrderedTable) Count(ctx context.Context, group string) (int, error) {
	where, args := t.scope(group)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, t.table, where)
	var n int
	if err := t.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.table, err)
	}
	return n, nil
}

func (t *OrderedTable) SetIndex(ctx context.Context, id string, index int) error {
	query := fmt.Sprintf(`UPDATE %s SET order_index = $1 WHERE id = $2 AND deleted_at IS NULL`, t.table)
	res, err := t.q.ExecContext(ctx, query, index, id)
	if err != nil {
		return fmt.Errorf("update %s order of %s: %w", t.table, id, err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("%w: %s", ordering.ErrItemNotFound, id)
	}
	return nil
}

// SetGroup moves id into group at index. It fails for tables without a group column.
func (t *OrderedTable) SetGroup(ctx context.Context, id, group string, index int) error {
	if t.group == "" {
		return fmt.Errorf("%s has no group column", t.table)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, order_index = $2 WHERE id = $3 AND deleted_at IS NULL`, t.table, t.group)
	res, err := t.q.ExecContext(ctx, query, group, index, id)
	if err != nil {
		return fmt.Errorf("update %s group of %s: %w", t.table, id, err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("%w: %s", ordering.ErrItemNotFound, id)
	}
	return nil
}

func (t *OrderedTable) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, t.table)
	res, err := t.q.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete %s %s: %w", t.table, id, err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("%w: %s", ordering.ErrItemNotFound, id)
	}
	return nil
}

// Groups returns every group key that has at least one live row.
func (t *OrderedTable) Groups(ctx context.Context) ([]string, error) {
	if t.group == "" {
		return []string{""}, nil
	}
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE deleted_at IS NULL ORDER BY %s`, t.group, t.table, t.group)
	rows, err := t.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s groups: %w", t.table, err)
	}
	defer func() { _ = rows.Close() }()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// InTx runs fn inside one database transaction. Nested calls reuse the open transaction.
func (t *OrderedTable) InTx(ctx context.Context, fn func(ordering.Store) error) error {
	if t.db == nil {
		return fn(t)
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", t.table, err)
	}
	inner := &OrderedTable{q: tx, table: t.table, group: t.group}
	if err := fn(inner); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", t.table, err)
	}
	return nil
}

func (t *OrderedTable) query(ctx context.Context, query string, args ...any) ([]ordering.Item, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer func() { _ = rows.Close() }()

	var items []ordering.Item
	for rows.Next() {
		var it ordering.Item
		if err := rows.Scan(&it.ID, &it.Group, &it.OrderIndex, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var (
	_ ordering.Store      = (*OrderedTable)(nil)
	_ ordering.Regrouper  = (*OrderedTable)(nil)
	_ ordering.Transactor = (*OrderedTable)(nil)
)
