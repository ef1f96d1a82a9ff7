package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

const partnerColumns = `id, title, logo, link, type, order_index, created_at, deleted_at`

// PartnerStore persists partners. The type column is the ordering group.
type PartnerStore struct {
	db *sql.DB
}

func NewPartnerStore(db *sql.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

// Ordering returns the re-sequencer view of the partners table, grouped by type.
func (s *PartnerStore) Ordering() *OrderedTable {
	return NewOrderedTable(s.db, "partners", "type")
}

// List returns live partners. An empty typ returns every tier.
func (s *PartnerStore) List(ctx context.Context, typ contracts.PartnerType) ([]contracts.Partner, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if typ == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+partnerColumns+` FROM partners WHERE deleted_at IS NULL ORDER BY type, order_index, created_at, id`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+partnerColumns+` FROM partners WHERE type = $1 AND deleted_at IS NULL ORDER BY order_index, created_at, id`, string(typ))
	}
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PartnerStore) Get(ctx context.Context, id string) (contracts.Partner, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanPartner(row)
	if err != nil {
		return contracts.Partner{}, fmt.Errorf("get partner %s: %w", id, classify(err))
	}
	return p, nil
}

func (s *PartnerStore) Insert(ctx context.Context, p contracts.Partner) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO partners (id, title, logo, link, type, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Title, p.Logo, p.Link, string(p.Type), p.OrderIndex, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert partner: %w", classify(err))
	}
	return nil
}

// Update writes title, logo and link. Type and order_index change only through the re-sequencer.
func (s *PartnerStore) Update(ctx context.Context, p contracts.Partner) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE partners SET title = $1, logo = $2, link = $3
		WHERE id = $4 AND deleted_at IS NULL`,
		p.Title, p.Logo, p.Link, p.ID)
	if err != nil {
		return fmt.Errorf("update partner %s: %w", p.ID, classify(err))
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("update partner %s: %w", p.ID, err)
	}
	return nil
}

func scanPartner(r scanner) (contracts.Partner, error) {
	var (
		p   contracts.Partner
		typ string
	)
	err := r.Scan(&p.ID, &p.Title, &p.Logo, &p.Link, &typ, &p.OrderIndex, &p.CreatedAt, &p.DeletedAt)
	p.Type = contracts.PartnerType(typ)
	return p, err
}
