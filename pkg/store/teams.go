package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

const teamColumns = `id, name, title, photo, twitter, linkedin, telegram, order_index, created_at, deleted_at`

// TeamStore persists team members.
type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) Ordering() *OrderedTable {
	return NewOrderedTable(s.db, "teams", "")
}

func (s *TeamStore) List(ctx context.Context) ([]contracts.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE deleted_at IS NULL ORDER BY order_index, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.TeamMember
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TeamStore) Get(ctx context.Context, id string) (contracts.TeamMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND deleted_at IS NULL`, id)
	m, err := scanTeamMember(row)
	if err != nil {
		return contracts.TeamMember{}, fmt.Errorf("get team member %s: %w", id, classify(err))
	}
	return m, nil
}

func (s *TeamStore) Insert(ctx context.Context, m contracts.TeamMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, title, photo, twitter, linkedin, telegram, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.Name, m.Title, m.Photo, m.Twitter, m.LinkedIn, m.Telegram, m.OrderIndex, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert team member: %w", classify(err))
	}
	return nil
}

func (s *TeamStore) Update(ctx context.Context, m contracts.TeamMember) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE teams SET name = $1, title = $2, photo = $3, twitter = $4, linkedin = $5, telegram = $6
		WHERE id = $7 AND deleted_at IS NULL`,
		m.Name, m.Title, m.Photo, m.Twitter, m.LinkedIn, m.Telegram, m.ID)
	if err != nil {
		return fmt.Errorf("update team member %s: %w", m.ID, classify(err))
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("update team member %s: %w", m.ID, err)
	}
	return nil
}

func scanTeamMember(r scanner) (contracts.TeamMember, error) {
	var m contracts.TeamMember
	err := r.Scan(&m.ID, &m.Name, &m.Title, &m.Photo, &m.Twitter, &m.LinkedIn, &m.Telegram, &m.OrderIndex, &m.CreatedAt, &m.DeletedAt)
	return m, err
}
