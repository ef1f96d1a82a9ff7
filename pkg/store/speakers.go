package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

const speakerColumns = `id, name, title, photo, twitter, linkedin, order_index, created_at, deleted_at`

// SpeakerStore persists speakers.
type SpeakerStore struct {
	db *sql.DB
}

func NewSpeakerStore(db *sql.DB) *SpeakerStore {
	return &SpeakerStore{db: db}
}

// Ordering returns the re-sequencer view of the speakers table.
func (s *SpeakerStore) Ordering() *OrderedTable {
	return NewOrderedTable(s.db, "speakers", "")
}

func (s *SpeakerStore) List(ctx context.Context) ([]contracts.Speaker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+speakerColumns+` FROM speakers WHERE deleted_at IS NULL ORDER BY order_index, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.Speaker
	for rows.Next() {
		sp, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SpeakerStore) Get(ctx context.Context, id string) (contracts.Speaker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+speakerColumns+` FROM speakers WHERE id = $1 AND deleted_at IS NULL`, id)
	sp, err := scanSpeaker(row)
	if err != nil {
		return contracts.Speaker{}, fmt.Errorf("get speaker %s: %w", id, classify(err))
	}
	return sp, nil
}

func (s *SpeakerStore) Insert(ctx context.Context, sp contracts.Speaker) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO speakers (id, name, title, photo, twitter, linkedin, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sp.ID, sp.Name, sp.Title, sp.Photo, sp.Twitter, sp.LinkedIn, sp.OrderIndex, sp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert speaker: %w", classify(err))
	}
	return nil
}

// Update writes the editable fields. order_index is owned by the re-sequencer.
func (s *SpeakerStore) Update(ctx context.Context, sp contracts.Speaker) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE speakers SET name = $1, title = $2, photo = $3, twitter = $4, linkedin = $5
		WHERE id = $6 AND deleted_at IS NULL`,
		sp.Name, sp.Title, sp.Photo, sp.Twitter, sp.LinkedIn, sp.ID)
	if err != nil {
		return fmt.Errorf("update speaker %s: %w", sp.ID, classify(err))
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("update speaker %s: %w", sp.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpeaker(r scanner) (contracts.Speaker, error) {
	var sp contracts.Speaker
	err := r.Scan(&sp.ID, &sp.Name, &sp.Title, &sp.Photo, &sp.Twitter, &sp.LinkedIn, &sp.OrderIndex, &sp.CreatedAt, &sp.DeletedAt)
	return sp, err
}
