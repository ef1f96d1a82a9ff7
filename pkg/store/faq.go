package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

// FAQStore persists FAQ entries. Rows are hard-deleted.
type FAQStore struct {
	db *sql.DB
}

func NewFAQStore(db *sql.DB) *FAQStore {
	return &FAQStore{db: db}
}

func (s *FAQStore) List(ctx context.Context) ([]contracts.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_text, answer_text, created_at, updated_at FROM faqs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.FAQ
	for rows.Next() {
		var f contracts.FAQ
		if err := rows.Scan(&f.ID, &f.QuestionText, &f.AnswerText, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FAQStore) Get(ctx context.Context, id string) (contracts.FAQ, error) {
	var f contracts.FAQ
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_text, answer_text, created_at, updated_at FROM faqs WHERE id = $1`, id).
		Scan(&f.ID, &f.QuestionText, &f.AnswerText, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return contracts.FAQ{}, fmt.Errorf("get faq %s: %w", id, classify(err))
	}
	return f, nil
}

func (s *FAQStore) Insert(ctx context.Context, f contracts.FAQ) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faqs (id, question_text, answer_text, created_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.QuestionText, f.AnswerText, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert faq: %w", classify(err))
	}
	return nil
}

func (s *FAQStore) Update(ctx context.Context, f contracts.FAQ) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE faqs SET question_text = $1, answer_text = $2, updated_at = $3 WHERE id = $4`,
		f.QuestionText, f.AnswerText, f.UpdatedAt, f.ID)
	if err != nil {
		return fmt.Errorf("update faq %s: %w", f.ID, classify(err))
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("update faq %s: %w", f.ID, err)
	}
	return nil
}

func (s *FAQStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete faq %s: %w", id, err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("delete faq %s: %w", id, err)
	}
	return nil
}
