package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

// AboutStore persists about-page images. order_index is the slot number.
type AboutStore struct {
	db *sql.DB
}

func NewAboutStore(db *sql.DB) *AboutStore {
	return &AboutStore{db: db}
}

func (s *AboutStore) List(ctx context.Context) ([]contracts.AboutImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, image_url, order_index, created_at FROM about_images ORDER BY order_index, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list about images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.AboutImage
	for rows.Next() {
		var img contracts.AboutImage
		if err := rows.Scan(&img.ID, &img.Name, &img.ImageURL, &img.OrderIndex, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AboutStore) Get(ctx context.Context, id string) (contracts.AboutImage, error) {
	var img contracts.AboutImage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, image_url, order_index, created_at FROM about_images WHERE id = $1`, id).
		Scan(&img.ID, &img.Name, &img.ImageURL, &img.OrderIndex, &img.CreatedAt)
	if err != nil {
		return contracts.AboutImage{}, fmt.Errorf("get about image %s: %w", id, classify(err))
	}
	return img, nil
}

// InSlot returns the images currently occupying slot.
func (s *AboutStore) InSlot(ctx context.Context, slot int) ([]contracts.AboutImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, image_url, order_index, created_at FROM about_images WHERE order_index = $1`, slot)
	if err != nil {
		return nil, fmt.Errorf("query about slot %d: %w", slot, err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.AboutImage
	for rows.Next() {
		var img contracts.AboutImage
		if err := rows.Scan(&img.ID, &img.Name, &img.ImageURL, &img.OrderIndex, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *AboutStore) Insert(ctx context.Context, img contracts.AboutImage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO about_images (id, name, image_url, order_index, created_at) VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.Name, img.ImageURL, img.OrderIndex, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert about image: %w", classify(err))
	}
	return nil
}

func (s *AboutStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM about_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete about image %s: %w", id, err)
	}
	if err := mustAffect(res); err != nil {
		return fmt.Errorf("delete about image %s: %w", id, err)
	}
	return nil
}
