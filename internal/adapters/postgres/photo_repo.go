package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
)

var _ ports.PhotoRepository = (*PhotoRepo)(nil)

// PhotoRepo implements ports.PhotoRepository with pgx.
type PhotoRepo struct {
	db *DB
}

// NewPhotoRepo creates a new PhotoRepo.
func NewPhotoRepo(db *DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

const photoColumns = `id, user_id, image_url, COALESCE(thumbnail_url, ''), storage_path,
	COALESCE(place_name, ''), metadata, created_at`

// Create inserts a photo and fills its ID.
func (r *PhotoRepo) Create(ctx context.Context, p *domain.Photo) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO photos (user_id, image_url, storage_path, place_name, metadata, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id
	`, p.UserID, p.ImageURL, p.StoragePath, p.PlaceName, p.Metadata, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// GetByID returns one photo or domain.ErrNotFound.
func (r *PhotoRepo) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	p, err := pgx.CollectOneRow(rows, scanPhoto)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's photos, newest first.
func (r *PhotoRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Photo, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanPhoto)
}

// CountByUser returns the size of the user's album.
func (r *PhotoRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM photos WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// Delete removes a photo row.
func (r *PhotoRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetThumbnail records the thumbnail URL of a photo.
func (r *PhotoRepo) SetThumbnail(ctx context.Context, id int64, url string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE photos SET thumbnail_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPhoto(row pgx.CollectableRow) (domain.Photo, error) {
	var p domain.Photo
	err := row.Scan(
		&p.ID, &p.UserID, &p.ImageURL, &p.ThumbnailURL, &p.StoragePath,
		&p.PlaceName, &p.Metadata, &p.CreatedAt,
	)
	return p, err
}
