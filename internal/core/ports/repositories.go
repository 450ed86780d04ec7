package ports

import (
	"context"

	"github.com/samirrijal/photoeye/internal/core/domain"
)

// PhotoRepository persists archived captures.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.Photo) error
	GetByID(ctx context.Context, id int64) (*domain.Photo, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Photo, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id int64) error
	SetThumbnail(ctx context.Context, id int64, url string) error
}
