package usecases

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/pkg/imagedata"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/pkg/telemetry"
)

// Album listing and thumbnail defaults.
const (
	DefaultAlbumLimit = 24
	MaxAlbumLimit     = 100
	ThumbnailWidth    = 320
)

// AlbumService manages a user's archived captures.
type AlbumService struct {
	photos  ports.PhotoRepository
	storage ports.ObjectStorage
}

// NewAlbumService creates a new AlbumService.
func NewAlbumService(photos ports.PhotoRepository, storage ports.ObjectStorage) *AlbumService {
	return &AlbumService{photos: photos, storage: storage}
}

// List returns one page of the user's photos, newest first, and the total count.
func (s *AlbumService) List(ctx context.Context, userID string, offset, limit int) ([]domain.Photo, int, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("%w: user id", domain.ErrMissingParameters)
	}
	if limit <= 0 {
		limit = DefaultAlbumLimit
	}
	if limit > MaxAlbumLimit {
		limit = MaxAlbumLimit
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.photos.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count photos: %w", err)
	}
	photos, err := s.photos.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list photos: %w", err)
	}
	return photos, total, nil
}

// Get returns one photo owned by userID. Photos of other users are not found.
func (s *AlbumService) Get(ctx context.Context, userID string, id int64) (*domain.Photo, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if photo == nil || photo.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return photo, nil
}

// Delete removes the row, the stored image and its thumbnail.
func (s *AlbumService) Delete(ctx context.Context, userID string, id int64) error {
	photo, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.photos.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete photo %d: %w", id, err)
	}

	if s.storage == nil {
		return nil
	}
	log := logging.FromContext(ctx)
	if err := s.storage.DeleteObject(ctx, photo.StoragePath); err != nil {
		log.Warn("delete stored capture", "key", photo.StoragePath, "error", err)
	}
	if photo.ThumbnailURL != "" {
		if err := s.storage.DeleteObject(ctx, ThumbnailKey(photo.StoragePath)); err != nil {
			log.Warn("delete thumbnail", "photo_id", id, "error", err)
		}
	}
	return nil
}

// ThumbnailKey maps a capture key to its thumbnail key.
func ThumbnailKey(storagePath string) string {
	base := strings.TrimSuffix(path.Base(storagePath), path.Ext(storagePath))
	return "thumbnails/" + base + ".jpg"
}

// Thumbnail renders a 320px wide JPEG for a captured photo and records its URL.
func (s *AlbumService) Thumbnail(ctx context.Context, event *domain.CaptureEvent) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("thumbnail: object storage not configured")
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanThumbnail)
	defer span.End()

	data, _, err := s.storage.GetObject(ctx, event.StoragePath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("thumbnail: fetch %s: %w", event.StoragePath, err)
	}
	thumb, err := imagedata.Thumbnail(data, ThumbnailWidth)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("thumbnail: %w", err)
	}

	url, err := s.storage.PutObject(ctx, ThumbnailKey(event.StoragePath), "image/jpeg", thumb, CaptureCacheControl)
	if err != nil {
		return "", fmt.Errorf("thumbnail: upload: %w", err)
	}
	if err := s.photos.SetThumbnail(ctx, event.PhotoID, url); err != nil {
		return "", fmt.Errorf("thumbnail: record: %w", err)
	}
	return url, nil
}
