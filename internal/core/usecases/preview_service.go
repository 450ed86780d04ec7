package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
)

// PreviewTTL bounds the life of a preview handle.
const PreviewTTL = 5 * time.Minute

// PreviewService issues short-lived, revocable handles for captured images.
type PreviewService struct {
	cache ports.CacheService
	ttl   time.Duration
	now   func() time.Time
}

// NewPreviewService creates a new PreviewService backed by cache.
func NewPreviewService(cache ports.CacheService) *PreviewService {
	return &PreviewService{cache: cache, ttl: PreviewTTL, now: time.Now}
}

type storedPreview struct {
	MimeType string                 `json:"mime_type"`
	Data     []byte                 `json:"data"`
	Metadata domain.CaptureMetadata `json:"metadata"`
}

func previewKey(handle string) string { return "preview:" + handle }

// Create stores a successful capture and returns its handle.
func (s *PreviewService) Create(ctx context.Context, res *domain.CaptureResult) (*domain.Preview, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("create preview: cache not configured")
	}
	if !res.OK() {
		return nil, fmt.Errorf("create preview: %w", res.Err)
	}

	payload, err := json.Marshal(storedPreview{
		MimeType: res.Image.MimeType,
		Data:     res.Image.Data,
		Metadata: res.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}

	handle := uuid.NewString()
	if err := s.cache.Set(ctx, previewKey(handle), payload, s.ttl); err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	return &domain.Preview{
		Handle:    handle,
		ExpiresAt: s.now().UTC().Add(s.ttl),
		Metadata:  res.Metadata,
	}, nil
}

// Open returns the image behind a handle. Expired, revoked and unknown
// handles are domain.ErrNotFound.
func (s *PreviewService) Open(ctx context.Context, handle string) (*domain.Image, *domain.CaptureMetadata, error) {
	if s.cache == nil {
		return nil, nil, domain.ErrNotFound
	}
	if _, err := uuid.Parse(handle); err != nil {
		return nil, nil, domain.ErrNotFound
	}
	data, err := s.cache.Get(ctx, previewKey(handle))
	if err != nil {
		return nil, nil, err
	}
	var p storedPreview
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil, fmt.Errorf("open preview: %w", err)
	}
	return &domain.Image{Data: p.Data, MimeType: p.MimeType}, &p.Metadata, nil
}

// Revoke drops a handle before it expires.
func (s *PreviewService) Revoke(ctx context.Context, handle string) error {
	if s.cache == nil {
		return nil
	}
	if _, err := uuid.Parse(handle); err != nil {
		return domain.ErrNotFound
	}
	return s.cache.Delete(ctx, previewKey(handle))
}
