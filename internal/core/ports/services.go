package ports

import (
	"context"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
)

// ObjectStorage stores binary objects and returns a public URL for them.
type ObjectStorage interface {
	PutObject(ctx context.Context, key, contentType string, body []byte, cacheControl string) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	DeleteObject(ctx context.Context, key string) error
}

// CacheService provides read-through caching. A missing key is domain.ErrNotFound.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPhotoCaptured(ctx context.Context, event *domain.CaptureEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePhotoCaptured(ctx context.Context, handler func(ctx context.Context, event *domain.CaptureEvent) error) error
}
