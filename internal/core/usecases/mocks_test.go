package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
)

// --- Mock ImageryClient ---

type mockImagery struct {
	staticImageFn func(ctx context.Context, q ports.StaticImageQuery) (*domain.Image, error)
	metadataFn    func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error)
}

func (m *mockImagery) StaticImage(ctx context.Context, q ports.StaticImageQuery) (*domain.Image, error) {
	if m.staticImageFn != nil {
		return m.staticImageFn(ctx, q)
	}
	return &domain.Image{Data: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"}, nil
}

func (m *mockImagery) PanoramaMetadata(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
	if m.metadataFn != nil {
		return m.metadataFn(ctx, lat, lng, radius)
	}
	return nil, domain.ErrNoImagery
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error)
	forwardFn func(ctx context.Context, address string) ([]domain.GeocodeResult, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, lat, lng)
	}
	return nil, nil
}

func (m *mockGeocoder) Forward(ctx context.Context, address string) ([]domain.GeocodeResult, error) {
	if m.forwardFn != nil {
		return m.forwardFn(ctx, address)
	}
	return nil, nil
}

// --- Mock PhotoRepository ---

type mockPhotoRepo struct {
	createFn       func(ctx context.Context, p *domain.Photo) error
	getByIDFn      func(ctx context.Context, id int64) (*domain.Photo, error)
	listByUserFn   func(ctx context.Context, userID string, offset, limit int) ([]domain.Photo, error)
	countByUserFn  func(ctx context.Context, userID string) (int, error)
	deleteFn       func(ctx context.Context, id int64) error
	setThumbnailFn func(ctx context.Context, id int64, url string) error
}

func (m *mockPhotoRepo) Create(ctx context.Context, p *domain.Photo) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = 1
	return nil
}

func (m *mockPhotoRepo) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPhotoRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Photo, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, offset, limit)
	}
	return nil, nil
}

func (m *mockPhotoRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockPhotoRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPhotoRepo) SetThumbnail(ctx context.Context, id int64, url string) error {
	if m.setThumbnailFn != nil {
		return m.setThumbnailFn(ctx, id, url)
	}
	return nil
}

// --- In-memory ObjectStorage ---

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) PutObject(ctx context.Context, key, contentType string, body []byte, cacheControl string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[key] = body
	m.types[key] = contentType
	return "https://cdn.example.test/" + key, nil
}

func (m *memStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return b, m.types[key], nil
}

func (m *memStorage) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	publishFn func(ctx context.Context, e *domain.CaptureEvent) error
	events    []*domain.CaptureEvent
}

func (m *mockPublisher) PublishPhotoCaptured(ctx context.Context, e *domain.CaptureEvent) error {
	m.events = append(m.events, e)
	if m.publishFn != nil {
		return m.publishFn(ctx, e)
	}
	return nil
}
