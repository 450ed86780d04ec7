package streetview

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
)

// Loader builds the Client at most once per process and hands the same client,
// or the same error, to every caller.
type Loader struct {
	load func() (*Client, error)
}

var (
	_ ports.ImageryClient = (*Loader)(nil)
	_ ports.Geocoder      = (*Loader)(nil)
)

// NewLoader defers client construction until first use.
func NewLoader(baseURL, apiKey string, timeout time.Duration) *Loader {
	return &Loader{load: sync.OnceValues(func() (*Client, error) {
		return New(baseURL, apiKey, timeout)
	})}
}

// Load returns the shared client or domain.ErrCredentialMissing.
func (l *Loader) Load() (*Client, error) {
	return l.load()
}

func (l *Loader) StaticImage(ctx context.Context, q ports.StaticImageQuery) (*domain.Image, error) {
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	return c.StaticImage(ctx, q)
}

func (l *Loader) PanoramaMetadata(ctx context.Context, lat, lng float64, radiusMeters int) (*domain.Panorama, error) {
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	return c.PanoramaMetadata(ctx, lat, lng, radiusMeters)
}

func (l *Loader) Reverse(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	return c.Reverse(ctx, lat, lng)
}

func (l *Loader) Forward(ctx context.Context, address string) ([]domain.GeocodeResult, error) {
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	return c.Forward(ctx, address)
}
