package ports

import (
	"context"

	"github.com/samirrijal/photoeye/internal/core/domain"
)

// StaticImageQuery is a fully resolved request for one static street-level image.
type StaticImageQuery struct {
	Lat     float64
	Lng     float64
	Heading int
	Pitch   int
	FOV     int
	Size    string
	Format  domain.ImageFormat
}

// ImageryClient talks to the upstream static imagery service.
type ImageryClient interface {
	// StaticImage fetches one image. Non-success upstream statuses come back
	// as *domain.CaptureError.
	StaticImage(ctx context.Context, q StaticImageQuery) (*domain.Image, error)
	// PanoramaMetadata finds the panorama nearest to a point within radius.
	// It returns domain.ErrNoImagery when nothing is found.
	PanoramaMetadata(ctx context.Context, lat, lng float64, radiusMeters int) (*domain.Panorama, error)
}

// Geocoder converts between coordinates and place descriptions.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error)
	Forward(ctx context.Context, address string) ([]domain.GeocodeResult, error)
}
