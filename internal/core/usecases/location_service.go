package usecases

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/pkg/metrics"
	"github.com/samirrijal/photoeye/internal/pkg/telemetry"
)

// Location search defaults.
var DefaultSearchRadii = []int{50, 100, 500, 1000, 5000, 10000, 50000}

const (
	DefaultRandomAttempts = 25
	RandomSearchRadius    = 50000
	PlaceNameTTL          = 24 * time.Hour
)

// LocationOptions tunes LocationService. Zero values fall back to the defaults.
type LocationOptions struct {
	SearchRadii    []int
	RandomAttempts int
}

// LocationService finds panoramas and names places.
type LocationService struct {
	imagery  ports.ImageryClient
	geocoder ports.Geocoder
	cache    ports.CacheService

	radii    []int
	attempts int
	rand     func() float64
	group    singleflight.Group
}

// NewLocationService creates a new LocationService. cache may be nil.
func NewLocationService(imagery ports.ImageryClient, geocoder ports.Geocoder, cache ports.CacheService, opts LocationOptions) *LocationService {
	radii := opts.SearchRadii
	if len(radii) == 0 {
		radii = DefaultSearchRadii
	}
	attempts := opts.RandomAttempts
	if attempts <= 0 {
		attempts = DefaultRandomAttempts
	}
	return &LocationService{
		imagery:  imagery,
		geocoder: geocoder,
		cache:    cache,
		radii:    slices.Clone(radii),
		attempts: attempts,
		rand:     rand.Float64,
	}
}

// SetRandom overrides the uniform [0,1) source. Used by tests.
func (s *LocationService) SetRandom(f func() float64) {
	s.rand = f
}

// SearchRadii yields the progressive search radii in meters, smallest first.
func (s *LocationService) SearchRadii() iter.Seq[int] {
	return slices.Values(s.radii)
}

// NearestPanorama widens the search radius until a panorama is found.
// Only "no imagery" advances to the next radius; any other error aborts.
func (s *LocationService) NearestPanorama(ctx context.Context, lat, lng float64) (*domain.Panorama, error) {
	if !geospatial.ValidLatLng(lat, lng) {
		return nil, fmt.Errorf("%w: lat/lng out of range", domain.ErrInvalidParameters)
	}
	if s.imagery == nil {
		return nil, domain.ErrCredentialMissing
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanNearestPanorama)
	defer span.End()

	steps := 0
	for radius := range s.SearchRadii() {
		steps++
		pano, err := s.imagery.PanoramaMetadata(ctx, lat, lng, radius)
		if errors.Is(err, domain.ErrNoImagery) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("panorama metadata (radius %d): %w", radius, err)
		}
		metrics.PanoramaSearchSteps.Observe(float64(steps))
		span.SetAttributes(attribute.Int("search.radius", radius))

		d := geospatial.Haversine(lat, lng, pano.Location.Lat, pano.Location.Lng)
		pano.Distance = &d
		pano.SearchRadius = radius
		return pano, nil
	}
	metrics.PanoramaSearchSteps.Observe(float64(steps))
	return nil, domain.ErrNoImagery
}

// RegionAround returns the bounding box of radiusMeters around a point.
func RegionAround(lat, lng, radiusMeters float64) domain.Bounds {
	minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(lat, lng, radiusMeters)
	return domain.Bounds{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
}

// RandomLocation picks uniformly random points inside region (worldwide when
// nil) until one has outdoor imagery within 50 km, then names it.
func (s *LocationService) RandomLocation(ctx context.Context, region *domain.Bounds) (*domain.Location, error) {
	if s.imagery == nil {
		return nil, domain.ErrCredentialMissing
	}
	b := domain.WorldBounds
	if region != nil {
		b = *region
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRandomLocation)
	defer span.End()

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lat := b.MinLat + s.rand()*(b.MaxLat-b.MinLat)
		lng := b.MinLng + s.rand()*(b.MaxLng-b.MinLng)

		pano, err := s.imagery.PanoramaMetadata(ctx, lat, lng, RandomSearchRadius)
		if errors.Is(err, domain.ErrNoImagery) {
			logging.FromContext(ctx).Debug("no imagery near random point, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("random location: %w", err)
		}

		span.SetAttributes(attribute.Int("random.attempts", attempt))
		name, err := s.PlaceName(ctx, pano.Location.Lat, pano.Location.Lng)
		if err != nil {
			return nil, err
		}
		return &domain.Location{Name: name, Lat: pano.Location.Lat, Lng: pano.Location.Lng}, nil
	}
	return nil, fmt.Errorf("random location: %w after %d attempts", domain.ErrNoImagery, s.attempts)
}

// PlaceName reverse-geocodes a point into "City, Country" style text. Lookup
// failures yield domain.UnknownPlace; only context errors are returned.
func (s *LocationService) PlaceName(ctx context.Context, lat, lng float64) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPlaceName)
	defer span.End()

	key := fmt.Sprintf("place:%.4f:%.4f", lat, lng)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			metrics.CacheHits.WithLabelValues("place_name").Inc()
			return string(data), nil
		}
		metrics.CacheMisses.WithLabelValues("place_name").Inc()
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.lookupPlaceName(context.WithoutCancel(ctx), key, lat, lng), nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.Val.(string), nil
	}
}

func (s *LocationService) lookupPlaceName(ctx context.Context, key string, lat, lng float64) string {
	if s.geocoder == nil {
		return domain.UnknownPlace
	}
	results, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		logging.FromContext(ctx).Warn("reverse geocode failed", "lat", lat, "lng", lng, "error", err)
		return domain.UnknownPlace
	}
	if len(results) == 0 {
		return domain.UnknownPlace
	}

	name := PlaceNameFrom(results[0].AddressComponents)
	if s.cache != nil && name != domain.UnknownPlace {
		_ = s.cache.Set(ctx, key, []byte(name), PlaceNameTTL)
	}
	return name
}

var placePriorities = []string{"locality", "administrative_area_level_1", "country"}

// PlaceNameFrom picks locality, then state, then country, and appends the
// country when the picked component is not the country itself.
func PlaceNameFrom(components []domain.AddressComponent) string {
	var picked *domain.AddressComponent
	for _, kind := range placePriorities {
		if i := slices.IndexFunc(components, func(c domain.AddressComponent) bool { return c.HasType(kind) }); i >= 0 {
			picked = &components[i]
			break
		}
	}
	if picked == nil || picked.LongName == "" {
		return domain.UnknownPlace
	}

	name := picked.LongName
	if !picked.HasType("country") {
		i := slices.IndexFunc(components, func(c domain.AddressComponent) bool { return c.HasType("country") })
		if i >= 0 && components[i].LongName != "" && components[i].LongName != name {
			name += ", " + components[i].LongName
		}
	}
	return name
}

// AddressAt returns the formatted address for a point, or
// domain.AddressNotFound when the geocoder has none.
func (s *LocationService) AddressAt(ctx context.Context, lat, lng float64) (*domain.Address, error) {
	if !geospatial.ValidLatLng(lat, lng) {
		return nil, fmt.Errorf("%w: lat/lng out of range", domain.ErrInvalidParameters)
	}
	addr := &domain.Address{Lat: lat, Lng: lng, Address: domain.AddressNotFound}
	if s.geocoder == nil {
		return addr, nil
	}

	results, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.FromContext(ctx).Warn("address lookup failed", "error", err)
		return addr, nil
	}
	if len(results) > 0 && results[0].FormattedAddress != "" {
		addr.Address = results[0].FormattedAddress
	}
	return addr, nil
}

// Geocode resolves free text into the first matching address.
func (s *LocationService) Geocode(ctx context.Context, address string) (*domain.Address, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address", domain.ErrMissingParameters)
	}
	if s.geocoder == nil {
		return nil, domain.ErrCredentialMissing
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanGeocode)
	defer span.End()

	results, err := s.geocoder.Forward(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &domain.GeocodeError{Status: domain.GeocodeZeroResults}
	}
	r := results[0]
	return &domain.Address{Lat: r.Location.Lat, Lng: r.Location.Lng, Address: r.FormattedAddress}, nil
}

// DefaultLocation is where new viewers start.
func (s *LocationService) DefaultLocation() domain.Address {
	return domain.DefaultLocation
}
