package usecases_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
)

func components(pairs ...string) []domain.AddressComponent {
	var out []domain.AddressComponent
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.AddressComponent{LongName: pairs[i], Types: []string{pairs[i+1], "political"}})
	}
	return out
}

func TestLocationService_NearestPanorama_WidensRadius(t *testing.T) {
	var tried []int
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			tried = append(tried, radius)
			if radius < 1000 {
				return nil, domain.ErrNoImagery
			}
			return &domain.Panorama{PanoID: "p1", Location: domain.GeoPoint{Lat: lat + 0.001, Lng: lng}}, nil
		},
	}
	svc := usecases.NewLocationService(img, nil, nil, usecases.LocationOptions{})

	pano, err := svc.NearestPanorama(context.Background(), 43.26, -2.93)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tried, []int{50, 100, 500, 1000}) {
		t.Errorf("unexpected radius sequence %v", tried)
	}
	if pano.SearchRadius != 1000 || pano.Distance == nil || *pano.Distance < 100 || *pano.Distance > 120 {
		t.Errorf("unexpected panorama %+v", pano)
	}
}

func TestLocationService_NearestPanorama_Exhausted(t *testing.T) {
	calls := 0
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			calls++
			return nil, domain.ErrNoImagery
		},
	}
	svc := usecases.NewLocationService(img, nil, nil, usecases.LocationOptions{})

	_, err := svc.NearestPanorama(context.Background(), 0, 0)
	if !errors.Is(err, domain.ErrNoImagery) {
		t.Fatalf("expected ErrNoImagery, got %v", err)
	}
	if calls != len(usecases.DefaultSearchRadii) {
		t.Errorf("expected %d lookups, got %d", len(usecases.DefaultSearchRadii), calls)
	}
}

func TestLocationService_NearestPanorama_AbortsOnOtherErrors(t *testing.T) {
	calls := 0
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			calls++
			return nil, domain.NewUpstreamError(403, errors.New("denied"))
		},
	}
	svc := usecases.NewLocationService(img, nil, nil, usecases.LocationOptions{})

	if _, err := svc.NearestPanorama(context.Background(), 0, 0); err == nil || errors.Is(err, domain.ErrNoImagery) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single lookup, got %d", calls)
	}
}

func TestLocationService_NearestPanorama_InvalidPoint(t *testing.T) {
	svc := usecases.NewLocationService(&mockImagery{}, nil, nil, usecases.LocationOptions{})
	if _, err := svc.NearestPanorama(context.Background(), 95, 0); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestLocationService_RandomLocation(t *testing.T) {
	attempts := 0
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			attempts++
			if radius != usecases.RandomSearchRadius {
				t.Errorf("expected radius %d, got %d", usecases.RandomSearchRadius, radius)
			}
			if attempts < 3 {
				return nil, domain.ErrNoImagery
			}
			return &domain.Panorama{Location: domain.GeoPoint{Lat: 35.6586, Lng: 139.7454}}, nil
		},
	}
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			return []domain.GeocodeResult{{AddressComponents: components("Minato City", "locality", "Japan", "country")}}, nil
		},
	}
	svc := usecases.NewLocationService(img, geo, nil, usecases.LocationOptions{})

	loc, err := svc.RandomLocation(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if loc.Name != "Minato City, Japan" || loc.Lat != 35.6586 {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestLocationService_RandomLocation_StaysInRegion(t *testing.T) {
	region := usecases.RegionAround(43.26, -2.93, 5000)
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			if lat < region.MinLat || lat > region.MaxLat || lng < region.MinLng || lng > region.MaxLng {
				t.Errorf("point %f,%f outside region %+v", lat, lng, region)
			}
			return nil, domain.ErrNoImagery
		},
	}
	svc := usecases.NewLocationService(img, nil, nil, usecases.LocationOptions{RandomAttempts: 10})

	_, err := svc.RandomLocation(context.Background(), &region)
	if !errors.Is(err, domain.ErrNoImagery) {
		t.Fatalf("expected bounded search to give up with ErrNoImagery, got %v", err)
	}
}

func TestLocationService_RandomLocation_UsesRandomSource(t *testing.T) {
	var gotLat, gotLng float64
	img := &mockImagery{
		metadataFn: func(ctx context.Context, lat, lng float64, radius int) (*domain.Panorama, error) {
			gotLat, gotLng = lat, lng
			return &domain.Panorama{Location: domain.GeoPoint{Lat: lat, Lng: lng}}, nil
		},
	}
	svc := usecases.NewLocationService(img, nil, nil, usecases.LocationOptions{})
	svc.SetRandom(func() float64 { return 0.5 })

	if _, err := svc.RandomLocation(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLat != 0 || gotLng != 0 {
		t.Errorf("expected the world midpoint, got %f,%f", gotLat, gotLng)
	}
}

func TestPlaceNameFrom(t *testing.T) {
	cases := []struct {
		name string
		in   []domain.AddressComponent
		want string
	}{
		{"locality", components("Bilbao", "locality", "Basque Country", "administrative_area_level_1", "Spain", "country"), "Bilbao, Spain"},
		{"state", components("Bavaria", "administrative_area_level_1", "Germany", "country"), "Bavaria, Germany"},
		{"country only", components("Iceland", "country"), "Iceland"},
		{"same name", components("Singapore", "locality", "Singapore", "country"), "Singapore"},
		{"nothing", components("Route 66", "route"), domain.UnknownPlace},
		{"empty", nil, domain.UnknownPlace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := usecases.PlaceNameFrom(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocationService_PlaceName_FallsBackOnError(t *testing.T) {
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			return nil, errors.New("REQUEST_DENIED")
		},
	}
	svc := usecases.NewLocationService(nil, geo, nil, usecases.LocationOptions{})

	name, err := svc.PlaceName(context.Background(), 1, 2)
	if err != nil || name != domain.UnknownPlace {
		t.Fatalf("got %q, %v", name, err)
	}
}

func TestLocationService_PlaceName_CachesResult(t *testing.T) {
	var calls atomic.Int32
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			calls.Add(1)
			return []domain.GeocodeResult{{AddressComponents: components("Paris", "locality", "France", "country")}}, nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewLocationService(nil, geo, cache, usecases.LocationOptions{})

	for range 3 {
		name, err := svc.PlaceName(context.Background(), 48.85661, 2.35222)
		if err != nil || name != "Paris, France" {
			t.Fatalf("got %q, %v", name, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected one geocoder call, got %d", calls.Load())
	}
	if ttl := cache.ttls["place:48.8566:2.3522"]; ttl != usecases.PlaceNameTTL {
		t.Errorf("expected 24h ttl, got %v", ttl)
	}
}

func TestLocationService_PlaceName_DeduplicatesConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			calls.Add(1)
			<-release
			return []domain.GeocodeResult{{AddressComponents: components("Oslo", "locality", "Norway", "country")}}, nil
		},
	}
	svc := usecases.NewLocationService(nil, geo, nil, usecases.LocationOptions{})

	var wg sync.WaitGroup
	names := make([]string, 8)
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names[i], _ = svc.PlaceName(context.Background(), 59.91, 10.75)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, n := range names {
		if n != "Oslo, Norway" {
			t.Errorf("unexpected name %q", n)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected concurrent lookups to share one call, got %d", calls.Load())
	}
}

func TestLocationService_PlaceName_Cancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			<-block
			return nil, nil
		},
	}
	svc := usecases.NewLocationService(nil, geo, nil, usecases.LocationOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.PlaceName(ctx, 1, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLocationService_AddressAt(t *testing.T) {
	geo := &mockGeocoder{
		reverseFn: func(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
			if lat > 0 {
				return []domain.GeocodeResult{{FormattedAddress: "Liberty Island, New York, NY 10004, USA"}}, nil
			}
			return nil, nil
		},
	}
	svc := usecases.NewLocationService(nil, geo, nil, usecases.LocationOptions{})

	addr, err := svc.AddressAt(context.Background(), 40.6892, -74.0445)
	if err != nil || addr.Address != "Liberty Island, New York, NY 10004, USA" {
		t.Fatalf("got %+v, %v", addr, err)
	}
	addr, err = svc.AddressAt(context.Background(), -10, 10)
	if err != nil || addr.Address != domain.AddressNotFound {
		t.Fatalf("expected fallback, got %+v, %v", addr, err)
	}
}

func TestLocationService_Geocode(t *testing.T) {
	geo := &mockGeocoder{
		forwardFn: func(ctx context.Context, address string) ([]domain.GeocodeResult, error) {
			if address == "nowhere" {
				return nil, &domain.GeocodeError{Status: domain.GeocodeZeroResults}
			}
			return []domain.GeocodeResult{{FormattedAddress: "Eiffel Tower, Paris", Location: domain.GeoPoint{Lat: 48.8584, Lng: 2.2945}}}, nil
		},
	}
	svc := usecases.NewLocationService(nil, geo, nil, usecases.LocationOptions{})

	addr, err := svc.Geocode(context.Background(), "eiffel tower")
	if err != nil || addr.Lat != 48.8584 {
		t.Fatalf("got %+v, %v", addr, err)
	}

	_, err = svc.Geocode(context.Background(), "nowhere")
	if err == nil || err.Error() != "Geocoding failed: ZERO_RESULTS" || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}

	if _, err := svc.Geocode(context.Background(), ""); !errors.Is(err, domain.ErrMissingParameters) {
		t.Fatalf("expected ErrMissingParameters, got %v", err)
	}
}

func TestLocationService_DefaultLocation(t *testing.T) {
	svc := usecases.NewLocationService(nil, nil, nil, usecases.LocationOptions{})
	if d := svc.DefaultLocation(); d.Lat != 40.6892 || d.Lng != -74.0445 {
		t.Errorf("unexpected default %+v", d)
	}
}
