package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
)

// maxRegionRadius caps the radius of GET /v1/locations/random regions (m).
const maxRegionRadius = 1_000_000

// queryCoords reads required lat/lng query parameters. "0" is a valid value.
func queryCoords(c *fiber.Ctx) (float64, float64, error) {
	rawLat, rawLng := c.Query("lat"), c.Query("lng")
	if rawLat == "" || rawLng == "" {
		return 0, 0, fmt.Errorf("%w: lat and lng are required", domain.ErrMissingParameters)
	}
	lat, err1 := strconv.ParseFloat(rawLat, 64)
	lng, err2 := strconv.ParseFloat(rawLng, 64)
	if err1 != nil || err2 != nil || !geospatial.ValidLatLng(lat, lng) {
		return 0, 0, fmt.Errorf("%w: lat and lng must be valid coordinates", domain.ErrInvalidParameters)
	}
	return lat, lng, nil
}

// RandomLocationHandler picks a random point with imagery, optionally inside
// the region given by lat, lng and radius (meters).
func RandomLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var region *domain.Bounds
		if c.Query("lat") != "" || c.Query("lng") != "" {
			lat, lng, err := queryCoords(c)
			if err != nil {
				return lookupError(c, err)
			}
			radius := c.QueryFloat("radius", usecases.RandomSearchRadius)
			if radius <= 0 || radius > maxRegionRadius {
				return errBadRequest(c, fmt.Sprintf("radius must be between 1 and %d meters", maxRegionRadius))
			}
			b := usecases.RegionAround(lat, lng, radius)
			region = &b
		}

		loc, err := deps.Locations.RandomLocation(c.UserContext(), region)
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(loc)
	}
}

// NearestPanoramaHandler finds the closest outdoor panorama to a point.
func NearestPanoramaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lng, err := queryCoords(c)
		if err != nil {
			return lookupError(c, err)
		}
		pano, err := deps.Locations.NearestPanorama(c.UserContext(), lat, lng)
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(pano)
	}
}

// PlaceNameHandler names the place at a point ("City, Country").
func PlaceNameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lng, err := queryCoords(c)
		if err != nil {
			return lookupError(c, err)
		}
		name, err := deps.Locations.PlaceName(c.UserContext(), lat, lng)
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(domain.Location{Name: name, Lat: lat, Lng: lng})
	}
}

// AddressHandler returns the formatted street address at a point.
func AddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lng, err := queryCoords(c)
		if err != nil {
			return lookupError(c, err)
		}
		addr, err := deps.Locations.AddressAt(c.UserContext(), lat, lng)
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(addr)
	}
}

// DefaultLocationHandler returns where new viewers start.
func DefaultLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.JSON(deps.Locations.DefaultLocation())
	}
}

// GeocodeHandler resolves free text into coordinates.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		address := c.Query("address")
		if address == "" {
			return errBadRequest(c, "address query parameter is required")
		}
		if len(address) > 500 {
			return errBadRequest(c, "address too long (max 500 characters)")
		}

		addr, err := deps.Locations.Geocode(c.UserContext(), address)
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(addr)
	}
}
