package geospatial

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in meters,
// clipped to valid WGS 84 ranges.
func BoundingBox(lat, lng, radiusMeters float64) (minLat, minLng, maxLat, maxLng float64) {
	latDelta := radiusMeters / metersPerDegreeLat
	lngDelta := 180.0
	if c := math.Cos(toRad(lat)); c > 1e-9 {
		lngDelta = math.Min(180, radiusMeters/(metersPerDegreeLat*c))
	}

	minLat = math.Max(-90, lat-latDelta)
	maxLat = math.Min(90, lat+latDelta)
	minLng = math.Max(-180, lng-lngDelta)
	maxLng = math.Min(180, lng+lngDelta)
	return minLat, minLng, maxLat, maxLng
}

// ValidLatLng reports whether lat/lng are finite and inside WGS 84 ranges.
func ValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// FormatCoordinates renders "lat, lng" with a fixed number of decimals.
// A negative decimals value falls back to 6.
func FormatCoordinates(lat, lng float64, decimals int) string {
	if decimals < 0 {
		decimals = 6
	}
	return fmt.Sprintf("%.*f, %.*f", decimals, lat, decimals, lng)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
