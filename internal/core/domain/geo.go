package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// WorldBounds covers every valid coordinate.
var WorldBounds = Bounds{MinLat: -90, MinLng: -180, MaxLat: 90, MaxLng: 180}

// Panorama is a street-level panorama located by the imagery metadata lookup.
type Panorama struct {
	PanoID    string   `json:"pano_id"`
	Location  GeoPoint `json:"location"`
	Date      string   `json:"date,omitempty"`
	Copyright string   `json:"copyright,omitempty"`
	// Distance from the searched point in meters; computed field.
	Distance *float64 `json:"distance,omitempty"`
	// Radius (meters) of the search step that found this panorama.
	SearchRadius int `json:"search_radius,omitempty"`
}

// Location is a named coordinate, e.g. the result of a random-location pick.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Address is a coordinate paired with its formatted street address.
type Address struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// AddressComponent is one part of a geocoder result (locality, country, ...).
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// HasType reports whether the component carries the given type tag.
func (a AddressComponent) HasType(t string) bool {
	for _, v := range a.Types {
		if v == t {
			return true
		}
	}
	return false
}

// GeocodeResult is a single geocoder match.
type GeocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	Location          GeoPoint           `json:"location"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// Fallback names used when a lookup yields nothing usable.
const (
	UnknownPlace    = "Unknown Place"
	AddressNotFound = "Address not found"
)

// DefaultLocation is where a fresh viewer starts.
var DefaultLocation = Address{
	Lat:     40.6892,
	Lng:     -74.0445,
	Address: "Statue of Liberty, New York, NY",
}
