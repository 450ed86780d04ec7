package geospatial

import "math"

// Street View zoom and static-image FOV limits.
const (
	MinZoom = 0.0
	MaxZoom = 4.0
	MinFOV  = 10.0
	MaxFOV  = 120.0
)

// FOVFromZoom converts a panorama zoom level into the field of view (degrees)
// accepted by the static imagery API: fov = 120 / 2^zoom with zoom clamped to
// [0, 4] and the result clamped to [10, 120], rounded half-up.
//
// NaN is treated as zoom 0. Infinities clamp like any other out-of-range value.
func FOVFromZoom(zoom float64) int {
	return RoundHalfUp(RawFOVFromZoom(zoom))
}

// RawFOVFromZoom is FOVFromZoom before rounding.
func RawFOVFromZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		zoom = MinZoom
	}
	z := math.Max(MinZoom, math.Min(zoom, MaxZoom))
	fov := MaxFOV / math.Pow(2, z)
	return math.Max(MinFOV, math.Min(MaxFOV, fov))
}

// RoundHalfUp rounds to the nearest integer with ties going toward +Inf,
// matching how the browser viewer reports rounded heading and pitch
// (-2.5 rounds to -2, not -3).
func RoundHalfUp(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}
