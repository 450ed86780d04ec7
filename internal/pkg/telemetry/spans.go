package telemetry

// Span names used for instrumentation.
const (
	// Capture pipeline
	SpanCapture         = "capture.static_image"
	SpanCaptureUpload   = "capture.upload"
	SpanCaptureRecord   = "capture.record"
	SpanCaptureAnnounce = "capture.announce"

	// Location lookups
	SpanNearestPanorama = "location.nearest_panorama"
	SpanRandomLocation  = "location.random"
	SpanPlaceName       = "location.place_name"
	SpanGeocode         = "location.geocode"

	// Album
	SpanThumbnail = "album.thumbnail"
)
