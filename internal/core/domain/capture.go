package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ImageFormat is an output format accepted by the static imagery API.
type ImageFormat string

const (
	FormatJPG ImageFormat = "jpg"
	FormatPNG ImageFormat = "png"
)

// Capture defaults and limits.
const (
	DefaultSize   = "640x640"
	DefaultFormat = FormatJPG
	MaxDimension  = 640
)

// Extension returns the file extension (without dot) for the format.
func (f ImageFormat) Extension() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

// MimeType returns the MIME type normally served for the format.
func (f ImageFormat) MimeType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// ViewParameters is the panorama camera state at the moment of capture.
type ViewParameters struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
	Zoom    float64 `json:"zoom"`
}

// Validate checks coordinate ranges and that angles are finite. Zoom is not
// checked: any value maps to a valid field of view.
func (v ViewParameters) Validate() error {
	if !finite(v.Lat) || v.Lat < -90 || v.Lat > 90 {
		return fmt.Errorf("%w: lat must be within [-90, 90]", ErrInvalidParameters)
	}
	if !finite(v.Lng) || v.Lng < -180 || v.Lng > 180 {
		return fmt.Errorf("%w: lng must be within [-180, 180]", ErrInvalidParameters)
	}
	if !finite(v.Heading) {
		return fmt.Errorf("%w: heading must be finite", ErrInvalidParameters)
	}
	if !finite(v.Pitch) {
		return fmt.Errorf("%w: pitch must be finite", ErrInvalidParameters)
	}
	return nil
}

// CaptureOptions tunes the requested image.
type CaptureOptions struct {
	Size   string      `json:"size,omitempty"`
	Format ImageFormat `json:"format,omitempty"`
}

// WithDefaults fills empty fields with the defaults.
func (o CaptureOptions) WithDefaults() CaptureOptions {
	if o.Size == "" {
		o.Size = DefaultSize
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	return o
}

// Validate checks size "WxH" (each 1..640) and format.
func (o CaptureOptions) Validate() error {
	if o.Size != "" {
		if _, _, err := ParseSize(o.Size); err != nil {
			return err
		}
	}
	switch o.Format {
	case "", FormatJPG, FormatPNG:
	default:
		return fmt.Errorf("%w: format must be jpg or png", ErrInvalidParameters)
	}
	return nil
}

// ParseSize parses "WxH" into its dimensions.
func ParseSize(size string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: size must look like 640x640", ErrInvalidParameters)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: size must look like 640x640", ErrInvalidParameters)
	}
	if width < 1 || width > MaxDimension || height < 1 || height > MaxDimension {
		return 0, 0, fmt.Errorf("%w: size dimensions must be 1-%d", ErrInvalidParameters, MaxDimension)
	}
	return width, height, nil
}

// CaptureRequest is one capture: the view plus output options.
type CaptureRequest struct {
	ViewParameters
	CaptureOptions
}

// Validate validates both the view and the options.
func (r CaptureRequest) Validate() error {
	if err := r.ViewParameters.Validate(); err != nil {
		return err
	}
	return r.CaptureOptions.Validate()
}

// Image is an encoded image with its MIME type.
type Image struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// CaptureMetadata travels with a capture to any downstream persistence call.
type CaptureMetadata struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Heading    int       `json:"heading"`
	Pitch      int       `json:"pitch"`
	Zoom       float64   `json:"zoom"`
	FOV        int       `json:"fov"`
	CapturedAt time.Time `json:"captured_at"`
	FileSize   int       `json:"file_size,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
}

// CaptureResult holds either an image or an error, never both and never neither.
type CaptureResult struct {
	Image    *Image
	Err      *CaptureError
	Metadata CaptureMetadata
}

// NewCaptureSuccess builds a successful result and fills size/mime metadata.
func NewCaptureSuccess(img *Image, meta CaptureMetadata) *CaptureResult {
	meta.FileSize = len(img.Data)
	meta.MimeType = img.MimeType
	return &CaptureResult{Image: img, Metadata: meta}
}

// NewCaptureFailure builds a failed result.
func NewCaptureFailure(err *CaptureError, meta CaptureMetadata) *CaptureResult {
	return &CaptureResult{Err: err, Metadata: meta}
}

// OK reports whether the capture produced an image.
func (r *CaptureResult) OK() bool { return r.Image != nil && r.Err == nil }

// Validate reports a broken either-or invariant.
func (r *CaptureResult) Validate() error {
	switch {
	case r.Image != nil && r.Err != nil:
		return fmt.Errorf("capture result has both image and error")
	case r.Image == nil && r.Err == nil:
		return fmt.Errorf("capture result has neither image nor error")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
