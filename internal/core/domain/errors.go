package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across layers.
var (
	ErrMissingParameters = errors.New("missing required parameters")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrCredentialMissing = errors.New("imagery credential is not configured")
	ErrNoImagery         = errors.New("no street-level imagery at this location")
	ErrNotFound          = errors.New("not found")
	ErrCaptureInProgress = errors.New("a capture is already in progress")
)

// ErrorKind classifies capture failures by how a caller can recover.
type ErrorKind string

const (
	// KindValidation: the request is missing or malformed; fix and resubmit.
	KindValidation ErrorKind = "validation"
	// KindNoImagery: the upstream has nothing at this location; pick another one.
	KindNoImagery ErrorKind = "no_imagery"
	// KindUpstream: the upstream rejected or failed the call; retry later.
	KindUpstream ErrorKind = "upstream"
	// KindNotConfigured: the server holds no credential for the upstream.
	KindNotConfigured ErrorKind = "not_configured"
	// KindInternal: unexpected local fault.
	KindInternal ErrorKind = "internal"
)

// CaptureError is the single error type produced by the capture pipeline.
// Its Error() string never contains upstream URLs or credentials.
type CaptureError struct {
	Kind   ErrorKind
	Status int // HTTP status to report; upstream status for KindUpstream
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// HTTPStatus returns the status code a proxy should answer with.
func (e *CaptureError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNoImagery:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError wraps err as a 400-class validation failure.
func NewValidationError(err error) *CaptureError {
	return &CaptureError{Kind: KindValidation, Status: http.StatusBadRequest, Err: err}
}

// NewUpstreamError reports a non-success upstream status.
func NewUpstreamError(status int, err error) *CaptureError {
	if status == http.StatusNotFound {
		return &CaptureError{Kind: KindNoImagery, Status: status, Err: ErrNoImagery}
	}
	return &CaptureError{Kind: KindUpstream, Status: status, Err: err}
}

// NewInternalError wraps an unexpected fault.
func NewInternalError(err error) *CaptureError {
	return &CaptureError{Kind: KindInternal, Status: http.StatusInternalServerError, Err: err}
}

// AsCaptureError classifies any error into a *CaptureError.
func AsCaptureError(err error) *CaptureError {
	if err == nil {
		return nil
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, ErrMissingParameters), errors.Is(err, ErrInvalidParameters):
		return NewValidationError(err)
	case errors.Is(err, ErrNoImagery):
		return &CaptureError{Kind: KindNoImagery, Status: http.StatusNotFound, Err: err}
	case errors.Is(err, ErrCredentialMissing):
		return &CaptureError{Kind: KindNotConfigured, Status: http.StatusServiceUnavailable, Err: err}
	default:
		return NewInternalError(err)
	}
}

// GeocodeZeroResults is the geocoder status for "no match".
const GeocodeZeroResults = "ZERO_RESULTS"

// GeocodeError carries a non-OK geocoder status.
type GeocodeError struct {
	Status string
}

func (e *GeocodeError) Error() string {
	return "Geocoding failed: " + e.Status
}

// Is lets ZERO_RESULTS match ErrNotFound.
func (e *GeocodeError) Is(target error) bool {
	return target == ErrNotFound && e.Status == GeocodeZeroResults
}
