package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// Capture proxy error bodies. Clients match on these strings.
const (
	msgMissingParameters = "Missing required parameters"
	msgInvalidParameters = "Invalid parameters"
	msgUpstreamFailed    = "Failed to fetch Street View image"
	msgNotConfigured     = "Street View service is not configured"
	msgInternal          = "Internal server error"
)

// captureMessage is the client-facing text for a capture failure. It never
// includes the wrapped cause.
func captureMessage(ce *domain.CaptureError) string {
	switch ce.Kind {
	case domain.KindValidation:
		if errors.Is(ce, domain.ErrMissingParameters) {
			return msgMissingParameters
		}
		return msgInvalidParameters
	case domain.KindNoImagery, domain.KindUpstream:
		return msgUpstreamFailed
	case domain.KindNotConfigured:
		return msgNotConfigured
	default:
		return msgInternal
	}
}

// captureError writes the flat {"error": ...} body used by the capture proxy
// and tags the response with the error kind.
func captureError(c *fiber.Ctx, ce *domain.CaptureError) error {
	if ce.Kind == domain.KindInternal {
		logging.FromContext(c.UserContext()).Error("capture failed", "error", ce.Err)
	}
	c.Set("X-Capture-Error", string(ce.Kind))
	return c.Status(ce.HTTPStatus()).JSON(fiber.Map{"error": captureMessage(ce)})
}

// captureDataURLError is captureError for the data-URL variant, which keeps
// the {"url": null, ...} shape on failure.
func captureDataURLError(c *fiber.Ctx, ce *domain.CaptureError, meta domain.CaptureMetadata) error {
	if ce.Kind == domain.KindInternal {
		logging.FromContext(c.UserContext()).Error("capture failed", "error", ce.Err)
	}
	c.Set("X-Capture-Error", string(ce.Kind))
	return c.Status(ce.HTTPStatus()).JSON(dataURLResponse{Error: captureMessage(ce), Metadata: meta})
}

// captureRoutes answer every failure with the capture error body.
var captureRoutes = map[string]bool{
	"/api/streetview-preview": true,
	"/v1/captures":            true,
	"/v1/captures/data-url":   true,
	"/v1/previews":            true,
}

// ErrorHandler is the fiber.Config.ErrorHandler for the API. It receives
// errors no handler wrote a response for, including panics turned into errors
// by the recover middleware. The error text is logged, never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	isFiber := errors.As(err, &fe)

	if c.Method() == fiber.MethodPost && captureRoutes[c.Path()] {
		ce := domain.NewInternalError(err)
		if isFiber && fe.Code < fiber.StatusInternalServerError {
			ce = &domain.CaptureError{Kind: domain.KindValidation, Status: fe.Code, Err: domain.ErrInvalidParameters}
		}
		if c.Path() == "/v1/captures/data-url" {
			return captureDataURLError(c, ce, domain.CaptureMetadata{})
		}
		return captureError(c, ce)
	}

	if isFiber && fe.Code < fiber.StatusInternalServerError {
		return newError(c, fe.Code, statusCode(fe.Code), fe.Message)
	}
	logging.FromContext(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}

// statusCode names the APIError code for a client error status.
func statusCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestTimeout:
		return "timeout"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "client_error"
	}
}

// lookupError maps location, geocoding and album errors onto the APIError
// envelope.
func lookupError(c *fiber.Ctx, err error) error {
	var (
		ce *domain.CaptureError
		ge *domain.GeocodeError
	)
	switch {
	case errors.Is(err, domain.ErrMissingParameters), errors.Is(err, domain.ErrInvalidParameters):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrCredentialMissing):
		return newError(c, fiber.StatusServiceUnavailable, "not_configured", msgNotConfigured)
	case errors.Is(err, domain.ErrNoImagery):
		return newError(c, fiber.StatusNotFound, "no_imagery", "no street-level imagery found nearby")
	case errors.As(err, &ge):
		if errors.Is(ge, domain.ErrNotFound) {
			return errNotFound(c, ge.Error())
		}
		return newError(c, fiber.StatusBadGateway, "upstream_error", ge.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "not found")
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, fiber.StatusGatewayTimeout, "upstream_timeout", "upstream request timed out")
	case errors.As(err, &ce) && ce.Kind == domain.KindUpstream:
		return newError(c, fiber.StatusBadGateway, "upstream_error", "upstream request failed")
	default:
		logging.FromContext(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal server error")
	}
}
