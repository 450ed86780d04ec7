package http

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/pkg/imagedata"
)

// captureBody is the JSON body accepted by every capture endpoint. Pointer
// fields tell "absent" apart from a legitimate zero.
type captureBody struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Heading *float64 `json:"heading"`
	Pitch   *float64 `json:"pitch"`
	Zoom    *float64 `json:"zoom"`
	Size    string   `json:"size,omitempty"`
	Format  string   `json:"format,omitempty"`

	// Used by POST /v1/photos only.
	PlaceName string `json:"place_name,omitempty"`
	Async     bool   `json:"async,omitempty"`
}

// request converts the body into a domain request. A missing field is
// domain.ErrMissingParameters; range checks happen in the capture service.
func (b *captureBody) request() (domain.CaptureRequest, error) {
	if b.Lat == nil || b.Lng == nil || b.Heading == nil || b.Pitch == nil || b.Zoom == nil {
		return domain.CaptureRequest{}, domain.ErrMissingParameters
	}
	return domain.CaptureRequest{
		ViewParameters: domain.ViewParameters{
			Lat:     *b.Lat,
			Lng:     *b.Lng,
			Heading: *b.Heading,
			Pitch:   *b.Pitch,
			Zoom:    *b.Zoom,
		},
		CaptureOptions: domain.CaptureOptions{
			Size:   b.Size,
			Format: domain.ImageFormat(b.Format),
		},
	}, nil
}

// parseCapture reads the body as JSON whatever the Content-Type says.
// Unreadable JSON counts as missing parameters.
func parseCapture(c *fiber.Ctx) (*captureBody, domain.CaptureRequest, *domain.CaptureError) {
	var body captureBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return nil, domain.CaptureRequest{}, domain.NewValidationError(domain.ErrMissingParameters)
	}
	req, err := body.request()
	if err != nil {
		return nil, domain.CaptureRequest{}, domain.NewValidationError(err)
	}
	return &body, req, nil
}

// CaptureHandler is the capture proxy: one upstream call, the image bytes on
// success, a flat {"error": ...} body otherwise.
func CaptureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, req, perr := parseCapture(c)
		if perr != nil {
			return captureError(c, perr)
		}

		res := deps.Captures.Capture(c.UserContext(), req)
		if !res.OK() {
			return captureError(c, res.Err)
		}

		c.Set(fiber.HeaderContentType, res.Image.MimeType)
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		return c.Send(res.Image.Data)
	}
}

// dataURLResponse is the base64 variant of a capture.
type dataURLResponse struct {
	URL      *string                `json:"url"`
	Error    string                 `json:"error,omitempty"`
	Metadata domain.CaptureMetadata `json:"metadata"`
}

// CaptureDataURLHandler captures and answers with the image embedded as a
// data URL next to its metadata.
func CaptureDataURLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, req, perr := parseCapture(c)
		if perr != nil {
			return captureDataURLError(c, perr, domain.CaptureMetadata{})
		}

		res := deps.Captures.Capture(c.UserContext(), req)
		if !res.OK() {
			return captureDataURLError(c, res.Err, res.Metadata)
		}

		url := imagedata.EncodeDataURL(res.Image.MimeType, res.Image.Data)
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		return c.JSON(dataURLResponse{URL: &url, Metadata: res.Metadata})
	}
}

// previewsUnavailable answers when no cache backs the preview store.
func previewsUnavailable(c *fiber.Ctx) error {
	return newError(c, fiber.StatusServiceUnavailable, "not_configured", "previews are not available")
}

// CreatePreviewHandler captures and parks the image behind a short-lived handle.
func CreatePreviewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Previews == nil {
			return previewsUnavailable(c)
		}
		_, req, perr := parseCapture(c)
		if perr != nil {
			return captureError(c, perr)
		}

		res := deps.Captures.Capture(c.UserContext(), req)
		if !res.OK() {
			return captureError(c, res.Err)
		}

		preview, err := deps.Previews.Create(c.UserContext(), res)
		if err != nil {
			return captureError(c, domain.NewInternalError(err))
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"handle":     preview.Handle,
			"url":        "/v1/previews/" + preview.Handle,
			"expires_at": preview.ExpiresAt,
			"metadata":   preview.Metadata,
		})
	}
}

// GetPreviewHandler serves the bytes behind a preview handle.
func GetPreviewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Previews == nil {
			return previewsUnavailable(c)
		}
		img, _, err := deps.Previews.Open(c.UserContext(), c.Params("handle"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "preview not found or expired")
		}
		if err != nil {
			return lookupError(c, err)
		}

		c.Set(fiber.HeaderContentType, img.MimeType)
		c.Set(fiber.HeaderCacheControl, "private, no-store")
		return c.Send(img.Data)
	}
}

// RevokePreviewHandler drops a preview handle before it expires.
func RevokePreviewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Previews == nil {
			return previewsUnavailable(c)
		}
		err := deps.Previews.Revoke(c.UserContext(), c.Params("handle"))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return lookupError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
