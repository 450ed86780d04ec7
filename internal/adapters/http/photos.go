package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/workflows"
)

// userID returns the caller id set by the authenticating gateway.
func userID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get("X-User-ID"))
}

// CreatePhotoHandler captures a view and archives it to the caller's album.
// With "async": true and an archiver available it starts the archive
// workflow and answers 202 with the workflow id.
func CreatePhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "X-User-ID header is required")
		}

		body, req, perr := parseCapture(c)
		if perr != nil {
			return captureError(c, perr)
		}
		if err := req.Validate(); err != nil {
			return captureError(c, domain.NewValidationError(err))
		}
		ctx := c.UserContext()

		place := body.PlaceName
		if place == "" {
			name, err := deps.Locations.PlaceName(ctx, req.Lat, req.Lng)
			if err != nil {
				return lookupError(c, err)
			}
			place = name
		}

		if body.Async && deps.Archiver != nil {
			id, err := deps.Archiver.StartArchive(ctx, workflows.ArchiveInput{
				UserID:    user,
				Request:   req,
				PlaceName: place,
			})
			if err != nil {
				return lookupError(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"workflow_id": id})
		}

		photo, err := deps.Captures.CaptureAndUpload(ctx, user, req, place)
		if err != nil {
			var ce *domain.CaptureError
			if errors.As(err, &ce) {
				return captureError(c, ce)
			}
			return lookupError(c, err)
		}

		c.Location("/v1/photos/" + strconv.FormatInt(photo.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(photo)
	}
}

// ListPhotosHandler returns the caller's album, newest first.
func ListPhotosHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "X-User-ID header is required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", usecases.DefaultAlbumLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 {
			limit = usecases.DefaultAlbumLimit
		}
		if limit > usecases.MaxAlbumLimit {
			limit = usecases.MaxAlbumLimit
		}

		photos, total, err := deps.Albums.List(c.UserContext(), user, offset, limit)
		if err != nil {
			return lookupError(c, err)
		}
		if photos == nil {
			photos = []domain.Photo{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: photos, Pagination: pg})
	}
}

// GetPhotoHandler returns one photo of the caller's album.
func GetPhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return errBadRequest(c, "photo id must be a positive integer")
		}

		photo, err := deps.Albums.Get(c.UserContext(), user, int64(id))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "photo not found")
		}
		if err != nil {
			return lookupError(c, err)
		}
		return c.JSON(photo)
	}
}

// DeletePhotoHandler removes a photo and its stored images.
func DeletePhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return errBadRequest(c, "photo id must be a positive integer")
		}

		err = deps.Albums.Delete(c.UserContext(), user, int64(id))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "photo not found")
		}
		if err != nil {
			return lookupError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
