package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated.
type DeprecatedRoute struct {
	Path        string    // exact request path
	SunsetDate  time.Time // zero when no removal date is set
	Alternative string    // successor endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset and Link headers to
// deprecated endpoints. The handler still runs unchanged.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	byPath := make(map[string]DeprecatedRoute, len(deprecated))
	for _, d := range deprecated {
		byPath[d.Path] = d
	}

	return func(c *fiber.Ctx) error {
		d, ok := byPath[c.Path()]
		if !ok {
			return c.Next()
		}

		// RFC 8594
		c.Set("Deprecation", "true")
		if !d.SunsetDate.IsZero() {
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
		}
		if d.Alternative != "" {
			c.Append("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
		}
		return c.Next()
	}
}
