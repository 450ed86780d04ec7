package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/photoeye/internal/pkg/metrics"
)

const (
	lookupTimeout = 15 * time.Second
	randomTimeout = 30 * time.Second
)

// NewApp creates the Fiber app with ErrorHandler installed and panic
// recovery as the outermost middleware.
func NewApp(cfg fiber.Config) *fiber.App {
	cfg.ErrorHandler = ErrorHandler
	app := fiber.New(cfg)
	app.Use(recover.New())
	return app
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
//
// Capture endpoints run without the per-request timeout wrapper: the imagery
// client's own timeout bounds them and a deadline must surface as the
// capture error body, not a bare 408.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if deps.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        deps.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				// probes and scrapes are not client traffic
				p := c.Path()
				return p == "/v1/health" || p == "/v1/ready" || p == "/metrics"
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Path the browser app has always posted to.
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/api/streetview-preview", Alternative: "/v1/captures"},
	}))
	app.Post("/api/streetview-preview", CaptureHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/captures", CaptureHandler(deps))
	v1.Post("/captures/data-url", CaptureDataURLHandler(deps))

	v1.Post("/previews", CreatePreviewHandler(deps))
	v1.Get("/previews/:handle", GetPreviewHandler(deps))
	v1.Delete("/previews/:handle", RevokePreviewHandler(deps))

	v1.Post("/photos", CreatePhotoHandler(deps))
	v1.Get("/photos", timeout.NewWithContext(ListPhotosHandler(deps), lookupTimeout))
	v1.Get("/photos/:id", timeout.NewWithContext(GetPhotoHandler(deps), lookupTimeout))
	v1.Delete("/photos/:id", timeout.NewWithContext(DeletePhotoHandler(deps), lookupTimeout))

	v1.Get("/locations/default", DefaultLocationHandler(deps))
	v1.Get("/locations/random", timeout.NewWithContext(RandomLocationHandler(deps), randomTimeout))
	v1.Get("/locations/nearest", timeout.NewWithContext(NearestPanoramaHandler(deps), lookupTimeout))
	v1.Get("/locations/place", timeout.NewWithContext(PlaceNameHandler(deps), lookupTimeout))
	v1.Get("/locations/address", timeout.NewWithContext(AddressHandler(deps), lookupTimeout))
	v1.Get("/geocode", timeout.NewWithContext(GeocodeHandler(deps), lookupTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, DefaultOpenAPIPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/viewer", websocket.New(WebSocketHandler(deps)))
}
