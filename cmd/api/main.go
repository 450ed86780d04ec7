package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/samirrijal/photoeye/internal/adapters/http"
	natsadapter "github.com/samirrijal/photoeye/internal/adapters/nats"
	"github.com/samirrijal/photoeye/internal/adapters/objectstore"
	"github.com/samirrijal/photoeye/internal/adapters/postgres"
	"github.com/samirrijal/photoeye/internal/adapters/streetview"
	"github.com/samirrijal/photoeye/internal/adapters/valkey"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/pkg/config"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/pkg/metrics"
	"github.com/samirrijal/photoeye/internal/pkg/telemetry"
	"github.com/samirrijal/photoeye/internal/workflows"
)

var version = "dev"

func main() {
	cfg, err := config.Load("photoeye-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{
		DB:                db,
		ImageryConfigured: cfg.Imagery.Configured(),
		RateLimit:         cfg.Server.RateLimit,
		Version:           version,
	}

	// Cache
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, previews and place-name caching disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, capture events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.Broker = pub
	}

	// Object storage
	var storage ports.ObjectStorage
	store, err := objectstore.New(ctx, objectstore.Options{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PathStyle:     cfg.Storage.PathStyle,
	})
	if err != nil {
		slog.Warn("object storage unavailable, albums are read-only", "error", err)
	} else {
		storage = store
	}

	if !cfg.Imagery.Configured() {
		slog.Warn("imagery credential missing; captures will answer 503")
	}
	imagery := streetview.NewLoader(cfg.Imagery.BaseURL, cfg.Imagery.APIKey, cfg.Imagery.Timeout)

	// Repos
	photoRepo := postgres.NewPhotoRepo(db)

	// Use cases
	deps.Captures = usecases.NewCaptureService(imagery, storage, photoRepo, publisher)
	deps.Locations = usecases.NewLocationService(imagery, imagery, cache, usecases.LocationOptions{
		SearchRadii:    cfg.Imagery.SearchRadii,
		RandomAttempts: cfg.Imagery.RandomAttempts,
	})
	deps.Albums = usecases.NewAlbumService(photoRepo, storage)
	if cache != nil {
		deps.Previews = usecases.NewPreviewService(cache)
	}

	// Temporal (optional)
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporallog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.Warn("temporal unavailable, async archiving disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Archiver = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Fiber
	app := http.NewApp(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		AppName:      "PhotoEye API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-User-ID",
		ExposeHeaders:    "X-Capture-Error, Link, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
