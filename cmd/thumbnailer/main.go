package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/photoeye/internal/adapters/nats"
	"github.com/samirrijal/photoeye/internal/adapters/objectstore"
	"github.com/samirrijal/photoeye/internal/adapters/postgres"
	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/pkg/config"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("photoeye-thumbnailer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

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
		log.Fatalf("object storage: %v", err)
	}

	albums := usecases.NewAlbumService(postgres.NewPhotoRepo(db), store)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "thumbnailer")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribePhotoCaptured(ctx, func(ctx context.Context, event *domain.CaptureEvent) error {
		url, err := albums.Thumbnail(ctx, event)
		if err != nil {
			return err
		}
		slog.Debug("thumbnail stored", "photo_id", event.PhotoID, "url", url)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("thumbnailer started")
	<-ctx.Done()
	slog.Info("thumbnailer stopped")
}
