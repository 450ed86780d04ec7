package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/photoeye/internal/adapters/nats"
	"github.com/samirrijal/photoeye/internal/adapters/objectstore"
	"github.com/samirrijal/photoeye/internal/adapters/postgres"
	"github.com/samirrijal/photoeye/internal/adapters/streetview"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/pkg/config"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/workflows"
)

func main() {
	cfg, err := config.Load("photoeye-archiver")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

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

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, capture events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	imagery := streetview.NewLoader(cfg.Imagery.BaseURL, cfg.Imagery.APIKey, cfg.Imagery.Timeout)
	captures := usecases.NewCaptureService(imagery, store, postgres.NewPhotoRepo(db), publisher)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.Register(w, &workflows.ArchiveActivities{Captures: captures})

	slog.Info("archiver worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
