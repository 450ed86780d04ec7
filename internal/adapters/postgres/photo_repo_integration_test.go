//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/photoeye/internal/adapters/postgres"
	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/pkg/config"
)

// setupTestDB connects to the configured database and applies migrations.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("photoeye-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	if err := postgres.Migrate(ctx, db, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `DELETE FROM photos WHERE user_id LIKE 'it-%'`); err != nil {
		t.Fatalf("clean: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestPhotoRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewPhotoRepo(db)
	ctx := context.Background()

	p := &domain.Photo{
		UserID:      "it-user",
		ImageURL:    "https://cdn.example/captures/a.jpg",
		StoragePath: "captures/it-" + time.Now().Format("150405.000000") + ".jpg",
		PlaceName:   "Bilbao, Spain",
		Metadata:    domain.CaptureMetadata{Lat: 43.26, Lng: -2.93, FOV: 90, MimeType: "image/jpeg"},
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected id to be set")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PlaceName != "Bilbao, Spain" || got.Metadata.FOV != 90 {
		t.Errorf("unexpected row %+v", got)
	}

	if err := repo.SetThumbnail(ctx, p.ID, "https://cdn.example/thumbnails/a.jpg"); err != nil {
		t.Fatalf("set thumbnail: %v", err)
	}

	list, err := repo.ListByUser(ctx, "it-user", 0, 10)
	if err != nil || len(list) != 1 || list[0].ThumbnailURL == "" {
		t.Fatalf("list: %+v, %v", list, err)
	}
	n, err := repo.CountByUser(ctx, "it-user")
	if err != nil || n != 1 {
		t.Fatalf("count: %d, %v", n, err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
