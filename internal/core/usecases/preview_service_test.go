package usecases_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
)

func TestPreviewService_Lifecycle(t *testing.T) {
	cache := newMemCache()
	svc := usecases.NewPreviewService(cache)
	ctx := context.Background()

	res := domain.NewCaptureSuccess(&domain.Image{Data: []byte{1, 2, 3, 4}, MimeType: "image/png"}, domain.CaptureMetadata{FOV: 60})
	p, err := svc.Create(ctx, res)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Handle == "" || p.ExpiresAt.IsZero() {
		t.Fatalf("bad preview %+v", p)
	}
	if ttl := cache.ttls["preview:"+p.Handle]; ttl != usecases.PreviewTTL {
		t.Errorf("expected ttl %v, got %v", usecases.PreviewTTL, ttl)
	}

	img, meta, err := svc.Open(ctx, p.Handle)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(img.Data, []byte{1, 2, 3, 4}) || img.MimeType != "image/png" || meta.FOV != 60 {
		t.Errorf("round trip mismatch: %+v %+v", img, meta)
	}

	if err := svc.Revoke(ctx, p.Handle); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := svc.Open(ctx, p.Handle); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("revoked handle should be gone, got %v", err)
	}
}

func TestPreviewService_RejectsFailuresAndBadHandles(t *testing.T) {
	svc := usecases.NewPreviewService(newMemCache())
	failed := domain.NewCaptureFailure(domain.NewValidationError(domain.ErrMissingParameters), domain.CaptureMetadata{})
	if _, err := svc.Create(context.Background(), failed); err == nil {
		t.Fatal("a failed capture should not become a preview")
	}
	if _, _, err := svc.Open(context.Background(), "../../etc/passwd"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed handle, got %v", err)
	}
}
