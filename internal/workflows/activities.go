package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
)

// Activity names, as registered by RegisterActivity on *ArchiveActivities.
const (
	ActivityCaptureImage    = "CaptureImage"
	ActivityUploadCapture   = "UploadCapture"
	ActivityRecordPhoto     = "RecordPhoto"
	ActivityPublishCaptured = "PublishCaptured"
	ActivityDeleteUpload    = "DeleteUpload"
)

// ArchiveActivities holds the activity implementations for the archive workflow.
type ArchiveActivities struct {
	Captures *usecases.CaptureService
}

// CapturedImage is the result of CaptureImage.
type CapturedImage struct {
	Data     []byte
	MimeType string
	Metadata domain.CaptureMetadata
}

// UploadedCapture is the result of UploadCapture.
type UploadedCapture struct {
	Key string
	URL string
}

// CaptureImage makes the single upstream call. Failures the caller has to fix
// (validation, no imagery, missing credential) are not retried.
func (a *ArchiveActivities) CaptureImage(ctx context.Context, input ArchiveInput) (*CapturedImage, error) {
	res := a.Captures.Capture(ctx, input.Request)
	if !res.OK() {
		switch res.Err.Kind {
		case domain.KindValidation, domain.KindNoImagery, domain.KindNotConfigured:
			return nil, temporal.NewNonRetryableApplicationError(res.Err.Error(), string(res.Err.Kind), res.Err)
		}
		return nil, res.Err
	}
	return &CapturedImage{Data: res.Image.Data, MimeType: res.Image.MimeType, Metadata: res.Metadata}, nil
}

// UploadCapture stores the captured bytes.
func (a *ArchiveActivities) UploadCapture(ctx context.Context, img CapturedImage) (*UploadedCapture, error) {
	res := domain.NewCaptureSuccess(&domain.Image{Data: img.Data, MimeType: img.MimeType}, img.Metadata)
	key, url, err := a.Captures.Upload(ctx, res)
	if err != nil {
		return nil, err
	}
	return &UploadedCapture{Key: key, URL: url}, nil
}

// RecordPhoto inserts the album row and returns it with its id.
func (a *ArchiveActivities) RecordPhoto(ctx context.Context, photo domain.Photo) (*domain.Photo, error) {
	if err := a.Captures.Record(ctx, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// PublishCaptured announces the recorded photo.
func (a *ArchiveActivities) PublishCaptured(ctx context.Context, photo domain.Photo) error {
	return a.Captures.Announce(ctx, &photo)
}

// DeleteUpload removes an uploaded object (saga compensation).
func (a *ArchiveActivities) DeleteUpload(ctx context.Context, key string) error {
	if err := a.Captures.Discard(ctx, key); err != nil {
		return fmt.Errorf("compensate upload: %w", err)
	}
	activity.GetLogger(ctx).Info("upload deleted (saga compensation)", "key", key)
	return nil
}
