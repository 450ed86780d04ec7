package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/photoeye/internal/core/domain"
)

// ArchiveInput is the input for the archive workflow.
type ArchiveInput struct {
	UserID    string
	Request   domain.CaptureRequest
	PlaceName string
}

// ArchiveResult is what the archive workflow returns.
type ArchiveResult struct {
	PhotoID     int64
	ImageURL    string
	StoragePath string
}

// ArchiveCaptureWorkflow captures a view, uploads it, records the album row
// and announces it. If recording fails the upload is deleted (saga
// compensation). A failed announcement does not fail the workflow.
func ArchiveCaptureWorkflow(ctx workflow.Context, input ArchiveInput) (*ArchiveResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting archive workflow", "user", input.UserID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	// Step 1: one upstream capture
	var captured CapturedImage
	if err := workflow.ExecuteActivity(ctx, ActivityCaptureImage, input).Get(ctx, &captured); err != nil {
		return nil, err
	}

	// Step 2: upload
	var upload UploadedCapture
	if err := workflow.ExecuteActivity(ctx, ActivityUploadCapture, captured).Get(ctx, &upload); err != nil {
		return nil, err
	}

	// Step 3: record, compensating the upload on failure
	photo := domain.Photo{
		UserID:      input.UserID,
		ImageURL:    upload.URL,
		StoragePath: upload.Key,
		PlaceName:   input.PlaceName,
		Metadata:    captured.Metadata,
	}
	var recorded domain.Photo
	if err := workflow.ExecuteActivity(ctx, ActivityRecordPhoto, photo).Get(ctx, &recorded); err != nil {
		logger.Warn("record failed, compensating", "error", err)
		if cerr := workflow.ExecuteActivity(ctx, ActivityDeleteUpload, upload.Key).Get(ctx, nil); cerr != nil {
			logger.Error("compensation failed", "key", upload.Key, "error", cerr)
		}
		return nil, err
	}

	// Step 4: announce
	if err := workflow.ExecuteActivity(ctx, ActivityPublishCaptured, recorded).Get(ctx, nil); err != nil {
		logger.Warn("publish failed", "photo_id", recorded.ID, "error", err)
	}

	logger.Info("Capture archived", "photo_id", recorded.ID)
	return &ArchiveResult{PhotoID: recorded.ID, ImageURL: recorded.ImageURL, StoragePath: recorded.StoragePath}, nil
}
