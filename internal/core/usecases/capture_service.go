package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/pkg/metrics"
	"github.com/samirrijal/photoeye/internal/pkg/telemetry"
)

// CaptureCacheControl is stored with every uploaded capture.
const CaptureCacheControl = "max-age=3600"

// CaptureService turns a view into a still image and optionally archives it.
type CaptureService struct {
	imagery   ports.ImageryClient
	storage   ports.ObjectStorage
	photos    ports.PhotoRepository
	publisher ports.EventPublisher

	now  func() time.Time
	busy sync.Map // viewerID -> struct{}
}

// NewCaptureService creates a new CaptureService. storage, photos and
// publisher may be nil when only Capture is used.
func NewCaptureService(imagery ports.ImageryClient, storage ports.ObjectStorage, photos ports.PhotoRepository, publisher ports.EventPublisher) *CaptureService {
	return &CaptureService{
		imagery:   imagery,
		storage:   storage,
		photos:    photos,
		publisher: publisher,
		now:       time.Now,
	}
}

// Metadata derives the capture metadata for a view at the current time.
func (s *CaptureService) Metadata(view domain.ViewParameters) domain.CaptureMetadata {
	return domain.CaptureMetadata{
		Lat:        view.Lat,
		Lng:        view.Lng,
		Heading:    geospatial.RoundHalfUp(view.Heading),
		Pitch:      geospatial.RoundHalfUp(view.Pitch),
		Zoom:       view.Zoom,
		FOV:        geospatial.FOVFromZoom(view.Zoom),
		CapturedAt: s.now().UTC(),
	}
}

// Capture makes exactly one upstream request for the view. The result holds
// either the image or a classified error.
func (s *CaptureService) Capture(ctx context.Context, req domain.CaptureRequest) *domain.CaptureResult {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCapture)
	defer span.End()

	meta := s.Metadata(req.ViewParameters)
	if err := req.Validate(); err != nil {
		return s.fail(ctx, domain.NewValidationError(err), meta)
	}
	if s.imagery == nil {
		return s.fail(ctx, domain.AsCaptureError(domain.ErrCredentialMissing), meta)
	}

	opts := req.CaptureOptions.WithDefaults()
	query := ports.StaticImageQuery{
		Lat:     req.Lat,
		Lng:     req.Lng,
		Heading: meta.Heading,
		Pitch:   meta.Pitch,
		FOV:     meta.FOV,
		Size:    opts.Size,
		Format:  opts.Format,
	}
	span.SetAttributes(
		attribute.Float64("capture.lat", query.Lat),
		attribute.Float64("capture.lng", query.Lng),
		attribute.Int("capture.fov", query.FOV),
	)

	img, err := s.imagery.StaticImage(ctx, query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.fail(ctx, classifyUpstream(err), meta)
	}
	if img.MimeType == "" {
		img.MimeType = opts.Format.MimeType()
	}

	metrics.CapturesTotal.WithLabelValues("ok").Inc()
	metrics.CaptureBytes.Observe(float64(len(img.Data)))
	return domain.NewCaptureSuccess(img, meta)
}

func (s *CaptureService) fail(ctx context.Context, ce *domain.CaptureError, meta domain.CaptureMetadata) *domain.CaptureResult {
	metrics.CapturesTotal.WithLabelValues(string(ce.Kind)).Inc()
	logging.FromContext(ctx).Debug("capture failed", "kind", ce.Kind, "status", ce.HTTPStatus(), "error", ce.Err)
	return domain.NewCaptureFailure(ce, meta)
}

func classifyUpstream(err error) *domain.CaptureError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.CaptureError{Kind: domain.KindUpstream, Status: http.StatusGatewayTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return domain.NewInternalError(err)
	default:
		return domain.AsCaptureError(err)
	}
}

// StorageKey is the object key a capture is uploaded under.
func StorageKey(meta domain.CaptureMetadata, format domain.ImageFormat) string {
	return fmt.Sprintf("captures/streetview-%d-%.6f-%.6f.%s",
		meta.CapturedAt.UnixMilli(), meta.Lat, meta.Lng, format.Extension())
}

// Upload stores a successful capture and returns its storage key and public URL.
func (s *CaptureService) Upload(ctx context.Context, res *domain.CaptureResult) (string, string, error) {
	if s.storage == nil {
		return "", "", fmt.Errorf("upload capture: object storage not configured")
	}
	if !res.OK() {
		return "", "", fmt.Errorf("upload capture: %w", res.Err)
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCaptureUpload)
	defer span.End()

	format := domain.FormatJPG
	if res.Image.MimeType == domain.FormatPNG.MimeType() {
		format = domain.FormatPNG
	}
	key := StorageKey(res.Metadata, format)
	url, err := s.storage.PutObject(ctx, key, res.Image.MimeType, res.Image.Data, CaptureCacheControl)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", "", fmt.Errorf("upload capture: %w", err)
	}
	return key, url, nil
}

// Record inserts the album row for an uploaded capture.
func (s *CaptureService) Record(ctx context.Context, photo *domain.Photo) error {
	if s.photos == nil {
		return fmt.Errorf("record photo: repository not configured")
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCaptureRecord)
	defer span.End()

	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = s.now().UTC()
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("record photo: %w", err)
	}
	metrics.PhotosArchived.Inc()
	return nil
}

// Discard removes an uploaded object. It is the compensation for a failed Record.
func (s *CaptureService) Discard(ctx context.Context, key string) error {
	if s.storage == nil || key == "" {
		return nil
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("discard upload %s: %w", key, err)
	}
	return nil
}

// Announce publishes the captured event for a recorded photo.
func (s *CaptureService) Announce(ctx context.Context, photo *domain.Photo) error {
	if s.publisher == nil {
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCaptureAnnounce)
	defer span.End()

	return s.publisher.PublishPhotoCaptured(ctx, &domain.CaptureEvent{
		PhotoID:     photo.ID,
		UserID:      photo.UserID,
		StoragePath: photo.StoragePath,
		MimeType:    photo.Metadata.MimeType,
		CapturedAt:  photo.Metadata.CapturedAt,
	})
}

// CaptureAndUpload captures a view and archives it to the user's album.
// A failed capture comes back as its *domain.CaptureError.
func (s *CaptureService) CaptureAndUpload(ctx context.Context, userID string, req domain.CaptureRequest, placeName string) (*domain.Photo, error) {
	if userID == "" {
		return nil, domain.NewValidationError(fmt.Errorf("%w: user id", domain.ErrMissingParameters))
	}

	res := s.Capture(ctx, req)
	if !res.OK() {
		return nil, res.Err
	}

	key, url, err := s.Upload(ctx, res)
	if err != nil {
		return nil, err
	}

	photo := &domain.Photo{
		UserID:      userID,
		ImageURL:    url,
		StoragePath: key,
		PlaceName:   placeName,
		Metadata:    res.Metadata,
	}
	if err := s.Record(ctx, photo); err != nil {
		if derr := s.Discard(ctx, key); derr != nil {
			logging.FromContext(ctx).Error("compensation failed", "key", key, "error", derr)
		}
		return nil, err
	}

	if err := s.Announce(ctx, photo); err != nil {
		logging.FromContext(ctx).Warn("publish capture event", "photo_id", photo.ID, "error", err)
	}
	return photo, nil
}

// TryBegin marks a capture in flight for viewerID. It returns false when one
// is already running.
func (s *CaptureService) TryBegin(viewerID string) bool {
	_, loaded := s.busy.LoadOrStore(viewerID, struct{}{})
	return !loaded
}

// End clears the in-flight mark set by TryBegin.
func (s *CaptureService) End(viewerID string) {
	s.busy.Delete(viewerID)
}

// SetClock overrides the time source. Used by tests.
func (s *CaptureService) SetClock(now func() time.Time) {
	s.now = now
}
