package http

import (
	"context"
	"time"

	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/workflows"
)

// Pinger is a backing service that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ArchiveStarter starts the durable capture-and-archive workflow.
type ArchiveStarter interface {
	StartArchive(ctx context.Context, input workflows.ArchiveInput) (string, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Captures  *usecases.CaptureService
	Locations *usecases.LocationService
	Albums    *usecases.AlbumService
	Previews  *usecases.PreviewService

	// Archiver is nil unless Temporal is enabled.
	Archiver ArchiveStarter

	DB     Pinger
	Cache  Pinger
	Broker Pinger

	ImageryConfigured bool
	RateLimit         int // requests per minute per IP; 0 disables
	ViewerDebounce    time.Duration
	Version           string
}

func (d *Dependencies) viewerDebounce() time.Duration {
	if d.ViewerDebounce > 0 {
		return d.ViewerDebounce
	}
	return 750 * time.Millisecond
}
