package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/pkg/debounce"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
	"github.com/samirrijal/photoeye/internal/pkg/logging"
	"github.com/samirrijal/photoeye/internal/pkg/metrics"
)

// viewerMessage is one frame of the viewer protocol, in either direction.
//
// Client to server:
//
//	{"type":"move","lat":48.85,"lng":2.29}
//	{"type":"capture","lat":48.85,"lng":2.29,"heading":90,"pitch":0,"zoom":1}
//
// Server to client: "place", "captured" and "error".
type viewerMessage struct {
	Type    string   `json:"type"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Heading *float64 `json:"heading,omitempty"`
	Pitch   *float64 `json:"pitch,omitempty"`
	Zoom    *float64 `json:"zoom,omitempty"`
	Size    string   `json:"size,omitempty"`
	Format  string   `json:"format,omitempty"`

	Name     string                  `json:"name,omitempty"`
	Handle   string                  `json:"handle,omitempty"`
	URL      string                  `json:"url,omitempty"`
	Kind     string                  `json:"kind,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Metadata *domain.CaptureMetadata `json:"metadata,omitempty"`
}

type point struct{ lat, lng float64 }

// viewerSession holds the state of one connected viewer. Place lookups are
// debounced: a newer move cancels the pending or running lookup for the
// previous position, so only the latest position is ever answered.
type viewerSession struct {
	id     string
	deps   *Dependencies
	ctx    context.Context
	send   func(v any) error
	log    *slog.Logger
	places *debounce.Debouncer[point]
	wg     sync.WaitGroup
}

func newViewerSession(ctx context.Context, deps *Dependencies, send func(v any) error) *viewerSession {
	s := &viewerSession{
		id:   uuid.NewString(),
		deps: deps,
		send: send,
	}
	s.log = slog.Default().With("viewer_id", s.id)
	s.ctx = logging.WithLogger(ctx, s.log)
	s.places = debounce.New(deps.viewerDebounce(), s.lookupPlace)
	return s
}

func (s *viewerSession) lookupPlace(ctx context.Context, p point) {
	name, err := s.deps.Locations.PlaceName(ctx, p.lat, p.lng)
	if err != nil {
		return
	}
	lat, lng := p.lat, p.lng
	s.places.Deliver(ctx, func() {
		_ = s.send(viewerMessage{Type: "place", Lat: &lat, Lng: &lng, Name: name})
	})
}

// handle processes one client frame.
func (s *viewerSession) handle(raw []byte) {
	var m viewerMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		_ = s.send(viewerMessage{Type: "error", Error: "invalid JSON"})
		return
	}

	switch m.Type {
	case "move":
		if m.Lat == nil || m.Lng == nil || !geospatial.ValidLatLng(*m.Lat, *m.Lng) {
			_ = s.send(viewerMessage{Type: "error", Kind: string(domain.KindValidation), Error: msgInvalidParameters})
			return
		}
		s.places.Trigger(s.ctx, point{*m.Lat, *m.Lng})

	case "capture":
		body := captureBody{Lat: m.Lat, Lng: m.Lng, Heading: m.Heading, Pitch: m.Pitch, Zoom: m.Zoom, Size: m.Size, Format: m.Format}
		req, err := body.request()
		if err != nil {
			_ = s.send(viewerMessage{Type: "error", Kind: string(domain.KindValidation), Error: msgMissingParameters})
			return
		}
		if !s.deps.Captures.TryBegin(s.id) {
			_ = s.send(viewerMessage{Type: "error", Kind: "busy", Error: domain.ErrCaptureInProgress.Error()})
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.deps.Captures.End(s.id)
			s.capture(req)
		}()

	default:
		_ = s.send(viewerMessage{Type: "error", Error: "unknown message type: " + m.Type})
	}
}

func (s *viewerSession) capture(req domain.CaptureRequest) {
	res := s.deps.Captures.Capture(s.ctx, req)
	if !res.OK() {
		_ = s.send(viewerMessage{Type: "error", Kind: string(res.Err.Kind), Error: captureMessage(res.Err), Metadata: &res.Metadata})
		return
	}
	if s.deps.Previews == nil {
		_ = s.send(viewerMessage{Type: "captured", Metadata: &res.Metadata})
		return
	}
	preview, err := s.deps.Previews.Create(s.ctx, res)
	if err != nil {
		s.log.Error("store preview", "error", err)
		_ = s.send(viewerMessage{Type: "error", Kind: string(domain.KindInternal), Error: msgInternal})
		return
	}
	_ = s.send(viewerMessage{
		Type:     "captured",
		Handle:   preview.Handle,
		URL:      "/v1/previews/" + preview.Handle,
		Metadata: &preview.Metadata,
	})
}

// close stops pending lookups and waits for running captures.
func (s *viewerSession) close() {
	s.places.Stop()
	s.wg.Wait()
}

// WebSocketHandler serves the viewer protocol on /ws/viewer.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		session := newViewerSession(ctx, deps, writeJSON)
		session.log.Info("viewer connected", "remote", c.RemoteAddr().String())
		metrics.ActiveViewers.Inc()
		defer metrics.ActiveViewers.Dec()

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			session.handle(msg)
		}

		close(done)
		cancel()
		session.close()
		session.log.Info("viewer disconnected")
	}
}
