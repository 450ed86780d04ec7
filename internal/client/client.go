// Package client is the Go consumer of the PhotoEye capture proxy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
	"github.com/samirrijal/photoeye/internal/pkg/imagedata"
)

// Error classes a caller can act on.
var (
	// ErrInvalidRequest: fix the request and resubmit.
	ErrInvalidRequest = errors.New("invalid capture request")
	// ErrNoImagery: pick a different location.
	ErrNoImagery = errors.New("no street-level imagery at this location")
	// ErrNotConfigured: the server has no imagery credential; retrying will not help.
	ErrNotConfigured = errors.New("street view service is not configured")
	// ErrNotFound: a lookup matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrTransient: retry later.
	ErrTransient = errors.New("transient capture failure")

	ErrCaptureInProgress = domain.ErrCaptureInProgress
)

// LegacyCapturePath is the proxy path older deployments expose.
const LegacyCapturePath = "/api/streetview-preview"

// Error is a failed call. It unwraps to one of the class errors above.
type Error struct {
	Status  int
	Kind    string // X-Capture-Error, when the server sent one
	Message string
	class   error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.class, e.Message)
	}
	return fmt.Sprintf("%v (HTTP %d): %s", e.class, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.class }

// Options configures a Client.
type Options struct {
	BaseURL     string
	CapturePath string // defaults to /v1/captures
	UserID      string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client calls the proxy. At most one capture is in flight per Client.
type Client struct {
	baseURL     string
	capturePath string
	userID      string
	http        *http.Client
	busy        atomic.Bool
	now         func() time.Time
}

// New creates a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	path := opts.CapturePath
	if path == "" {
		path = "/v1/captures"
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		capturePath: path,
		userID:      opts.UserID,
		http:        hc,
		now:         time.Now,
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Capture is a captured image plus the view it was taken from.
type Capture struct {
	Data     []byte
	MimeType string
	Metadata domain.CaptureMetadata
}

// Release drops the image buffer. The Capture must not be used afterwards.
func (c *Capture) Release() {
	c.Data = nil
}

// Extension returns the file extension for the capture's MIME type.
func (c *Capture) Extension() string {
	return imagedata.ExtensionFor(c.MimeType)
}

type captureBody struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
	Zoom    float64 `json:"zoom"`
	Size    string  `json:"size,omitempty"`
	Format  string  `json:"format,omitempty"`
}

func newCaptureBody(view domain.ViewParameters, opts domain.CaptureOptions) captureBody {
	return captureBody{
		Lat:     view.Lat,
		Lng:     view.Lng,
		Heading: view.Heading,
		Pitch:   view.Pitch,
		Zoom:    view.Zoom,
		Size:    opts.Size,
		Format:  string(opts.Format),
	}
}

// metadata is built locally; the proxy does not echo it for binary captures.
func (c *Client) metadata(view domain.ViewParameters, data []byte, mimeType string) domain.CaptureMetadata {
	return domain.CaptureMetadata{
		Lat:        view.Lat,
		Lng:        view.Lng,
		Heading:    geospatial.RoundHalfUp(view.Heading),
		Pitch:      geospatial.RoundHalfUp(view.Pitch),
		Zoom:       view.Zoom,
		FOV:        geospatial.FOVFromZoom(view.Zoom),
		CapturedAt: c.now().UTC(),
		FileSize:   len(data),
		MimeType:   mimeType,
	}
}

func (c *Client) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrCaptureInProgress
	}
	return nil
}

func (c *Client) end() { c.busy.Store(false) }

// Capture posts the view to the proxy and returns the image bytes.
func (c *Client) Capture(ctx context.Context, view domain.ViewParameters, opts domain.CaptureOptions) (*Capture, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	resp, err := c.post(ctx, c.capturePath, newCaptureBody(view, opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp, ErrNoImagery)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "read image: " + err.Error(), class: ErrTransient}
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = imagedata.DetectMime(data)
	}
	return &Capture{Data: data, MimeType: mimeType, Metadata: c.metadata(view, data, mimeType)}, nil
}

type dataURLResponse struct {
	URL      *string                `json:"url"`
	Error    string                 `json:"error"`
	Metadata domain.CaptureMetadata `json:"metadata"`
}

// CaptureDataURL uses the base64 variant. The payload is decoded once and
// only the raw bytes are kept.
func (c *Client) CaptureDataURL(ctx context.Context, view domain.ViewParameters, opts domain.CaptureOptions) (*Capture, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	resp, err := c.post(ctx, "/v1/captures/data-url", newCaptureBody(view, opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp, ErrNoImagery)
	}

	var out dataURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "decode response: " + err.Error(), class: ErrTransient}
	}
	if out.URL == nil {
		return nil, &Error{Status: resp.StatusCode, Message: out.Error, class: ErrTransient}
	}

	mimeType, data, err := imagedata.DecodeDataURL(*out.URL)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: err.Error(), class: ErrTransient}
	}
	out.URL = nil

	meta := out.Metadata
	if meta.CapturedAt.IsZero() {
		meta = c.metadata(view, data, mimeType)
	}
	meta.FileSize = len(data)
	meta.MimeType = mimeType
	return &Capture{Data: data, MimeType: mimeType, Metadata: meta}, nil
}

// RandomLocation asks for a random point with imagery, worldwide.
func (c *Client) RandomLocation(ctx context.Context) (*domain.Location, error) {
	var loc domain.Location
	if err := c.getJSON(ctx, "/v1/locations/random", nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// PlaceName names a point.
func (c *Client) PlaceName(ctx context.Context, lat, lng float64) (*domain.Location, error) {
	var loc domain.Location
	if err := c.getJSON(ctx, "/v1/locations/place", coords(lat, lng), &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// NearestPanorama finds the closest outdoor panorama.
func (c *Client) NearestPanorama(ctx context.Context, lat, lng float64) (*domain.Panorama, error) {
	var pano domain.Panorama
	if err := c.getJSON(ctx, "/v1/locations/nearest", coords(lat, lng), &pano); err != nil {
		return nil, err
	}
	return &pano, nil
}

// Geocode resolves free text into a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (*domain.Address, error) {
	var addr domain.Address
	if err := c.getJSON(ctx, "/v1/geocode", url.Values{"address": {address}}, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func coords(lat, lng float64) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classify(resp, ErrNotFound)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// a cancelled caller is not a server fault
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Message: err.Error(), class: ErrTransient}
	}
	return resp, nil
}

// classify turns a non-200 response into an *Error. The X-Capture-Error
// header wins over the APIError code, which wins over the status code.
// notFound is the class of a bare 404.
func classify(resp *http.Response, notFound error) error {
	e := &Error{Status: resp.StatusCode, Kind: resp.Header.Get("X-Capture-Error")}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	kind := e.Kind
	if kind == "" {
		kind = body.Code
	}
	switch kind {
	case string(domain.KindValidation), "bad_request":
		e.class = ErrInvalidRequest
	case string(domain.KindNoImagery):
		e.class = ErrNoImagery
	case string(domain.KindNotConfigured):
		e.class = ErrNotConfigured
	case string(domain.KindUpstream), string(domain.KindInternal), "upstream_error", "upstream_timeout":
		e.class = ErrTransient
	default:
		e.class = classByStatus(resp.StatusCode, notFound)
	}
	return e
}

func classByStatus(status int, notFound error) error {
	switch {
	case status == http.StatusNotFound:
		return notFound
	case status == http.StatusServiceUnavailable:
		return ErrNotConfigured
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return ErrTransient
	case status >= 400 && status < 500:
		return ErrInvalidRequest
	default:
		return ErrTransient
	}
}
