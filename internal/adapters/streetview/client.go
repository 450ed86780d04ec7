// Package streetview talks to the Street View Static API, its metadata
// endpoint and the Geocoding API.
package streetview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/ports"
	"github.com/samirrijal/photoeye/internal/pkg/imagedata"
	"github.com/samirrijal/photoeye/internal/pkg/metrics"
)

const (
	staticPath   = "/maps/api/streetview"
	metadataPath = "/maps/api/streetview/metadata"
	geocodePath  = "/maps/api/geocode/json"

	maxImageBytes = 10 << 20
	maxJSONBytes  = 1 << 20
)

// Client implements ports.ImageryClient and ports.Geocoder. Every call is a
// single attempt.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var (
	_ ports.ImageryClient = (*Client)(nil)
	_ ports.Geocoder      = (*Client)(nil)
)

// New creates a Client. An empty key yields domain.ErrCredentialMissing.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrCredentialMissing
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("streetview base url: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// StaticImage fetches one still image for the query.
func (c *Client) StaticImage(ctx context.Context, q ports.StaticImageQuery) (*domain.Image, error) {
	params := url.Values{}
	params.Set("size", q.Size)
	params.Set("location", latLng(q.Lat, q.Lng))
	params.Set("heading", strconv.Itoa(q.Heading))
	params.Set("pitch", strconv.Itoa(q.Pitch))
	params.Set("fov", strconv.Itoa(q.FOV))
	params.Set("format", string(q.Format))
	params.Set("return_error_codes", "true")

	resp, err := c.get(ctx, "static", staticPath, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBytes))
		return nil, domain.NewUpstreamError(resp.StatusCode, fmt.Errorf("streetview returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", stripURL(err))
	}
	if len(data) > maxImageBytes {
		return nil, domain.NewUpstreamError(http.StatusBadGateway, fmt.Errorf("upstream image exceeds %d bytes", maxImageBytes))
	}

	mimeType := contentType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = imagedata.DetectMime(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.NewUpstreamError(http.StatusBadGateway, fmt.Errorf("upstream sent %s instead of an image", mimeType))
	}
	return &domain.Image{Data: data, MimeType: mimeType}, nil
}

type metadataResponse struct {
	Status    string `json:"status"`
	PanoID    string `json:"pano_id"`
	Date      string `json:"date"`
	Copyright string `json:"copyright"`
	Location  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

// PanoramaMetadata looks up the outdoor panorama nearest to a point.
func (c *Client) PanoramaMetadata(ctx context.Context, lat, lng float64, radiusMeters int) (*domain.Panorama, error) {
	params := url.Values{}
	params.Set("location", latLng(lat, lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("source", "outdoor")

	var body metadataResponse
	if err := c.getJSON(ctx, "metadata", metadataPath, params, &body); err != nil {
		return nil, err
	}

	switch body.Status {
	case "OK":
		return &domain.Panorama{
			PanoID:    body.PanoID,
			Location:  domain.GeoPoint{Lat: body.Location.Lat, Lng: body.Location.Lng},
			Date:      body.Date,
			Copyright: body.Copyright,
		}, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, domain.ErrNoImagery
	default:
		return nil, statusError(body.Status)
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string                    `json:"formatted_address"`
		AddressComponents []domain.AddressComponent `json:"address_components"`
		Geometry          struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Reverse geocodes a point. No match is an empty slice.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) ([]domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", latLng(lat, lng))
	results, err := c.geocode(ctx, params)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return results, err
}

// Forward geocodes free text. No match is a *domain.GeocodeError.
func (c *Client) Forward(ctx context.Context, address string) ([]domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)
	return c.geocode(ctx, params)
}

func (c *Client) geocode(ctx context.Context, params url.Values) ([]domain.GeocodeResult, error) {
	var body geocodeResponse
	if err := c.getJSON(ctx, "geocode", geocodePath, params, &body); err != nil {
		return nil, err
	}
	if body.Status != "OK" {
		return nil, &domain.GeocodeError{Status: body.Status}
	}

	out := make([]domain.GeocodeResult, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, domain.GeocodeResult{
			FormattedAddress:  r.FormattedAddress,
			Location:          domain.GeoPoint{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			AddressComponents: r.AddressComponents,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) (*http.Response, error) {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, stripURL(err))
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(endpoint, started, 0)
		return nil, stripURL(err)
	}
	metrics.ObserveUpstream(endpoint, started, resp.StatusCode)
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, dst any) error {
	resp, err := c.get(ctx, endpoint, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBytes))
		return domain.NewUpstreamError(resp.StatusCode, fmt.Errorf("%s returned %d", endpoint, resp.StatusCode))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBytes)).Decode(dst); err != nil {
		return domain.NewUpstreamError(http.StatusBadGateway, fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}

// stripURL drops the request URL (and with it the key) from transport errors.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		inner := ue.Err
		if ue.Timeout() && !errors.Is(inner, context.DeadlineExceeded) {
			inner = fmt.Errorf("%v: %w", inner, context.DeadlineExceeded)
		}
		return &url.Error{Op: ue.Op, URL: "[redacted]", Err: inner}
	}
	return err
}

// statusError maps a metadata API status string to an error.
func statusError(status string) error {
	switch status {
	case "REQUEST_DENIED":
		return domain.NewUpstreamError(http.StatusForbidden, errors.New(status))
	case "OVER_QUERY_LIMIT":
		return domain.NewUpstreamError(http.StatusTooManyRequests, errors.New(status))
	case "INVALID_REQUEST":
		return domain.NewUpstreamError(http.StatusBadRequest, errors.New(status))
	default:
		return domain.NewUpstreamError(http.StatusBadGateway, fmt.Errorf("metadata status %q", status))
	}
}

func latLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

func contentType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
