package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/photoeye/internal/core/domain"
)

// fakeS3 is a minimal path-style S3 endpoint.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodPut:
		if _, exists := f.objects[key]; exists && r.Header.Get("If-None-Match") == "*" {
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = io.WriteString(w, `<Error><Code>PreconditionFailed</Code><Message>exists</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.headers[key] = r.Header.Clone()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.headers[key].Get("Content-Type"))
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Options{
		Bucket:    "streetview-images",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		PathStyle: true,
	})
	require.NoError(t, err)
	return store, fake
}

func TestStore_PutGetDelete(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	key := "captures/streetview-1-40.689200--74.044500.jpg"

	url, err := store.PutObject(ctx, key, "image/jpeg", []byte("jpeg"), "max-age=3600")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/streetview-images/"+key), url)

	h := fake.headers["streetview-images/"+key]
	require.NotNil(t, h)
	assert.Equal(t, "max-age=3600", h.Get("Cache-Control"))
	assert.Equal(t, "*", h.Get("If-None-Match"))
	assert.Equal(t, "image/jpeg", h.Get("Content-Type"))

	data, mime, err := store.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "image/jpeg", mime)

	require.NoError(t, store.DeleteObject(ctx, key))
	_, _, err = store.GetObject(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PutDoesNotOverwrite(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.PutObject(ctx, "captures/a.jpg", "image/jpeg", []byte("1"), "max-age=3600")
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "captures/a.jpg", "image/jpeg", []byte("2"), "max-age=3600")
	assert.True(t, errors.Is(err, ErrObjectExists), "got %v", err)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://cdn.example", publicBase(Options{PublicBaseURL: "https://cdn.example/"}))
	assert.Equal(t, "http://minio:9000/b", publicBase(Options{Endpoint: "http://minio:9000", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBase(Options{Bucket: "b", Region: "eu-west-1"}))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{Region: "us-east-1"})
	assert.Error(t, err)
}
