package imagedata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestDataURLRoundTrip(t *testing.T) {
	data := pngImage(t, 8, 8)

	url := EncodeDataURL("image/png", data)
	assert.True(t, len(url) > len("data:image/png;base64,"))
	assert.Equal(t, "data:image/png;base64,", url[:len("data:image/png;base64,")])

	mime, decoded, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, decoded)
}

func TestDataURLRoundTrip_BinaryExact(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i * 7)
	}
	_, decoded, err := DecodeDataURL(EncodeDataURL("image/jpeg", data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrInvalidDataURL, in)
	}
}

func TestDecodeDataURL_SniffsMissingMime(t *testing.T) {
	mime, _, err := DecodeDataURL(EncodeDataURL("", pngImage(t, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestDetectMimeAndExtension(t *testing.T) {
	assert.Equal(t, "image/png", DetectMime(pngImage(t, 2, 2)))
	assert.True(t, IsImage(pngImage(t, 2, 2)))
	assert.False(t, IsImage([]byte("hello world")))

	assert.Equal(t, "png", ExtensionFor("image/png"))
	assert.Equal(t, "jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, "webp", ExtensionFor("IMAGE/WEBP; q=1"))
	assert.Equal(t, "jpg", ExtensionFor("application/octet-stream"))
}

func TestThumbnail(t *testing.T) {
	out, err := Thumbnail(pngImage(t, 640, 320), 320)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 160, cfg.Height)
}

func TestThumbnail_SmallImageNotUpscaled(t *testing.T) {
	out, err := Thumbnail(pngImage(t, 100, 50), 320)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	_, err := Thumbnail([]byte("not an image"), 320)
	assert.Error(t, err)
}
