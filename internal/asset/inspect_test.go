package asset_test

import (
	"testing"

	"github.com/mdouchement/memeswipe/internal/asset"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	data := pngImage(t, 120, 80)

	info, err := asset.Inspect(data, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, len(data), info.Size)
	assert.Equal(t, 120, info.Width)
	assert.Equal(t, 80, info.Height)
	assert.NotEmpty(t, info.BlurHash)
}

func TestInspectRejects(t *testing.T) {
	_, err := asset.Inspect(nil, 0, 0)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))

	_, err = asset.Inspect([]byte("definitely not an image"), 0, 0)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))

	_, err = asset.Inspect([]byte("%PDF-1.4\n%âãÏÓ\n"), 0, 0)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))

	data := pngImage(t, 32, 32)
	_, err = asset.Inspect(data, len(data)-1, 0)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))
}

func TestInspectRejectsLargeDimensions(t *testing.T) {
	_, err := asset.Inspect(pngImage(t, 64, 64), 0, 64*64-1)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))

	_, err = asset.Inspect(pngImage(t, 64, 64), 0, 64*64)
	assert.NoError(t, err)

	// A tiny payload whose header declares 12000x12000 pixels.
	data := withDimensions(t, pngImage(t, 1, 1), 12000, 12000)
	assert.Less(t, len(data), 100)

	_, err = asset.Inspect(data, 0, 0)
	require.Error(t, err)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))
	assert.Contains(t, err.Error(), "12000x12000")
}

func TestInspectRejectsTruncatedImage(t *testing.T) {
	data := pngImage(t, 64, 64)
	truncated := data[:len(data)-20]

	_, err := asset.Inspect(truncated, 0, 0)
	require.Error(t, err)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))
}

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{
		"https://i.imgur.com/abc.png",
		"http://example.com/memes/cat.JPEG",
		"https://example.com/a.webp?size=large",
	} {
		assert.NoError(t, asset.ValidateURL(raw), raw)
	}

	for _, raw := range []string{
		"",
		"not a url",
		"ftp://example.com/a.png",
		"https://example.com/page.html",
		"https://example.com/",
	} {
		err := asset.ValidateURL(raw)
		assert.True(t, mserror.Is(err, mserror.KindInvalidInput), raw)
	}
}
