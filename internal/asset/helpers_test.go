package asset_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withDimensions rewrites the IHDR chunk of a PNG to declare the given dimensions.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()

	// signature (8) + length (4) + "IHDR" (4) + width (4) + height (4) + 5 bytes + crc (4)
	require.Greater(t, len(data), 33)
	require.Equal(t, "IHDR", string(data[12:16]))

	patched := bytes.Clone(data)
	binary.BigEndian.PutUint32(patched[16:20], w)
	binary.BigEndian.PutUint32(patched[20:24], h)
	binary.BigEndian.PutUint32(patched[29:33], crc32.ChecksumIEEE(patched[12:29]))
	return patched
}
