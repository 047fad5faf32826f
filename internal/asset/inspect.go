package asset

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultMaxSize is the default maximum size of an uploaded image.
const DefaultMaxSize = 10 << 20

// DefaultMaxPixels is the default maximum width*height of an uploaded image.
// It bounds the memory used to decode it.
const DefaultMaxPixels = 40_000_000

// blurHashSize is the size of the thumbnail the placeholder is computed on.
const blurHashSize = 64

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Info describes an image payload.
type Info struct {
	ContentType string
	Extension   string
	Size        int
	Width       int
	Height      int
	BlurHash    string
}

// Inspect checks that data is a supported image no larger than maxSize bytes and maxPixels pixels, and describes it.
// A maxSize of 0 means no size limit, a maxPixels of 0 means DefaultMaxPixels.
// The dimensions are checked from the header before the image is decoded.
func Inspect(data []byte, maxSize, maxPixels int) (Info, error) {
	if len(data) == 0 {
		return Info{}, mserror.InvalidInput("Image is empty.")
	}
	if maxSize > 0 && len(data) > maxSize {
		return Info{}, mserror.Newf(mserror.KindInvalidInput, "Image must not exceed %d bytes.", maxSize)
	}

	mime := mimetype.Detect(data)
	if !allowed(mime) {
		return Info{}, mserror.Newf(mserror.KindInvalidInput, "Unsupported image format %s, only jpeg, png, gif and webp are allowed.", mime.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, mserror.Wrap(err, mserror.KindInvalidInput, "Image could not be decoded.")
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return Info{}, mserror.Newf(mserror.KindInvalidInput, "Image dimensions %dx%d exceed %d pixels.", cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, mserror.Wrap(err, mserror.KindInvalidInput, "Image could not be decoded.")
	}

	info := Info{
		ContentType: mime.String(),
		Extension:   mime.Extension(),
		Size:        len(data),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	// The placeholder is cosmetic, a failed encoding only leaves it empty.
	info.BlurHash, _ = BlurHash(img)
	return info, nil
}

func allowed(mime *mimetype.MIME) bool {
	for _, t := range allowedTypes {
		if mime.Is(t) {
			return true
		}
	}
	return false
}

// BlurHash computes the BlurHash placeholder of the given image.
func BlurHash(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", errors.Wrap(err, "encode blurhash")
	}
	return hash, nil
}

// thumbnail scales img down with nearest-neighbor sampling so its largest side is blurHashSize.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}

	tw, th := blurHashSize, blurHashSize
	if w > h {
		th = max(1, h*blurHashSize/w)
	} else {
		tw = max(1, w*blurHashSize/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			dst.Set(x, y, img.At(bounds.Min.X+x*w/tw, bounds.Min.Y+y*h/th))
		}
	}
	return dst
}
