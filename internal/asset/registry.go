package asset

import (
	"context"
	"time"

	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds every asset store call.
const DefaultTimeout = 15 * time.Second

type (
	// A Registry dispatches asset operations to the backend owning a handle.
	// Literal http(s) handles belong to the direct backend, any other handle to the remote one.
	Registry struct {
		direct    Store
		remote    Store
		uploads   Store
		timeout   time.Duration
		maxSize   int
		maxPixels int
		metrics   *metrics.Metrics
	}

	// An Option configures a Registry.
	Option func(*Registry)
)

// WithTimeout sets the timeout applied to each backend call.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxSize sets the maximum size of an uploaded image.
func WithMaxSize(n int) Option {
	return func(r *Registry) {
		r.maxSize = n
	}
}

// WithMaxPixels sets the maximum width*height of an uploaded image.
func WithMaxPixels(n int) Option {
	return func(r *Registry) {
		r.maxPixels = n
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry returns a new Registry.
// Uploaded images go to remote when it is not nil, to direct otherwise.
func NewRegistry(direct, remote Store, opts ...Option) *Registry {
	r := &Registry{
		direct:    direct,
		remote:    remote,
		uploads:   direct,
		timeout:   DefaultTimeout,
		maxSize:   DefaultMaxSize,
		maxPixels: DefaultMaxPixels,
	}
	if remote != nil {
		r.uploads = remote
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Inspect checks an image payload without storing it.
func (r *Registry) Inspect(data []byte) (Info, error) {
	return Inspect(data, r.maxSize, r.maxPixels)
}

// Store inspects and uploads the image under the given key.
// On failure the returned asset still carries the handle the upload may have reached,
// an empty handle means nothing was sent to the backend.
func (r *Registry) Store(ctx context.Context, key string, data []byte) (model.Asset, error) {
	info, err := r.Inspect(data)
	if err != nil {
		return model.Asset{}, err
	}
	if r.uploads == nil {
		return model.Asset{}, mserror.StoreUnavailable(nil, "no asset store configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	stored, err := r.uploads.Store(ctx, key, data)
	err = r.unavailable(ctx, err, "could not store image")
	r.metrics.ObserveAsset(r.uploads.Name(), "store", start, err)

	asset := model.Asset{
		Handle:      stored.Handle,
		Address:     stored.Address,
		ContentType: info.ContentType,
		Size:        info.Size,
		Width:       info.Width,
		Height:      info.Height,
		BlurHash:    info.BlurHash,
	}
	return asset, err
}

// Link returns the asset of a caller-supplied image URL. No store is involved.
func (r *Registry) Link(raw string) (model.Asset, error) {
	if err := ValidateURL(raw); err != nil {
		return model.Asset{}, err
	}
	return model.Asset{Handle: raw, Address: raw}, nil
}

// Resolve returns the current address of the handle.
func (r *Registry) Resolve(ctx context.Context, handle string) (string, error) {
	backend, err := r.backend(handle)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	address, err := backend.Resolve(ctx, handle)
	err = r.unavailable(ctx, err, "could not resolve image")
	r.metrics.ObserveAsset(backend.Name(), "resolve", start, err)
	return address, err
}

// Delete removes the asset behind the handle. An unknown handle is treated as already deleted.
func (r *Registry) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}

	backend, err := r.backend(handle)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err = backend.Delete(ctx, handle)
	if mserror.Is(err, mserror.KindNotFound) {
		err = nil
	}
	err = r.unavailable(ctx, err, "could not delete image")
	r.metrics.ObserveAsset(backend.Name(), "delete", start, err)
	return err
}

func (r *Registry) backend(handle string) (Store, error) {
	if handle == "" {
		return nil, mserror.NotFound("Image not found.")
	}

	if model.IsDirectHandle(handle) {
		if r.direct == nil {
			return nil, mserror.StoreUnavailable(nil, "direct asset store not configured")
		}
		return r.direct, nil
	}

	if r.remote == nil {
		return nil, mserror.StoreUnavailable(nil, "remote asset store not configured")
	}
	return r.remote, nil
}

// unavailable maps timeouts and untyped backend failures to StoreUnavailable.
func (r *Registry) unavailable(ctx context.Context, err error, message string) error {
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !mserror.Is(err, mserror.KindNotFound) {
		return mserror.StoreUnavailable(errors.Wrap(err, ctxErr.Error()), message)
	}

	var mserr *mserror.MSError
	if errors.As(err, &mserr) {
		return err
	}
	return mserror.StoreUnavailable(err, message)
}
