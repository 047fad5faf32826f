package asset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mdouchement/memeswipe/internal/asset"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remoteStub struct {
	mu      sync.Mutex
	assets  map[string]bool
	block   bool
	failErr error
}

func newRemoteStub() *remoteStub {
	return &remoteStub{assets: map[string]bool{}}
}

func (s *remoteStub) Name() string { return "remote" }

func (s *remoteStub) Store(ctx context.Context, key string, data []byte) (asset.Stored, error) {
	stored := asset.Stored{Handle: "memes/" + key}
	if s.block {
		<-ctx.Done()
		return stored, ctx.Err()
	}
	if s.failErr != nil {
		return stored, s.failErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[stored.Handle] = true
	stored.Address = "https://res.cloudinary.com/demo/" + stored.Handle + ".png"
	return stored, nil
}

func (s *remoteStub) Resolve(ctx context.Context, handle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.assets[handle] {
		return "", mserror.NotFound("Image not found.")
	}
	return "https://res.cloudinary.com/demo/" + handle + ".png", nil
}

func (s *remoteStub) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.assets[handle] {
		return mserror.NotFound("Image not found.")
	}
	delete(s.assets, handle)
	return nil
}

func TestRegistryRouting(t *testing.T) {
	ctx := context.Background()
	direct, err := asset.NewDirect(t.TempDir(), "http://localhost:5000/uploads")
	require.NoError(t, err)
	remote := newRemoteStub()
	registry := asset.NewRegistry(direct, remote, asset.WithMetrics(metrics.New()))

	stored, err := registry.Store(ctx, "meme-1", pngImage(t, 16, 16))
	require.NoError(t, err)
	assert.Equal(t, "memes/meme-1", stored.Handle)
	assert.Equal(t, "image/png", stored.ContentType)
	assert.Equal(t, 16, stored.Width)

	address, err := registry.Resolve(ctx, stored.Handle)
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/memes/meme-1.png", address)

	require.NoError(t, registry.Delete(ctx, stored.Handle))
	_, err = registry.Resolve(ctx, stored.Handle)
	assert.True(t, mserror.Is(err, mserror.KindNotFound))

	// Deleting an unknown handle is not fatal.
	assert.NoError(t, registry.Delete(ctx, stored.Handle))

	linked, err := registry.Link("https://i.imgur.com/cat.gif")
	require.NoError(t, err)
	assert.Equal(t, linked.Handle, linked.Address)

	address, err = registry.Resolve(ctx, linked.Handle)
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/cat.gif", address)
	assert.NoError(t, registry.Delete(ctx, linked.Handle))

	_, err = registry.Link("https://i.imgur.com/cat.html")
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))
}

func TestRegistryWithoutRemote(t *testing.T) {
	ctx := context.Background()
	direct, err := asset.NewDirect(t.TempDir(), "http://localhost:5000/uploads")
	require.NoError(t, err)
	registry := asset.NewRegistry(direct, nil)

	stored, err := registry.Store(ctx, "meme-1", pngImage(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/uploads/meme-1.png", stored.Handle)

	_, err = registry.Resolve(ctx, "memes/opaque")
	assert.True(t, mserror.Is(err, mserror.KindStoreUnavailable))
}

func TestRegistryRejectsBeforeStoring(t *testing.T) {
	remote := newRemoteStub()
	registry := asset.NewRegistry(nil, remote, asset.WithMaxSize(64))

	stored, err := registry.Store(context.Background(), "meme-1", pngImage(t, 64, 64))
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))
	assert.Empty(t, stored.Handle)
	assert.Empty(t, remote.assets)
}

func TestRegistryTimeout(t *testing.T) {
	remote := newRemoteStub()
	remote.block = true
	registry := asset.NewRegistry(nil, remote, asset.WithTimeout(20*time.Millisecond))

	stored, err := registry.Store(context.Background(), "meme-1", pngImage(t, 4, 4))
	assert.True(t, mserror.Is(err, mserror.KindStoreUnavailable))
	assert.Equal(t, "memes/meme-1", stored.Handle)
}

func TestRegistryUntypedFailure(t *testing.T) {
	remote := newRemoteStub()
	remote.failErr = errors.New("connection reset by peer")
	registry := asset.NewRegistry(nil, remote)

	_, err := registry.Store(context.Background(), "meme-1", pngImage(t, 4, 4))
	assert.True(t, mserror.Is(err, mserror.KindStoreUnavailable))
	assert.True(t, mserror.KindOf(err).Retryable())
}
