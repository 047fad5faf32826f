package asset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
)

// Direct stores images in a local directory served under a base URL.
// The handle of a stored image is its address.
// Addresses outside the base URL are externally owned: they resolve to themselves and are never deleted.
type Direct struct {
	root    string
	baseURL string
	mu      sync.RWMutex
}

// NewDirect returns a new Direct store writing in root and addressing files under baseURL.
func NewDirect(root, baseURL string) (*Direct, error) {
	if root == "" {
		return nil, errors.New("local asset path cannot be empty")
	}
	if baseURL == "" {
		return nil, errors.New("local asset base URL cannot be empty")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create %s", root)
	}

	return &Direct{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Name returns the backend name.
func (s *Direct) Name() string {
	return "direct"
}

// Root returns the directory where images are written.
func (s *Direct) Root() string {
	return s.root
}

// Store writes data as {key}{ext} and returns its address.
func (s *Direct) Store(ctx context.Context, key string, data []byte) (Stored, error) {
	if key == "" || filepath.Base(key) != key {
		return Stored{}, mserror.InvalidInput("Invalid asset key.")
	}

	name := key + mimetype.Detect(data).Extension()
	address := s.baseURL + "/" + name
	stored := Stored{Handle: address, Address: address}

	if err := ctx.Err(); err != nil {
		return stored, mserror.StoreUnavailable(err, "could not store image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.root, name), data, 0644); err != nil {
		return stored, mserror.StoreUnavailable(err, "could not write image file")
	}
	return stored, nil
}

// Resolve returns the address of the handle.
func (s *Direct) Resolve(ctx context.Context, handle string) (string, error) {
	filename, managed := s.filename(handle)
	if !managed {
		return handle, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return "", mserror.NotFound("Image not found.")
		}
		return "", mserror.StoreUnavailable(err, "could not stat image file")
	}
	return handle, nil
}

// Delete removes the file behind the handle. A missing file is not an error.
func (s *Direct) Delete(ctx context.Context, handle string) error {
	filename, managed := s.filename(handle)
	if !managed {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return mserror.StoreUnavailable(err, "could not delete image file")
	}
	return nil
}

// filename returns the local path of a managed handle.
func (s *Direct) filename(handle string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(handle, prefix) {
		return "", false
	}

	name := strings.TrimPrefix(handle, prefix)
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", false
	}
	return filepath.Join(s.root, name), true
}
