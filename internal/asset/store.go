// Package asset stores, resolves and deletes item images.
//
// Two backends implement Store: Remote keeps images in Cloudinary and returns an
// opaque public id as handle, Direct keeps images in a local directory served under
// a base URL and uses that URL as handle. A Registry selects the backend from the
// shape of the handle, so the choice made at creation time is remembered by the item.
package asset

import (
	"context"
)

type (
	// A Store stores images and gives them a handle and an address.
	Store interface {
		// Name returns the backend name.
		Name() string
		// Store saves the data under a handle derived from key.
		// The returned handle is set even on failure so the caller can compensate a partial upload.
		Store(ctx context.Context, key string, data []byte) (Stored, error)
		// Resolve returns the current address of the given handle.
		Resolve(ctx context.Context, handle string) (string, error)
		// Delete removes the asset. An unknown handle is treated as already deleted.
		Delete(ctx context.Context, handle string) error
	}

	// Stored is the result of a Store call.
	Stored struct {
		Handle  string
		Address string
	}
)
