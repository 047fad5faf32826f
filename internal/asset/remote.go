package asset

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
)

// Remote stores images in Cloudinary.
// The handle is the public id of the image, its secure URL must be re-resolved on reads.
type Remote struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewRemote returns a new Remote store for the given Cloudinary account.
func NewRemote(cloudName, apiKey, apiSecret, folder string) (*Remote, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "could not configure cloudinary")
	}
	cld.Config.URL.Secure = true

	return &Remote{
		cld:    cld,
		folder: strings.Trim(folder, "/"),
	}, nil
}

// Name returns the backend name.
func (s *Remote) Name() string {
	return "remote"
}

// Store uploads data with a public id derived from key.
func (s *Remote) Store(ctx context.Context, key string, data []byte) (Stored, error) {
	stored := Stored{Handle: path.Join(s.folder, key)}

	overwrite := true
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  stored.Handle,
		Overwrite: &overwrite,
	})
	if err != nil {
		return stored, mserror.StoreUnavailable(err, "could not upload image")
	}
	if err := apiError(resp.Error); err != nil {
		return stored, mserror.StoreUnavailable(err, "could not upload image")
	}

	stored.Handle = resp.PublicID
	stored.Address = resp.SecureURL
	return stored, nil
}

// Resolve fetches the current secure URL of the public id.
func (s *Remote) Resolve(ctx context.Context, handle string) (string, error) {
	resp, err := s.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: handle})
	if err != nil {
		return "", mserror.StoreUnavailable(err, "could not fetch image")
	}
	if err := apiError(resp.Error); err != nil {
		if isNotFound(err) {
			return "", mserror.NotFound("Image not found.")
		}
		return "", mserror.StoreUnavailable(err, "could not fetch image")
	}
	return resp.SecureURL, nil
}

// Delete destroys the public id. An unknown public id is not an error.
func (s *Remote) Delete(ctx context.Context, handle string) error {
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: handle})
	if err != nil {
		return mserror.StoreUnavailable(err, "could not delete image")
	}
	if err := apiError(resp.Error); err != nil {
		if isNotFound(err) {
			return nil
		}
		return mserror.StoreUnavailable(err, "could not delete image")
	}

	switch resp.Result {
	case "ok", "not found":
		return nil
	default:
		return mserror.StoreUnavailable(errors.Errorf("unexpected result %q", resp.Result), "could not delete image")
	}
}

func apiError(e api.ErrorResp) error {
	if e.Message == "" {
		return nil
	}
	return errors.New(e.Message)
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
