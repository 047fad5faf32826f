package asset

import (
	"net/url"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mdouchement/memeswipe/internal/mserror"
)

var (
	validate        = validator.New()
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// ValidateURL checks that raw is an http(s) URL pointing at an image file.
func ValidateURL(raw string) error {
	if err := validate.Var(raw, "required,http_url"); err != nil {
		return mserror.InvalidInput("Image URL must be a valid HTTP/HTTPS URL.")
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return mserror.InvalidInput("Image URL must be a valid HTTP/HTTPS URL.")
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range imageExtensions {
		if ext == e {
			return nil
		}
	}
	return mserror.InvalidInput("Image URL must point to an image file (.jpg, .jpeg, .png, .gif, .webp).")
}
