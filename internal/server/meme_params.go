package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/service"
	"github.com/pkg/errors"
)

// A tagList accepts a JSON array, a JSON encoded array or comma separated values.
type tagList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *tagList) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err == nil {
		*t = tags
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("tags must be an array or a string")
	}
	*t = parseTags(raw)
	return nil
}

func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags
	}

	tags = []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// memeParams are the fields of a meme creation or update request.
type memeParams struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        *tagList `json:"tags"`
	Active      *bool    `json:"active"`
	ImageURL    *string  `json:"image_url"`

	ImageData []byte `json:"-"`
}

func (p memeParams) image() *service.Image {
	if len(p.ImageData) > 0 {
		return &service.Image{Data: p.ImageData}
	}
	if p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) != "" {
		return &service.Image{URL: strings.TrimSpace(*p.ImageURL)}
	}
	return nil
}

func (p memeParams) tags() []string {
	if p.Tags == nil {
		return nil
	}
	return []string(*p.Tags)
}

func (p memeParams) create() service.CreateParams {
	params := service.CreateParams{
		Title:       trimmed(p.Title),
		Description: trimmed(p.Description),
		Tags:        p.tags(),
	}
	if image := p.image(); image != nil {
		params.Image = *image
	}
	return params
}

func (p memeParams) update() service.UpdateParams {
	params := service.UpdateParams{
		Tags:   p.tags(),
		Active: p.Active,
		Image:  p.image(),
	}
	if p.Title != nil {
		title := trimmed(p.Title)
		params.Title = &title
	}
	if p.Description != nil {
		description := trimmed(p.Description)
		params.Description = &description
	}
	return params
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// bindMeme reads a JSON body or a multipart form carrying the image in the `image` field.
func bindMeme(c echo.Context, maxUploadSize int64) (memeParams, error) {
	var params memeParams

	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := c.Bind(&params); err != nil {
			return params, err
		}
		return params, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return params, mserror.Wrap(err, mserror.KindInvalidInput, "Could not read multipart form.")
	}

	value := func(name string) *string {
		if v, ok := form.Value[name]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}

	params.Title = value("title")
	params.Description = value("description")
	params.ImageURL = value("image_url")
	if raw := value("tags"); raw != nil {
		tags := tagList(parseTags(*raw))
		params.Tags = &tags
	}
	if raw := value("active"); raw != nil {
		active, err := strconv.ParseBool(*raw)
		if err != nil {
			return params, mserror.InvalidInput("active must be a boolean.")
		}
		params.Active = &active
	}

	if files := form.File["image"]; len(files) > 0 {
		params.ImageData, err = readUpload(files[0], maxUploadSize)
		if err != nil {
			return params, err
		}
	}
	return params, nil
}

// readUpload reads at most limit+1 bytes so that oversized images are detected by the asset inspection.
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, mserror.Wrap(err, mserror.KindInvalidInput, "Could not read uploaded image.")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, mserror.Wrap(err, mserror.KindInvalidInput, "Could not read uploaded image.")
	}
	return data, nil
}
