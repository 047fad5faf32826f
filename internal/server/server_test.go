package server_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/asset"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/logger"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/ratelimit"
	"github.com/mdouchement/memeswipe/internal/server"
	"github.com/mdouchement/memeswipe/internal/service"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRequestHome(t *testing.T) {
	engine, _, r := setup(t)

	r.GET("/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestVersion(t *testing.T) {
	engine, _, r := setup(t)

	r.GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestMetrics(t *testing.T) {
	engine, _, r := setup(t)

	r.GET("/metrics").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.Contains(t, r.Body.String(), "go_goroutines")
	})
}

func TestRequestRestricted(t *testing.T) {
	engine, ioc, r := setup(t)

	for _, path := range []string{"/auth/me", "/memes", "/memes/mine", "/memes/liked", "/memes/42"} {
		r.GET(path).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code, path)
			assert.False(t, fastjson.GetBool(r.Body.Bytes(), "success"))
			assert.Equal(t, "Invalid login credentials.", fastjson.GetString(r.Body.Bytes(), "error", "message"))
		})
	}

	r.GET("/memes").SetHeader(gofight.H{"Authorization": "Bearer not.a.token"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	// Tokens issued before a password change are revoked.
	user := createUser(t, ioc, "george")
	header := authorization(t, ioc, user)
	user.PasswordUpdatedAt = time.Now().Add(time.Hour).Unix()
	require.NoError(t, ioc.Database.Save(user))

	r.GET("/auth/me").SetHeader(header).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.Equal(t, "Revoked token.", fastjson.GetString(r.Body.Bytes(), "error", "message"))
	})
}

func setup(t *testing.T) (engine *echo.Echo, ioc server.IOC, r *gofight.RequestConfig) {
	t.Helper()
	return setupWith(t, func(*server.IOC) {})
}

func setupWith(t *testing.T, configure func(*server.IOC)) (engine *echo.Echo, ioc server.IOC, r *gofight.RequestConfig) {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "memeswipe.db")
	require.NoError(t, database.StormInit(filename))
	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	uploads := filepath.Join(t.TempDir(), "uploads")
	direct, err := asset.NewDirect(uploads, "http://example.com/uploads")
	require.NoError(t, err)

	m := metrics.New()
	limiter := ratelimit.New(100, 100)
	t.Cleanup(func() {
		limiter.Stop()
		db.Close()
	})

	ioc = server.IOC{
		Version:          "test",
		Database:         db,
		Assets:           asset.NewRegistry(direct, nil, asset.WithMaxSize(1<<20), asset.WithMetrics(m)),
		Metrics:          m,
		Logger:           logger.Discard(),
		SigningKey:       []byte("secret"),
		TokenTTL:         time.Hour,
		FeedDefaultLimit: service.DefaultFeedLimit,
		FeedMaxLimit:     service.MaxFeedLimit,
		UploadsDir:       uploads,
		MaxUploadSize:    1 << 20,
		DecisionLimiter:  limiter,
	}
	configure(&ioc)

	return server.EchoEngine(ioc), ioc, gofight.New()
}

func createUser(t *testing.T, ioc server.IOC, username string) *model.User {
	t.Helper()

	password, err := argon2.GenerateFromPasswordString("Password42", argon2.Default)
	require.NoError(t, err)

	user := &model.User{
		Username:          username,
		Email:             username + "@nowhere.lan",
		Name:              username,
		Password:          password,
		PasswordUpdatedAt: time.Now().Add(-12 * time.Hour).Unix(),
	}
	require.NoError(t, ioc.Database.Save(user))
	return user
}

func authorization(t *testing.T, ioc server.IOC, user *model.User) gofight.H {
	t.Helper()

	token, err := service.NewUsers(ioc.Database, ioc.SigningKey, ioc.TokenTTL, false).Token(user)
	require.NoError(t, err)
	return gofight.H{"Authorization": "Bearer " + token}
}

// pngFile writes a small PNG in a temporary directory and returns its path.
func pngFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	filename := filepath.Join(t.TempDir(), "meme.png")
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0644))
	return filename
}
