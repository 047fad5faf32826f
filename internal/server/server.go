package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/ratelimit"
	"github.com/mdouchement/memeswipe/internal/server/middlewares"
	"github.com/mdouchement/memeswipe/internal/service"
	"github.com/mdouchement/memeswipe/internal/validation"
	"github.com/sirupsen/logrus"
)

// An IOC is an Iversion Of Control pattern used to init the server package.
type IOC struct {
	Version        string
	Database       database.Client
	Assets         service.Assets
	Metrics        *metrics.Metrics
	Logger         logrus.FieldLogger
	NoRegistration bool
	// JWT params
	SigningKey []byte
	TokenTTL   time.Duration
	// Feed params
	FeedDefaultLimit int
	FeedMaxLimit     int
	// Directory of the locally stored images, served under /uploads.
	UploadsDir    string
	MaxUploadSize int64
	// Throttles swipes per user, nil disables throttling.
	DecisionLimiter *ratelimit.Limiter
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl IOC) *echo.Echo {
	if ctrl.Logger == nil {
		ctrl.Logger = logrus.StandardLogger()
	}
	if ctrl.MaxUploadSize <= 0 {
		ctrl.MaxUploadSize = 10 << 20
	}

	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())
	engine.Use(middlewares.RequestLogger(ctrl.Logger))

	engine.Binder = middlewares.NewBinder()
	engine.Validator = validation.New()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.JWT(ctrl.SigningKey))
	restricted.Use(middlewares.CurrentUser(ctrl.Database))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})
	router.GET("/metrics", echo.WrapHandler(ctrl.Metrics.Handler()))
	if ctrl.UploadsDir != "" {
		router.Static("/uploads", ctrl.UploadsDir)
	}

	//
	// auth handlers
	//
	auth := &auth{
		users: service.NewUsers(ctrl.Database, ctrl.SigningKey, ctrl.TokenTTL, ctrl.NoRegistration),
	}
	router.POST("/auth/register", auth.Register)
	router.POST("/auth/sign_in", auth.Login)
	restricted.GET("/auth/me", auth.Me)

	//
	// meme handlers
	//
	meme := &meme{
		db:            ctrl.Database,
		content:       service.NewContent(ctrl.Database, ctrl.Assets, ctrl.Logger, ctrl.Metrics, ctrl.FeedMaxLimit),
		feed:          service.NewFeed(ctrl.Database, ctrl.Assets, ctrl.Logger, ctrl.FeedDefaultLimit, ctrl.FeedMaxLimit),
		decisions:     service.NewDecisions(ctrl.Database, ctrl.Assets, ctrl.Logger, ctrl.Metrics),
		maxUploadSize: ctrl.MaxUploadSize,
	}
	restricted.GET("/memes", meme.Feed)
	restricted.POST("/memes", meme.Create)
	restricted.GET("/memes/mine", meme.Mine)
	restricted.GET("/memes/liked", meme.Liked)
	restricted.GET("/memes/disliked", meme.Disliked)
	restricted.GET("/memes/:id", meme.Show)
	restricted.PUT("/memes/:id", meme.Update)
	restricted.DELETE("/memes/:id", meme.Delete)
	restricted.POST("/memes/:id/swipe", meme.Swipe, middlewares.RateLimit(ctrl.DecisionLimiter))

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}
