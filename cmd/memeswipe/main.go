package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/mdouchement/memeswipe/internal/asset"
	"github.com/mdouchement/memeswipe/internal/config"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/logger"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/ratelimit"
	"github.com/mdouchement/memeswipe/internal/server"
	"github.com/mdouchement/memeswipe/internal/service"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const dbname = "memeswipe.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "memeswipe",
		Short:   "Swipe feed server for memes",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	c.PersistentFlags().StringVarP(&cfg, "config", "c", "", "Configuration file")

	c.AddCommand(initCmd)
	c.AddCommand(reindexCmd)
	c.AddCommand(rmuserCmd)
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

// assets builds the asset registry. Cloudinary is used for uploads when its credentials are set.
func assets(konf *config.Config, m *metrics.Metrics) (*asset.Registry, error) {
	direct, err := asset.NewDirect(konf.Assets.Local.Path, konf.Assets.Local.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not init local asset store")
	}

	var remote asset.Store
	if konf.RemoteEnabled() {
		cld := konf.Assets.Cloudinary
		remote, err = asset.NewRemote(cld.CloudName, cld.APIKey, cld.APISecret, cld.Folder)
		if err != nil {
			return nil, errors.Wrap(err, "could not init cloudinary asset store")
		}
	}

	return asset.NewRegistry(direct, remote,
		asset.WithTimeout(konf.Assets.Timeout),
		asset.WithMaxSize(konf.Assets.MaxSize),
		asset.WithMaxPixels(konf.Assets.MaxPixels),
		asset.WithMetrics(m),
	), nil
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.DatabasePath))
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			return database.StormReIndex(dbnameWithPath(konf.DatabasePath))
		},
	}

	//
	rmuserCmd = &coral.Command{
		Use:   "rmuser EMAIL",
		Short: "Remove a user and the memes they own",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}
			l, err := logger.New(konf.Log)
			if err != nil {
				return err
			}

			db, err := database.StormOpen(dbnameWithPath(konf.DatabasePath))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			m := metrics.New()
			registry, err := assets(konf, m)
			if err != nil {
				return err
			}

			user, err := db.FindUserByMail(strings.ToLower(args[0]))
			if err != nil {
				if db.IsNotFound(err) {
					fmt.Println("No account for this email")
					return nil
				}
				return errors.Wrap(err, "find user by mail")
			}
			fmt.Println("User found:", user.ID)

			// Memes are removed through the lifecycle so that their swipes and images go with them.
			// The swipes of the user are kept, they are counted in the statistics of other memes.
			content := service.NewContent(db, registry, l, m, service.MaxFeedLimit)
			ctx := context.Background()
			for {
				owned, err := content.ListOwned(ctx, user.ID, 1, service.MaxFeedLimit)
				if err != nil {
					return errors.Wrap(err, "list memes")
				}
				if len(owned.Items) == 0 {
					break
				}

				for _, item := range owned.Items {
					if err = content.Delete(ctx, item.ID, user.ID); err != nil {
						return errors.Wrapf(err, "delete meme %s", item.ID)
					}
				}
			}
			fmt.Println("Memes removed")

			if err = db.Delete(user); err != nil && !db.IsNotFound(err) {
				return errors.Wrap(err, "delete user")
			}
			fmt.Println("User removed")

			return nil
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}
			if err = konf.Validate(); err != nil {
				return err
			}

			l, err := logger.New(konf.Log)
			if err != nil {
				return err
			}

			db, err := database.StormOpen(dbnameWithPath(konf.DatabasePath))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			m := metrics.New()
			registry, err := assets(konf, m)
			if err != nil {
				return err
			}
			l.WithField("remote", konf.RemoteEnabled()).Info("asset stores ready")

			limiter := ratelimit.New(konf.RateLimit.DecisionsPerSecond, konf.RateLimit.Burst)
			defer limiter.Stop()

			engine := server.EchoEngine(server.IOC{
				Version:          version,
				Database:         db,
				Assets:           registry,
				Metrics:          m,
				Logger:           l,
				NoRegistration:   konf.NoRegistration,
				SigningKey:       []byte(konf.SecretKey),
				TokenTTL:         konf.TokenTTL,
				FeedDefaultLimit: konf.Feed.DefaultLimit,
				FeedMaxLimit:     konf.Feed.MaxLimit,
				UploadsDir:       konf.Assets.Local.Path,
				MaxUploadSize:    int64(konf.Assets.MaxSize),
				DecisionLimiter:  limiter,
			})
			server.PrintRoutes(engine)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				errc <- serve(engine.Server, konf.Address, l)
			}()

			select {
			case err = <-errc:
				return errors.Wrap(err, "could not run server")
			case <-ctx.Done():
			}

			l.Info("Shutting down")
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return errors.Wrap(engine.Shutdown(shutdown), "could not stop server")
		},
	}
)

// serve listens on a TCP address or on a unix socket given as unix:/path/to/socket.
func serve(s *http.Server, address string, l logrus.FieldLogger) error {
	l.Infof("Server listening on %s", address)

	network := "tcp"
	parts := strings.Split(address, ":")
	if len(parts) == 2 && parts[0] == "unix" {
		network, address = parts[0], parts[1]
		if _, err := os.Stat(address); err == nil {
			l.Infof("Removing existing %s", address)
			os.Remove(address)
		}
		defer os.Remove(address)
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}

	if err = s.Serve(listener); err != http.ErrServerClosed {
		return err
	}
	return nil
}
