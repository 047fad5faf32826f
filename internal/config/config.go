// Package config loads the server configuration.
//
// Values come from defaults, then the YAML file, then MEMESWIPE_* environment variables.
// Nested keys use a double underscore in variable names: MEMESWIPE_LOG__LEVEL sets log.level.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of the environment variables overriding the configuration.
const EnvPrefix = "MEMESWIPE_"

type (
	// Config holds the server configuration.
	Config struct {
		Address        string        `koanf:"address"`
		DatabasePath   string        `koanf:"database_path"`
		SecretKey      string        `koanf:"secret_key"`
		NoRegistration bool          `koanf:"no_registration"`
		TokenTTL       time.Duration `koanf:"token_ttl"`
		Log            Log           `koanf:"log"`
		Assets         Assets        `koanf:"assets"`
		Feed           Feed          `koanf:"feed"`
		RateLimit      RateLimit     `koanf:"ratelimit"`
	}

	// Log configures the logger.
	Log struct {
		Level      string `koanf:"level"`
		Format     string `koanf:"format"`
		File       string `koanf:"file"`
		MaxSize    int    `koanf:"max_size"` // megabytes
		MaxBackups int    `koanf:"max_backups"`
		MaxAge     int    `koanf:"max_age"` // days
	}

	// Assets configures the asset stores.
	Assets struct {
		Timeout    time.Duration `koanf:"timeout"`
		MaxSize    int           `koanf:"max_size"`
		MaxPixels  int           `koanf:"max_pixels"`
		Local      Local         `koanf:"local"`
		Cloudinary Cloudinary    `koanf:"cloudinary"`
	}

	// Local configures the direct asset store.
	Local struct {
		Path    string `koanf:"path"`
		BaseURL string `koanf:"base_url"`
	}

	// Cloudinary configures the remote asset store.
	Cloudinary struct {
		CloudName string `koanf:"cloud_name"`
		APIKey    string `koanf:"api_key"`
		APISecret string `koanf:"api_secret"`
		Folder    string `koanf:"folder"`
	}

	// Feed configures feed paging.
	Feed struct {
		DefaultLimit int `koanf:"default_limit"`
		MaxLimit     int `koanf:"max_limit"`
	}

	// RateLimit configures swipe submission throttling.
	RateLimit struct {
		DecisionsPerSecond float64 `koanf:"decisions_per_second"`
		Burst              int     `koanf:"burst"`
	}
)

// Defaults returns the default values.
func Defaults() map[string]any {
	return map[string]any{
		"address":                        "localhost:5000",
		"database_path":                  "",
		"token_ttl":                      "168h",
		"log.level":                      "info",
		"log.format":                     "text",
		"log.max_size":                   20,
		"log.max_backups":                2,
		"log.max_age":                    10,
		"assets.timeout":                 "15s",
		"assets.max_size":                10 << 20,
		"assets.max_pixels":              40_000_000,
		"assets.local.path":              "uploads",
		"assets.local.base_url":          "http://localhost:5000/uploads",
		"assets.cloudinary.folder":       "memes",
		"feed.default_limit":             20,
		"feed.max_limit":                 100,
		"ratelimit.decisions_per_second": 5,
		"ratelimit.burst":                10,
	}
}

// Load reads the configuration file, if any, and the environment.
func Load(filename string) (*Config, error) {
	konf := koanf.New(".")
	if err := konf.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "could not load defaults")
	}

	if filename != "" {
		if err := konf.Load(file.Provider(filename), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "could not load %s", filename)
		}
	}

	if err := konf.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "could not load environment")
	}

	var cfg Config
	if err := konf.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "could not decode configuration")
	}
	return &cfg, nil
}

// Validate checks the values needed to run the server.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret_key not found")
	}
	if c.Feed.DefaultLimit < 1 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return errors.Errorf("invalid feed limits: default %d, max %d", c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	if c.Assets.Local.Path == "" || c.Assets.Local.BaseURL == "" {
		return errors.New("assets.local.path and assets.local.base_url are required")
	}
	return nil
}

// RemoteEnabled returns true when Cloudinary credentials are set.
func (c *Config) RemoteEnabled() bool {
	cld := c.Assets.Cloudinary
	return cld.CloudName != "" && cld.APIKey != "" && cld.APISecret != ""
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
