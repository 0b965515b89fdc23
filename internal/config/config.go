// Package config loads flowmap settings.
//
// Sources are layered, later ones winning:
//
//  1. Built-in defaults
//  2. flowmap.yaml (or the file named by --config)
//  3. FLOWMAP_* environment variables, after loading .env if present
//  4. Command-line flags that were explicitly set
//
// Keys are dotted section paths such as "layout.horizontal_gap". The
// environment variable for a key is FLOWMAP_ followed by the key in upper
// case with the first dot replaced by an underscore, e.g.
// FLOWMAP_LAYOUT_HORIZONTAL_GAP or FLOWMAP_CACHE_REDIS_ADDR.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/errors"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/pipeline"
)

const (
	// AppName is used for directories and the env prefix.
	AppName = "flowmap"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "FLOWMAP_"

	// DefaultFile is the config file looked up in the working directory.
	DefaultFile = "flowmap.yaml"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Server defaults.
const (
	DefaultAddr       = ":8080"
	DefaultSessionTTL = 2 * time.Hour
)

// Config is the merged configuration.
type Config struct {
	Layout    LayoutConfig    `koanf:"layout"`
	Highlight HighlightConfig `koanf:"highlight"`
	Cache     CacheConfig     `koanf:"cache"`
	Server    ServerConfig    `koanf:"server"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Verbose   bool            `koanf:"verbose"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-"`
}

type LayoutConfig struct {
	HorizontalGap float64 `koanf:"horizontal_gap"`
	VerticalGap   float64 `koanf:"vertical_gap"`
	Fallback      string  `koanf:"fallback"`
}

type HighlightConfig struct {
	FilterToSelection bool `koanf:"filter_to_selection"`
}

type CacheConfig struct {
	Backend   string        `koanf:"backend"`
	Dir       string        `koanf:"dir"`
	RedisAddr string        `koanf:"redis_addr"`
	TTL       time.Duration `koanf:"ttl"`
	Prefix    string        `koanf:"prefix"`
}

type ServerConfig struct {
	Addr          string        `koanf:"addr"`
	SessionSecret string        `koanf:"session_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	Watch         bool          `koanf:"watch"`
	SecureCookies bool          `koanf:"secure_cookies"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// FlagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var FlagKeys = map[string]string{
	"hgap":           "layout.horizontal_gap",
	"vgap":           "layout.vertical_gap",
	"fallback":       "layout.fallback",
	"filter":         "highlight.filter_to_selection",
	"cache":          "cache.backend",
	"cache-dir":      "cache.dir",
	"redis":          "cache.redis_addr",
	"cache-prefix":   "cache.prefix",
	"addr":           "server.addr",
	"session-ttl":    "server.session_ttl",
	"watch":          "server.watch",
	"secure-cookies": "server.secure_cookies",
	"mongo-uri":      "mongo.uri",
	"mongo-db":       "mongo.database",
	"verbose":        "verbose",
}

func defaults() map[string]any {
	return map[string]any{
		"layout.horizontal_gap":         layout.DefaultHorizontalGap,
		"layout.vertical_gap":           layout.DefaultVerticalGap,
		"layout.fallback":               string(layout.DefaultFallback),
		"highlight.filter_to_selection": false,
		"cache.backend":                 CacheFile,
		"cache.dir":                     "",
		"cache.ttl":                     cache.LayoutTTL.String(),
		"cache.prefix":                  "",
		"server.addr":                   DefaultAddr,
		"server.session_ttl":            DefaultSessionTTL.String(),
		"server.watch":                  false,
		"server.secure_cookies":         false,
		"mongo.database":                pipeline.DefaultMongoDatabase,
		"verbose":                       false,
	}
}

// Load merges all sources. cfgFile may be empty; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file %s", used)
		}
	}

	// 3. Environment, with .env as a fallback source for unset variables.
	// A missing .env is fine.
	_ = godotenv.Load()
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	cfg.File = used
	if cfg.Cache.Dir == "" {
		if dir, err := DefaultCacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns FLOWMAP_LAYOUT_HORIZONTAL_GAP into layout.horizontal_gap.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultFile, "flowmap.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if _, err := c.LayoutOptions().WithDefaults(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if err := errors.ValidateURL(c.Cache.RedisAddr, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOptions, err, "cache.redis_addr")
		}
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "cache.backend must be one of none, file, redis (got %q)", c.Cache.Backend)
	}
	if c.Server.SessionTTL < 0 || c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "durations must not be negative")
	}
	if c.Mongo.URI != "" {
		if err := errors.ValidateURL(c.Mongo.URI, "mongodb", "mongodb+srv"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOptions, err, "mongo.uri")
		}
	}
	return nil
}

// LayoutOptions returns the layout engine options.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		HorizontalGap: c.Layout.HorizontalGap,
		VerticalGap:   c.Layout.VerticalGap,
		Fallback:      layout.Fallback(c.Layout.Fallback),
	}
}

// PipelineOptions returns pipeline options for a catalog path. An empty
// path with a configured Mongo URI reads from Mongo.
func (c *Config) PipelineOptions(catalogPath string) pipeline.Options {
	opts := pipeline.Options{
		Catalog:           catalogPath,
		HorizontalGap:     c.Layout.HorizontalGap,
		VerticalGap:       c.Layout.VerticalGap,
		Fallback:          layout.Fallback(c.Layout.Fallback),
		FilterToSelection: c.Highlight.FilterToSelection,
	}
	if catalogPath == "" {
		opts.MongoURI = c.Mongo.URI
		opts.MongoDatabase = c.Mongo.Database
	}
	return opts
}

// OpenCache opens the configured cache backend. noCache forces the null cache.
func (c *Config) OpenCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("open cache dir: %w", err)
		}
		return fc, nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, c.Cache.RedisAddr)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return cache.NewNullCache(), nil
}

// Keyer returns the cache key scheme, scoped by the configured prefix when
// one is set.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Cache.Prefix)
}

// DefaultCacheDir returns the cache directory using XDG standard (~/.cache/flowmap/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
