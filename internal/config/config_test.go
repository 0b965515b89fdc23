package config

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/errors"
	"github.com/matzehuels/flowmap/pkg/layout"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, layout.DefaultHorizontalGap, cfg.Layout.HorizontalGap)
	assert.Equal(t, layout.DefaultVerticalGap, cfg.Layout.VerticalGap)
	assert.Equal(t, string(layout.DefaultFallback), cfg.Layout.Fallback)
	assert.False(t, cfg.Highlight.FilterToSelection)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/xdg/flowmap", cfg.Cache.Dir)
	assert.Equal(t, cache.LayoutTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.False(t, cfg.Server.SecureCookies, "plain HTTP must keep working out of the box")
	assert.Empty(t, cfg.Cache.Prefix)
	assert.Empty(t, cfg.File)
}

func TestLoadSecureCookiesAndPrefix(t *testing.T) {
	t.Setenv("FLOWMAP_SERVER_SECURE_COOKIES", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cache-prefix", "", "")
	require.NoError(t, flags.Parse([]string{"--cache-prefix", "prod:"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, "prod:", cfg.Cache.Prefix)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load("testdata/flowmap.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, "testdata/flowmap.yaml", cfg.File)
	assert.Equal(t, 250.0, cfg.Layout.HorizontalGap)
	assert.Equal(t, layout.DefaultVerticalGap, cfg.Layout.VerticalGap, "unset keys keep defaults")
	assert.Equal(t, "origin", cfg.Layout.Fallback)
	assert.True(t, cfg.Highlight.FilterToSelection)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("FLOWMAP_LAYOUT_HORIZONTAL_GAP", "400")
	t.Setenv("FLOWMAP_SERVER_ADDR", "127.0.0.1:7000")

	cfg, err := Load("testdata/flowmap.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, 400.0, cfg.Layout.HorizontalGap)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FLOWMAP_LAYOUT_VERTICAL_GAP", "120")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("vgap", layout.DefaultVerticalGap, "")
	flags.Float64("hgap", layout.DefaultHorizontalGap, "")
	flags.Bool("filter", false, "")
	flags.String("unrelated", "x", "")
	require.NoError(t, flags.Parse([]string{"--vgap", "80", "--filter", "--unrelated", "y"}))

	cfg, err := Load("testdata/flowmap.yaml", flags)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Layout.VerticalGap)
	assert.Equal(t, 250.0, cfg.Layout.HorizontalGap, "unchanged flags must not override the file")
	assert.True(t, cfg.Highlight.FilterToSelection)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("testdata/bad_backend.yaml", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))

	t.Setenv("FLOWMAP_LAYOUT_FALLBACK", "spiral")
	_, err = Load("", nil)
	assert.Error(t, err)
}

func TestValidateRedis(t *testing.T) {
	cfg := &Config{
		Layout: LayoutConfig{Fallback: string(layout.DefaultFallback)},
		Cache:  CacheConfig{Backend: CacheRedis, RedisAddr: "localhost:6379"},
	}
	assert.Error(t, cfg.Validate(), "redis address needs a scheme")

	cfg.Cache.RedisAddr = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "layout.horizontal_gap", envKey("FLOWMAP_LAYOUT_HORIZONTAL_GAP"))
	assert.Equal(t, "cache.redis_addr", envKey("FLOWMAP_CACHE_REDIS_ADDR"))
	assert.Equal(t, "verbose", envKey("FLOWMAP_VERBOSE"))
}

func TestPipelineOptions(t *testing.T) {
	cfg := &Config{
		Layout:    LayoutConfig{HorizontalGap: 200, VerticalGap: 50, Fallback: "none"},
		Highlight: HighlightConfig{FilterToSelection: true},
		Mongo:     MongoConfig{URI: "mongodb://db:27017", Database: "itmap"},
	}

	opts := cfg.PipelineOptions("catalog.yaml")
	assert.Equal(t, "catalog.yaml", opts.Catalog)
	assert.Empty(t, opts.MongoURI, "a catalog path wins over mongo")
	assert.Equal(t, 200.0, opts.HorizontalGap)
	assert.Equal(t, layout.FallbackNone, opts.Fallback)
	assert.True(t, opts.FilterToSelection)

	opts = cfg.PipelineOptions("")
	assert.Equal(t, "mongodb://db:27017", opts.MongoURI)
	assert.Equal(t, "itmap", opts.MongoDatabase)
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	cfg := &Config{Cache: CacheConfig{Backend: CacheFile, Dir: t.TempDir()}}
	c, err := cfg.OpenCache(ctx, false)
	require.NoError(t, err)
	assert.IsType(t, &cache.FileCache{}, c)

	c, err = cfg.OpenCache(ctx, true)
	require.NoError(t, err)
	assert.IsType(t, &cache.NullCache{}, c)

	cfg.Cache.Backend = CacheNone
	c, err = cfg.OpenCache(ctx, false)
	require.NoError(t, err)
	assert.IsType(t, &cache.NullCache{}, c)
}

func TestKeyer(t *testing.T) {
	opts := cache.LayoutKeyOpts{HorizontalGap: 300, VerticalGap: 100, Fallback: "column"}
	plain := cache.NewDefaultKeyer().LayoutKey("abc", opts)

	cfg := &Config{}
	assert.Equal(t, plain, cfg.Keyer().LayoutKey("abc", opts))

	cfg.Cache.Prefix = "team-a:"
	scoped := cfg.Keyer()
	assert.Equal(t, "team-a:"+plain, scoped.LayoutKey("abc", opts))
	assert.Equal(t, "team-a:"+cache.NewDefaultKeyer().ArtifactKey("s", cache.ArtifactKeyOpts{Format: "svg"}),
		scoped.ArtifactKey("s", cache.ArtifactKeyOpts{Format: "svg"}))
}
