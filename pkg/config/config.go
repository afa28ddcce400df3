// Package config loads the masonry configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/masonry/config.toml
// (falling back to ~/.config/masonry/config.toml). Every section is
// optional; a missing file yields [Default].
//
//	[layout]
//	overscan = 2
//	gap = 12.0
//	resize_delay = "16ms"
//
//	[[breakpoints]]
//	name = "mobile"
//	min_width = 0
//	lanes = 1
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//	scope = "staging"
//
//	[server]
//	addr = ":8080"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/masonry/pkg/breakpoint"
	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/virtual"
)

const appName = "masonry"

// Config is the decoded configuration file.
type Config struct {
	Layout      Layout         `toml:"layout"`
	Breakpoints breakpoint.Set `toml:"breakpoints"`
	Cache       Cache          `toml:"cache"`
	Server      Server         `toml:"server"`
}

// Layout holds virtualizer defaults shared by every command.
type Layout struct {
	Overscan           int           `toml:"overscan"`
	Gap                float64       `toml:"gap"`
	PaddingStart       float64       `toml:"padding_start"`
	PaddingEnd         float64       `toml:"padding_end"`
	ScrollPaddingStart float64       `toml:"scroll_padding_start"`
	ScrollPaddingEnd   float64       `toml:"scroll_padding_end"`
	ScrollMargin       float64       `toml:"scroll_margin"`
	Horizontal         bool          `toml:"horizontal"`
	ResizeDelay        time.Duration `toml:"resize_delay"`
	ScrollingDelay     time.Duration `toml:"scrolling_reset_delay"`
	UseScrollend       bool          `toml:"use_scrollend"`
	UseAnimationFrame  bool          `toml:"animation_frame_resize"`
}

// Cache selects and configures the size snapshot backend.
type Cache struct {
	Backend         string        `toml:"backend"`
	Dir             string        `toml:"dir"`
	TTL             time.Duration `toml:"ttl"`
	Prefix          string        `toml:"prefix"`
	Scope           string        `toml:"scope"`
	RedisAddr       string        `toml:"redis_addr"`
	RedisPassword   string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
	MongoURI        string        `toml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection"`
}

// Server configures the HTTP session API.
type Server struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	SessionTTL   time.Duration `toml:"session_ttl"`
	MaxSessions  int           `toml:"max_sessions"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Layout: Layout{
			Overscan:       virtual.DefaultOverscan,
			ScrollingDelay: virtual.DefaultIsScrollingResetDelay,
		},
		Breakpoints: breakpoint.Default(),
		Cache: Cache{
			Backend:         cache.BackendFile,
			TTL:             7 * 24 * time.Hour,
			MongoDatabase:   appName,
			MongoCollection: "sizes",
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			SessionTTL:   30 * time.Minute,
			MaxSessions:  1000,
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the default file cache directory (~/.cache/masonry).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the file at path over [Default]. An empty path means [Path].
// A missing file is not an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if os.IsNotExist(err) {
		return Config{}, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over [Default] and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Breakpoints = nil
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if len(cfg.Breakpoints) == 0 {
		cfg.Breakpoints = breakpoint.Default()
	}
	cfg.Breakpoints = cfg.Breakpoints.Sorted()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	l := c.Layout
	if l.Overscan < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.overscan must not be negative")
	}
	for name, v := range map[string]float64{
		"layout.gap":                  l.Gap,
		"layout.padding_start":        l.PaddingStart,
		"layout.padding_end":          l.PaddingEnd,
		"layout.scroll_padding_start": l.ScrollPaddingStart,
		"layout.scroll_padding_end":   l.ScrollPaddingEnd,
		"layout.scroll_margin":        l.ScrollMargin,
	} {
		if err := errors.ValidateSize(name, v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
		}
	}
	if l.ResizeDelay < 0 || l.ScrollingDelay < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout delays must not be negative")
	}
	if err := c.Breakpoints.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendFile, cache.BackendRedis, cache.BackendMongo, cache.BackendTiered:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if c.Cache.Backend == cache.BackendMongo && c.Cache.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
	}
	if c.Cache.Backend == cache.BackendTiered && c.Cache.RedisAddr == "" && c.Cache.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "the tiered backend needs redis_addr or mongo_uri")
	}
	if c.Server.MaxSessions < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_sessions must not be negative")
	}
	return nil
}

// Apply copies the layout defaults into opts.
func (l Layout) Apply(opts *virtual.Options) {
	opts.Overscan = l.Overscan
	opts.Gap = l.Gap
	opts.PaddingStart = l.PaddingStart
	opts.PaddingEnd = l.PaddingEnd
	opts.ScrollPaddingStart = l.ScrollPaddingStart
	opts.ScrollPaddingEnd = l.ScrollPaddingEnd
	opts.ScrollMargin = l.ScrollMargin
	opts.Horizontal = l.Horizontal
	opts.ResizeNotifyDelay = l.ResizeDelay
	if l.ScrollingDelay > 0 {
		opts.IsScrollingResetDelay = l.ScrollingDelay
	}
	opts.UseScrollendEvent = l.UseScrollend
	opts.UseAnimationFrameWithResizeObserver = l.UseAnimationFrame
}

// KeyPrefix is Scope followed by a single colon, or "" without a scope.
func (c Cache) KeyPrefix() string {
	if c.Scope == "" {
		return ""
	}
	return strings.TrimSuffix(c.Scope, ":") + ":"
}

// Keyer returns the key scheme for the cache. A non-empty Scope keeps
// deployments that share one backend apart.
func (c Cache) Keyer() cache.Keyer {
	if c.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.KeyPrefix())
}

// Options converts the cache section for [cache.Open]. An empty Dir is
// resolved with [CacheDir].
func (c Cache) Options() (cache.Options, error) {
	dir := c.Dir
	if dir == "" && (c.Backend == cache.BackendFile || c.Backend == cache.BackendTiered) {
		d, err := CacheDir()
		if err != nil {
			return cache.Options{}, fmt.Errorf("resolve cache dir: %w", err)
		}
		dir = d
	}
	return cache.Options{
		Backend: c.Backend,
		Dir:     dir,
		TTL:     c.TTL,
		Redis: cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.Prefix,
		},
		Mongo: cache.MongoOptions{
			URI:        c.MongoURI,
			Database:   c.MongoDatabase,
			Collection: c.MongoCollection,
		},
	}, nil
}
