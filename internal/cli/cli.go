// Package cli implements the masonry command-line interface.
//
// # Commands
//
//   - layout: lay out a feed headlessly and write JSON or SVG
//   - view: scroll a feed interactively in the terminal
//   - serve: run the HTTP session API
//   - feed: generate and inspect feed documents
//   - cache: manage persisted sizes and layouts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/buildinfo"
	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "masonry"

	// cachePrefix namespaces keys in shared backends.
	cachePrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Masonry lays out virtualized masonry feeds",
		Long:         `Masonry is a headless virtualizer for masonry feeds: it measures, lays out and windows large item lists, from the command line, the terminal or over HTTP.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/masonry/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.feedCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config, Cache and Runner
// =============================================================================

// loadConfig reads the config file selected by --config.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newCache opens the configured backend, or a NullCache when disabled.
func (c *CLI) newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts, err := cfg.Cache.Options()
	if err != nil {
		return nil, err
	}
	if opts.Redis.Prefix == "" {
		opts.Redis.Prefix = cachePrefix
	}
	backend, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", opts.Backend, err)
	}
	c.Logger.Debug("opened cache", "backend", opts.Backend)
	return cache.Instrument(backend, cfg.Cache.KeyPrefix()), nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(backend, cfg.Cache.Keyer(), c.Logger)
	if cfg.Cache.TTL > 0 {
		runner.SizesTTL = cfg.Cache.TTL
	}
	return runner, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
