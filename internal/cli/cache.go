package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage persisted sizes and layouts",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear every cached size snapshot and layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			backend, err := c.newCache(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			cl, ok := backend.(cache.Clearer)
			if !ok {
				printWarning("The %s cache cannot be cleared", cfg.Cache.Backend)
				return nil
			}
			if err := cl.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared the %s cache", cfg.Cache.Backend)
			if dir := cfg.Cache.Dir; dir != "" {
				printDetail("Directory: %s", dir)
			}
			return nil
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand.
func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries from the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if b := cfg.Cache.Backend; b != cache.BackendFile && b != cache.BackendTiered {
				printWarning("The %s cache has no local entries to prune", b)
				return nil
			}
			backend, err := c.newCache(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			n, err := backend.(cache.Pruner).Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			printSuccess("Pruned %d expired entries", n)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache and config locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			path := c.ConfigPath
			if path == "" {
				if path, err = config.Path(); err != nil {
					return fmt.Errorf("get config path: %w", err)
				}
			}
			printKeyValue("cache", dir)
			printKeyValue("config", path)
			return nil
		},
	}
}
