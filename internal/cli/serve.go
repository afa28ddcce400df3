package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/internal/server"
)

// serveCommand creates the serve command for the HTTP session API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve virtualizer sessions over HTTP",
		Long: `Serve virtualizer sessions over HTTP.

Clients create a session by posting a feed and a viewport, then drive it with
scroll, resize and measure actions. Every response is the settled view: the
rendered window, total size and scroll state. Sessions expire when idle and
their measured sizes are persisted to the configured cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			backend, err := c.newCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}

			logger := commandLogger(cmd)
			srv := server.New(cfg, backend, logger)
			printInfo("Listening on %s", StyleHighlight.Render(cfg.Server.Addr))

			prog := newProgress(logger)
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			prog.done("Server stopped", "addr", cfg.Server.Addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not persist measured sizes")

	return cmd
}
