package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// layoutFlags holds the flags of the layout command.
type layoutFlags struct {
	output  string
	formats string
	noCache bool
	table   bool
	filter  string
	align   string
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags
	opts := pipeline.Options{Width: pipeline.DefaultWidth, Height: pipeline.DefaultHeight}

	cmd := &cobra.Command{
		Use:   "layout [feed.json|feed.toml]",
		Short: "Lay out a feed in a headless viewport",
		Long: `Lay out a feed in a headless viewport.

The layout command mounts a virtualizer over the feed in an in-memory viewport,
renders and measures the visible window until it is stable, and writes the
resulting geometry as JSON or an SVG drawing.

Measured sizes are stored per feed, so the next run starts from exact sizes.
Use --exhaustive to scroll through the whole feed and measure every item.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Align = virtual.Align(flags.align)
			return c.runLayout(cmd.Context(), args[0], opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file base (default: <input>.layout.<format>)")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output formats: json (default), svg")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flags.table, "table", false, "print the rendered window as a table")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "only lay out items whose title contains this text")

	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "viewport height")
	cmd.Flags().IntVar(&opts.Lanes, "lanes", 0, "lane count (default: from breakpoints)")
	cmd.Flags().Float64Var(&opts.Offset, "offset", 0, "initial scroll offset")
	cmd.Flags().StringVar(&opts.ScrollTo, "scroll-to", "", "scroll to the item with this key")
	cmd.Flags().StringVar(&flags.align, "align", string(pipeline.DefaultAlign), "alignment for --scroll-to: start, center, end, auto")
	cmd.Flags().BoolVar(&opts.Exhaustive, "exhaustive", false, "measure every item")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached layouts and sizes")
	cmd.Flags().BoolVar(&opts.Layout.Horizontal, "horizontal", false, "scroll horizontally")

	return cmd
}

// runLayout loads the feed, lays it out, and writes outputs.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, flags layoutFlags) error {
	f, err := feed.Import(input)
	if err != nil {
		return fmt.Errorf("load feed %s: %w", input, err)
	}
	f = f.Filter(flags.filter)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	horizontal := opts.Layout.Horizontal
	opts.Layout = cfg.Layout
	opts.Layout.Horizontal = opts.Layout.Horizontal || horizontal
	opts.Breakpoints = cfg.Breakpoints
	opts.Formats = parseFormats(flags.formats)
	opts.Logger = loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := startSpinner(ctx, os.Stderr, fmt.Sprintf("Laying out %d items...", f.Len()))

	result, err := runner.Execute(ctx, f, opts)
	if err != nil {
		spinner.Fail("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	printSuccess("Layout complete")
	for _, format := range opts.Formats {
		path := outputPath(input, flags.output, format, len(opts.Formats) > 1)
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(result.Stats.ItemCount, result.Stats.Measured, result.CacheInfo)

	if flags.table {
		printNewline()
		fmt.Println(windowTable(f, result.Layout))
	}

	printNewline()
	printNextStep("Scroll it", appName+" view "+input)
	return nil
}

// outputPath derives where format is written. With several formats an
// explicit output is treated as a base name.
func outputPath(input, output, format string, multi bool) string {
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		return base + ".layout." + format
	}
	if multi {
		return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format
	}
	return output
}

// windowTable renders the items of the visible window.
func windowTable(f *feed.Feed, l pipeline.Layout) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(l.View.Items))
	for _, it := range l.View.Items {
		title := ""
		if it.Index < f.Len() {
			title = f.Items[it.Index].Title
		}
		rows = append(rows, []string{
			strconv.Itoa(it.Index),
			shortKey(it.Key),
			title,
			strconv.Itoa(it.Lane),
			fmt.Sprintf("%.0f", it.Start),
			fmt.Sprintf("%.0f", it.Size),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Key", "Title", "Lane", "Start", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 || col >= 3 {
				return lipgloss.NewStyle().Foreground(colorCyan).Align(lipgloss.Right)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}

// shortKey trims UUID keys for display.
func shortKey(key string) string {
	if len(key) > 13 {
		return key[:8] + "…"
	}
	return key
}
