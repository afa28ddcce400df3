package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
)

// feedCommand creates the feed command group.
func (c *CLI) feedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Generate and inspect feed documents",
	}

	cmd.AddCommand(c.feedGenerateCommand())
	cmd.AddCommand(c.feedInfoCommand())

	return cmd
}

// feedGenerateCommand creates the "feed generate" subcommand.
func (c *CLI) feedGenerateCommand() *cobra.Command {
	opts := feed.GenerateOptions{Name: "generated", Count: 500, MinSize: 80, MaxSize: 320}

	cmd := &cobra.Command{
		Use:   "generate [output.json|output.toml]",
		Short: "Generate a synthetic feed",
		Long: `Generate a synthetic feed with random item sizes.

The same seed always produces the same feed. Estimates are the midpoint of the
size range unless --exact is set, so laying the feed out exercises measurement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Count < 0 {
				return errors.New(errors.ErrCodeInvalidInput, "count must not be negative, got %d", opts.Count)
			}
			f := feed.Generate(opts)
			if err := feed.Export(args[0], f); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("generated feed", "items", f.Len(), "seed", opts.Seed)
			printSuccess("Generated %d items", f.Len())
			printFile(args[0])
			printNewline()
			printNextStep("Lay it out", appName+" layout "+args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", opts.Name, "feed name")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", opts.Count, "number of items")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&opts.MinSize, "min-size", opts.MinSize, "smallest item size")
	cmd.Flags().Float64Var(&opts.MaxSize, "max-size", opts.MaxSize, "largest item size")
	cmd.Flags().IntVar(&opts.SpanEvery, "span-every", 0, "make every n-th item span two lanes")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "store exact sizes as estimates")

	return cmd
}

// feedInfoCommand creates the "feed info" subcommand.
func (c *CLI) feedInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info [feed.json|feed.toml]",
		Short: "Validate a feed and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := feed.Import(args[0])
			if err != nil {
				return err
			}
			s := summarize(f)
			printSuccess("Valid feed")
			printKeyValue("name", f.Name)
			printKeyValue("items", strconv.Itoa(f.Len()))
			printKeyValue("sized", strconv.Itoa(s.sized))
			printKeyValue("spanning", strconv.Itoa(s.spanning))
			printKeyValue("estimated", fmt.Sprintf("%.0f", s.estimated))
			printKeyValue("hash", f.Hash()[:12])
			return nil
		},
	}
}

type feedSummary struct {
	sized     int
	spanning  int
	estimated float64
}

// summarize counts items with real sizes and spans, and sums estimates.
func summarize(f *feed.Feed) feedSummary {
	var s feedSummary
	for i, it := range f.Items {
		if it.Size > 0 {
			s.sized++
		}
		if it.ColSpan > 1 {
			s.spanning++
		}
		s.estimated += f.EstimateSize(i, 1)
	}
	return s
}
