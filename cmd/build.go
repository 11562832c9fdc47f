package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpipe/internal/errors"
)

var buildCmd = &cobra.Command{
	Use:     "build [type...]",
	Aliases: []string{"b"},
	Short:   "Build the minified bundles of every declared group",
	Long: `Build minifies and concatenates the files of every group declared in the
manifest and writes one bundle per group into the cache directory. Bundles
whose content did not change are left untouched.

Examples:
  assetpipe build                     # Build every type with groups
  assetpipe build javascript          # Build only the javascript groups
  assetpipe build --clean             # Remove old bundles first`,
	RunE: runBuild,
}

var buildClean bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove minified bundles before building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	startTime := time.Now()

	a, err := loadApp(ctx, true, true)
	if err != nil {
		return err
	}

	if buildClean {
		removed, err := a.env.Clean()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d bundle(s)\n", len(removed))
	}

	types := args
	if len(types) == 0 {
		types = a.servedTypes()
	}
	if len(types) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No asset groups declared.")
		return nil
	}

	collector := errors.NewErrorCollector()
	for _, typ := range types {
		if err := a.env.Build(ctx, typ); err != nil {
			collector.AddError(fmt.Errorf("%s: %w", typ, err))
			continue
		}
		for _, group := range a.env.Groups(typ) {
			if group.Built() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", typ, group.CachePath())
			}
		}
	}
	if err := collector.Err(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Build completed in %v\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}
