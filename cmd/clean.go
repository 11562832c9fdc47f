package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove minified bundles from the cache directory",
	Long: `Clean removes every file in the cache directory whose name ends in a
minified extension of a registered type (.min.js, .min.css). Other files
are left alone.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := loadApp(ctx, false, false)
	if err != nil {
		return err
	}

	removed, err := a.env.Clean()
	for _, path := range removed {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "Cleaned cache directory", "dir", a.env.CacheDir(), "removed", len(removed))
	return nil
}
