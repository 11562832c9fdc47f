package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpipe/internal/assets"
	"github.com/conneroisu/assetpipe/internal/isolate"
)

// workerCmd is the child side of process isolation: the parent writes one
// JSON job to stdin and reads the JSON result from stdout. A non-zero exit
// status reports failure; the error text goes to stderr.
var workerCmd = &cobra.Command{
	Use:    isolate.WorkerCommand,
	Short:  "Run one bundle job from stdin (internal)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return isolate.ServeWorker(cmd.InOrStdin(), cmd.OutOrStdout(), assets.BuiltinMinifier)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
