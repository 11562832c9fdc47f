package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpipe/internal/assets"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the HTML tags of one asset type for a scope",
	Long: `Render prints the tags a page in the given scope would include: the
global groups first, then the groups of the sub-scope, falling back to the
scope's "all" groups. Without --build the tags reference the original
files; with --build the bundles are built first and referenced instead.

Examples:
  assetpipe render --type javascript
  assetpipe render --type css --scope users --sub-scope index
  assetpipe render --type javascript --build`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

var (
	renderType     string
	renderScope    string
	renderSubScope string
	renderBuild    bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderType, "type", "t", assets.TypeJavaScript, "Asset type to render")
	renderCmd.Flags().StringVarP(&renderScope, "scope", "s", "", "Scope (e.g. controller) to render for")
	renderCmd.Flags().StringVar(&renderSubScope, "sub-scope", "", "Sub-scope (e.g. action) to render for")
	renderCmd.Flags().BoolVar(&renderBuild, "build", false, "Build the bundles before rendering")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := loadApp(ctx, renderBuild, true)
	if err != nil {
		return err
	}

	if renderBuild {
		if err := a.env.Build(ctx, renderType); err != nil {
			return err
		}
	}

	html, err := a.env.Render(ctx, renderType, assets.Scope{ID: renderScope, SubID: renderSubScope})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), html)
	return nil
}
